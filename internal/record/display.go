package record

import (
	"strconv"
	"strings"
)

// Display renders a value on one line for people to read. Values the
// engine never writes render as "(not synced)".
func Display(v Value) string {
	switch val := v.(type) {
	case Title:
		return JoinSpans(val)
	case Text:
		return JoinSpans(val)
	case Select:
		if val.Option == nil {
			return ""
		}
		return val.Option.Name
	case MultiSelect:
		names := make([]string, len(val))
		for i, o := range val {
			names[i] = o.Name
		}
		return strings.Join(names, ", ")
	case Date:
		if val.Range == nil {
			return ""
		}
		if val.Range.End != nil {
			return val.Range.Start + " → " + *val.Range.End
		}
		return val.Range.Start
	case People:
		names := make([]string, len(val))
		for i, u := range val {
			names[i] = u.Name
			if names[i] == "" {
				names[i] = u.ID
			}
		}
		return strings.Join(names, ", ")
	case Checkbox:
		return strconv.FormatBool(bool(val))
	case Number:
		if val.Value == nil {
			return ""
		}
		return strconv.FormatFloat(*val.Value, 'f', -1, 64)
	case URL:
		return deref(val.Value)
	case Email:
		return deref(val.Value)
	case Phone:
		return deref(val.Value)
	case Files:
		names := make([]string, len(val))
		for i, f := range val {
			names[i] = f.Name
		}
		return strings.Join(names, ", ")
	default:
		return "(not synced)"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
