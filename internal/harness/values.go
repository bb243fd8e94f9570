package harness

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/hubsync/internal/record"
)

// PropertyValue is the one-key shorthand for a property value, for example
// {title: "Alpha"}, {number: 3} or {multi_select: [red, blue]}.
type PropertyValue map[string]any

// Value converts the shorthand into a typed value.
func (p PropertyValue) Value() (record.Value, error) {
	if len(p) != 1 {
		return nil, fmt.Errorf("property value must have exactly one kind, got %v", slices.Sorted(maps.Keys(p)))
	}
	kind := slices.Collect(maps.Keys(p))[0]
	return shorthandValue(kind, p[kind])
}

func shorthandValue(kind string, raw any) (record.Value, error) {
	switch kind {
	case "title":
		s, err := asString(kind, raw)
		return record.NewTitle(s), err
	case "text":
		s, err := asString(kind, raw)
		return record.NewText(s), err
	case "select":
		if raw == nil {
			return record.Select{}, nil
		}
		s, err := asString(kind, raw)
		return record.NewSelect(s), err
	case "date":
		if raw == nil {
			return record.Date{}, nil
		}
		s, err := asString(kind, raw)
		return record.NewDate(s), err
	case "url", "email", "phone":
		return nullableString(kind, raw)
	case "number":
		return asNumber(raw)
	case "checkbox":
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("checkbox: want bool, got %T", raw)
		}
		return record.Checkbox(b), nil
	case "multi_select":
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("multi_select: want list, got %T", raw)
		}
		out := make(record.MultiSelect, 0, len(items))
		for _, item := range items {
			s, err := asString(kind, item)
			if err != nil {
				return nil, err
			}
			out = append(out, record.Option{Name: s})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown property kind %q", kind)
	}
}

func asString(kind string, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", kind, raw)
	}
	return s, nil
}

func nullableString(kind string, raw any) (record.Value, error) {
	var ptr *string
	if raw != nil {
		s, err := asString(kind, raw)
		if err != nil {
			return nil, err
		}
		ptr = &s
	}
	switch kind {
	case "url":
		return record.URL{Value: ptr}, nil
	case "email":
		return record.Email{Value: ptr}, nil
	default:
		return record.Phone{Value: ptr}, nil
	}
}

func asNumber(raw any) (record.Value, error) {
	switch n := raw.(type) {
	case nil:
		return record.Number{}, nil
	case int:
		return record.NewNumber(float64(n)), nil
	case float64:
		return record.NewNumber(n), nil
	default:
		return nil, fmt.Errorf("number: want number, got %T", raw)
	}
}

// toProperties converts a shorthand property map.
func toProperties(in map[string]PropertyValue) (record.Properties, error) {
	out := make(record.Properties, len(in))
	for name, pv := range in {
		v, err := pv.Value()
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
