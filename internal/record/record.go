package record

import (
	"slices"
	"strings"
	"time"
)

// Record is the unit of synchronization.
//
// ID is assigned by the store and never changes. LastModified is bumped by
// the store on every write and is the only input to conflict resolution.
type Record struct {
	ID           string
	LastModified time.Time
	Properties   Properties
}

// Properties maps a field name to its typed value.
type Properties map[string]Value

// Fields returns the field names in sorted order.
func (p Properties) Fields() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// PlainText returns the trimmed text of a Title or Text field.
// The second result is false when the field is absent, of another kind, or
// holds no text.
func (p Properties) PlainText(field string) (string, bool) {
	var s string
	switch v := p[field].(type) {
	case Title:
		s = JoinSpans(v)
	case Text:
		s = JoinSpans(v)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Checked reports whether field is a Checkbox set to true.
func (p Properties) Checked(field string) bool {
	v, ok := p[field].(Checkbox)
	return ok && bool(v)
}

// Clone returns a shallow copy of the mapping. Values are immutable by
// convention, so sharing them is safe.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with every field of update written over it.
func (p Properties) Merge(update Properties) Properties {
	out := p.Clone()
	for k, v := range update {
		out[k] = v
	}
	return out
}

// Project converts props into the values a destination collection accepts.
// Empty values and unsupported kinds are dropped, not copied; fields named in
// exclude are skipped entirely. Field names are kept as they are.
func Project(props Properties, exclude ...string) Properties {
	out := make(Properties, len(props))
	for name, v := range props {
		if slices.Contains(exclude, name) {
			continue
		}
		if v == nil {
			continue
		}
		if pv, ok := v.projected(); ok {
			out[name] = pv
		}
	}
	return out
}

// ProjectValue applies the projection rule of a single value.
func ProjectValue(v Value) (Value, bool) {
	if v == nil {
		return nil, false
	}
	return v.projected()
}
