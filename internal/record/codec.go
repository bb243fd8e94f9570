package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wireValue is the tagged JSON envelope of a property value:
//
//	{"id": "...", "type": "number", "number": 5}
//
// Only the type tag is decoded generically; the payload is decoded by kind.
type wireValue struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
}

// MarshalValue encodes a value in its tagged wire form.
// Unsupported values are written back exactly as they were read.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Unsupported:
		if len(val.Raw) == 0 {
			return json.Marshal(map[string]string{"type": val.Type})
		}
		return val.Raw, nil
	case nil:
		return nil, fmt.Errorf("nil property value")
	}

	payload, err := marshalPayload(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	tag, _ := json.Marshal(string(v.Kind()))
	buf.Write(tag)
	buf.WriteByte(',')
	buf.Write(tag)
	buf.WriteByte(':')
	buf.Write(payload)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalPayload encodes the kind-specific payload of a supported value.
func marshalPayload(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Title:
		return json.Marshal(spansOrEmpty(val))
	case Text:
		return json.Marshal(spansOrEmpty(val))
	case Select:
		return json.Marshal(val.Option)
	case MultiSelect:
		if val == nil {
			val = MultiSelect{}
		}
		return json.Marshal([]Option(val))
	case Date:
		return json.Marshal(val.Range)
	case People:
		if val == nil {
			val = People{}
		}
		return json.Marshal([]UserRef(val))
	case Checkbox:
		return json.Marshal(bool(val))
	case Number:
		return json.Marshal(val.Value)
	case URL:
		return json.Marshal(val.Value)
	case Email:
		return json.Marshal(val.Value)
	case Phone:
		return json.Marshal(val.Value)
	case Files:
		if val == nil {
			val = Files{}
		}
		return json.Marshal([]FileRef(val))
	default:
		return nil, fmt.Errorf("unknown property value type: %T", v)
	}
}

func spansOrEmpty(spans []RichText) []RichText {
	if spans == nil {
		return []RichText{}
	}
	return spans
}

// UnmarshalValue decodes a tagged wire value. Tags outside the supported set
// decode to Unsupported rather than failing.
func UnmarshalValue(data []byte) (Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Type == "" {
		return nil, fmt.Errorf("property value has no type tag")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	payload := fields[w.Type]
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	switch Kind(w.Type) {
	case KindTitle:
		var spans []RichText
		if err := json.Unmarshal(payload, &spans); err != nil {
			return nil, fmt.Errorf("title: %w", err)
		}
		return Title(spans), nil
	case KindText:
		var spans []RichText
		if err := json.Unmarshal(payload, &spans); err != nil {
			return nil, fmt.Errorf("rich_text: %w", err)
		}
		return Text(spans), nil
	case KindSelect:
		var opt *Option
		if err := json.Unmarshal(payload, &opt); err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		return Select{Option: opt}, nil
	case KindMultiSelect:
		var opts []Option
		if err := json.Unmarshal(payload, &opts); err != nil {
			return nil, fmt.Errorf("multi_select: %w", err)
		}
		return MultiSelect(opts), nil
	case KindDate:
		var r *DateRange
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		return Date{Range: r}, nil
	case KindPeople:
		var users []UserRef
		if err := json.Unmarshal(payload, &users); err != nil {
			return nil, fmt.Errorf("people: %w", err)
		}
		return People(users), nil
	case KindCheckbox:
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("checkbox: %w", err)
		}
		return Checkbox(b), nil
	case KindNumber:
		var n *float64
		if err := json.Unmarshal(payload, &n); err != nil {
			return nil, fmt.Errorf("number: %w", err)
		}
		return Number{Value: n}, nil
	case KindURL:
		s, err := unmarshalNullableString(payload)
		if err != nil {
			return nil, fmt.Errorf("url: %w", err)
		}
		return URL{Value: s}, nil
	case KindEmail:
		s, err := unmarshalNullableString(payload)
		if err != nil {
			return nil, fmt.Errorf("email: %w", err)
		}
		return Email{Value: s}, nil
	case KindPhone:
		s, err := unmarshalNullableString(payload)
		if err != nil {
			return nil, fmt.Errorf("phone_number: %w", err)
		}
		return Phone{Value: s}, nil
	case KindFiles:
		var files []FileRef
		if err := json.Unmarshal(payload, &files); err != nil {
			return nil, fmt.Errorf("files: %w", err)
		}
		return Files(files), nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unsupported{Type: w.Type, Raw: raw}, nil
	}
}

func unmarshalNullableString(data []byte) (*string, error) {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// MarshalJSON encodes the mapping as an object of tagged values.
func (p Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := MarshalValue(p[name])
		if err != nil {
			return nil, fmt.Errorf("marshal property %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of tagged values.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = make(Properties, len(raw))
	for name, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		(*p)[name] = val
	}
	return nil
}
