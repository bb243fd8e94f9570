package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainProperty separates property fingerprints from any other hash.
// The version suffix leaves room for an algorithm change.
const DomainProperty = "hubsync/property/v1"

// MarshalCanonical encodes a value as canonical JSON for comparison:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalised, no HTML escaping
//   - numbers in their shortest round-trip form, so 5 and 5.0 agree
func MarshalCanonical(v Value) ([]byte, error) {
	data, err := MarshalValue(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint returns the SHA-256 of the canonical form of v with domain
// separation: SHA256(domain + 0x00 + canonical).
func Fingerprint(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(DomainProperty))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equivalent reports whether writing update onto current would leave every
// field of update unchanged. Fields of current that update does not name are
// ignored, matching the merge semantics of a store update.
func Equivalent(update, current Properties) bool {
	for name, want := range update {
		have, ok := ProjectValue(current[name])
		if !ok {
			return false
		}
		if want.Kind() != have.Kind() {
			return false
		}
		a, err := Fingerprint(comparisonForm(want))
		if err != nil {
			return false
		}
		b, err := Fingerprint(comparisonForm(have))
		if err != nil {
			return false
		}
		if a != b {
			return false
		}
	}
	return true
}

// comparisonForm strips parts of a value that change between reads without
// the value itself changing. Hosted files get a fresh signed URL and expiry
// on every read, so they compare by name and type only.
func comparisonForm(v Value) Value {
	files, ok := v.(Files)
	if !ok {
		return v
	}
	out := make(Files, len(files))
	for i, f := range files {
		f.File = nil
		out[i] = f
	}
	return out
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return fmt.Errorf("number %s: %w", val, err)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case string:
		return writeCanonicalString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareUTF16)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// compareUTF16 orders strings by UTF-16 code units. Go's native string
// comparison orders by UTF-8 bytes, which differs for supplementary planes.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
