package record

import (
	"encoding/json"
	"strings"
)

// Kind is the wire tag of a property value.
type Kind string

const (
	KindTitle       Kind = "title"
	KindText        Kind = "rich_text"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multi_select"
	KindDate        Kind = "date"
	KindPeople      Kind = "people"
	KindCheckbox    Kind = "checkbox"
	KindNumber      Kind = "number"
	KindURL         Kind = "url"
	KindEmail       Kind = "email"
	KindPhone       Kind = "phone_number"
	KindFiles       Kind = "files"
)

// Value is a sealed interface over the property kinds a record can hold.
// Only the types in this file implement it.
type Value interface {
	// Kind returns the wire tag of the value.
	Kind() Kind

	// projected returns the value as it should be written to another
	// collection, or false when the value is empty and must be dropped.
	projected() (Value, bool)
}

// RichText is one span of a rich text sequence. Spans are copied verbatim,
// so every field the store returned is kept.
type RichText struct {
	Type        string          `json:"type,omitempty"`
	Text        *TextContent    `json:"text,omitempty"`
	Mention     json.RawMessage `json:"mention,omitempty"`
	Equation    *Equation       `json:"equation,omitempty"`
	Annotations *Annotations    `json:"annotations,omitempty"`
	PlainText   string          `json:"plain_text,omitempty"`
	Href        *string         `json:"href,omitempty"`
}

// TextContent is the payload of a "text" span.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a hyperlink attached to a text span.
type Link struct {
	URL string `json:"url"`
}

// Equation is the payload of an "equation" span.
type Equation struct {
	Expression string `json:"expression"`
}

// Annotations holds the styling flags of a span.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// NewTextSpan creates a plain text span with the given content.
func NewTextSpan(content string) RichText {
	return RichText{
		Type:      "text",
		Text:      &TextContent{Content: content},
		PlainText: content,
	}
}

// spanText returns the readable text of a span.
func spanText(s RichText) string {
	if s.PlainText != "" {
		return s.PlainText
	}
	if s.Text != nil {
		return s.Text.Content
	}
	if s.Equation != nil {
		return s.Equation.Expression
	}
	return ""
}

// JoinSpans concatenates the readable text of a span sequence.
func JoinSpans(spans []RichText) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(spanText(s))
	}
	return b.String()
}

// Option is a select or multi-select label.
type Option struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateRange is a date value. End is carried on read but never written.
type DateRange struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// UserRef references a workspace user.
type UserRef struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
}

// FileRef references an uploaded or external file.
type FileRef struct {
	Name     string    `json:"name"`
	Type     string    `json:"type,omitempty"`
	File     *FileURL  `json:"file,omitempty"`
	External *External `json:"external,omitempty"`
}

// FileURL is a store-hosted file location.
type FileURL struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// External is an externally hosted file location.
type External struct {
	URL string `json:"url"`
}

// Title is the title span sequence of a record.
type Title []RichText

func (Title) Kind() Kind { return KindTitle }

func (v Title) projected() (Value, bool) {
	if len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Text is a rich text span sequence.
type Text []RichText

func (Text) Kind() Kind { return KindText }

func (v Text) projected() (Value, bool) {
	if len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Select is a single label; Option is nil when nothing is selected.
type Select struct {
	Option *Option
}

func (Select) Kind() Kind { return KindSelect }

// Only the label survives projection; option ids and colours belong to the
// schema of the collection they were read from.
func (v Select) projected() (Value, bool) {
	if v.Option == nil {
		return nil, false
	}
	return Select{Option: &Option{Name: v.Option.Name}}, true
}

// MultiSelect is a set of labels.
type MultiSelect []Option

func (MultiSelect) Kind() Kind { return KindMultiSelect }

func (v MultiSelect) projected() (Value, bool) {
	if len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Date is a date value; Range is nil when no date is set.
type Date struct {
	Range *DateRange
}

func (Date) Kind() Kind { return KindDate }

func (v Date) projected() (Value, bool) {
	if v.Range == nil {
		return nil, false
	}
	return Date{Range: &DateRange{Start: v.Range.Start}}, true
}

// People is a set of user references.
type People []UserRef

func (People) Kind() Kind { return KindPeople }

func (v People) projected() (Value, bool) {
	if len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Checkbox is a boolean. False is a value, never empty.
type Checkbox bool

func (Checkbox) Kind() Kind { return KindCheckbox }

func (v Checkbox) projected() (Value, bool) {
	return v, true
}

// Number is a nullable number.
type Number struct {
	Value *float64
}

func (Number) Kind() Kind { return KindNumber }

func (v Number) projected() (Value, bool) {
	if v.Value == nil {
		return nil, false
	}
	return v, true
}

// URL is a nullable link.
type URL struct {
	Value *string
}

func (URL) Kind() Kind { return KindURL }

func (v URL) projected() (Value, bool) {
	return v, present(v.Value)
}

// Email is a nullable email address.
type Email struct {
	Value *string
}

func (Email) Kind() Kind { return KindEmail }

func (v Email) projected() (Value, bool) {
	return v, present(v.Value)
}

// Phone is a nullable phone number.
type Phone struct {
	Value *string
}

func (Phone) Kind() Kind { return KindPhone }

func (v Phone) projected() (Value, bool) {
	return v, present(v.Value)
}

func present(s *string) bool {
	return s != nil && *s != ""
}

// Files is an ordered list of file references.
type Files []FileRef

func (Files) Kind() Kind { return KindFiles }

func (v Files) projected() (Value, bool) {
	if len(v) == 0 {
		return nil, false
	}
	return v, true
}

// Unsupported holds a property the engine reads but never writes: formulas,
// rollups, relations, store-managed timestamps and any tag it does not know.
type Unsupported struct {
	Type string
	Raw  json.RawMessage
}

// Kind returns the original wire tag.
func (v Unsupported) Kind() Kind { return Kind(v.Type) }

func (Unsupported) projected() (Value, bool) {
	return nil, false
}

// NewTitle creates a Title with a single text span.
func NewTitle(content string) Title {
	return Title{NewTextSpan(content)}
}

// NewText creates a Text with a single text span.
func NewText(content string) Text {
	return Text{NewTextSpan(content)}
}

// NewSelect creates a Select with the named option.
func NewSelect(name string) Select {
	return Select{Option: &Option{Name: name}}
}

// NewNumber creates a non-null Number.
func NewNumber(n float64) Number {
	return Number{Value: &n}
}

// NewURL creates a non-null URL.
func NewURL(s string) URL {
	return URL{Value: &s}
}

// NewEmail creates a non-null Email.
func NewEmail(s string) Email {
	return Email{Value: &s}
}

// NewPhone creates a non-null Phone.
func NewPhone(s string) Phone {
	return Phone{Value: &s}
}

// NewDate creates a Date starting at start.
func NewDate(start string) Date {
	return Date{Range: &DateRange{Start: start}}
}
