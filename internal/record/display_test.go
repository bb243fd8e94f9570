package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplay(t *testing.T) {
	end := "2024-03-05"
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"title", NewTitle("Write report"), "Write report"},
		{"text", Text{NewTextSpan("a"), NewTextSpan("b")}, "ab"},
		{"select", NewSelect("Doing"), "Doing"},
		{"empty_select", Select{}, ""},
		{"multi_select", MultiSelect{{Name: "red"}, {Name: "blue"}}, "red, blue"},
		{"date", NewDate("2024-03-01"), "2024-03-01"},
		{"date_range", Date{Range: &DateRange{Start: "2024-03-01", End: &end}}, "2024-03-01 → 2024-03-05"},
		{"people", People{{ID: "u1", Name: "Ada"}, {ID: "u2"}}, "Ada, u2"},
		{"checkbox", Checkbox(true), "true"},
		{"number", NewNumber(2.5), "2.5"},
		{"null_number", Number{}, ""},
		{"url", NewURL("https://example.com"), "https://example.com"},
		{"email", NewEmail("a@example.com"), "a@example.com"},
		{"phone", Phone{}, ""},
		{"files", Files{{Name: "brief.pdf"}}, "brief.pdf"},
		{"formula", Unsupported{Type: "formula", Raw: json.RawMessage(`{"type":"formula"}`)}, "(not synced)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(tt.value))
		})
	}
}
