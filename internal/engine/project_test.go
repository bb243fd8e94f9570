package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hubsync/internal/record"
)

var testProjector = Projector{SourceField: "Source", DeletedField: "Deleted"}

func TestProjector_ToSourceExcludesLinkAndTombstone(t *testing.T) {
	hub := record.Properties{
		"Name":    record.NewTitle("Task"),
		"Source":  record.NewText("r1"),
		"Deleted": record.Checkbox(false),
		"Points":  record.NewNumber(3),
	}

	got := testProjector.ToSource(hub)

	assert.Equal(t, []string{"Name", "Points"}, got.Fields())
}

func TestProjector_ToHubStampsLink(t *testing.T) {
	src := record.Properties{
		"Name":   record.NewTitle("Task"),
		"Source": record.NewText("something else"),
		"Tags":   record.MultiSelect{},
	}

	got := testProjector.ToHub("r1", src)

	assert.Equal(t, []string{"Name", "Source"}, got.Fields())
	link, ok := got.PlainText("Source")
	require.True(t, ok)
	assert.Equal(t, "r1", link)
	assert.Equal(t, record.KindText, got["Source"].Kind())
}

func TestProjector_Tombstone(t *testing.T) {
	got := testProjector.Tombstone()

	assert.Equal(t, record.Properties{"Deleted": record.Checkbox(true)}, got)
}

func TestProjector_HubMatches(t *testing.T) {
	src := record.Properties{"Name": record.NewTitle("Task"), "Points": record.NewNumber(3)}
	projected := testProjector.ToHub("r1", src)

	decorated := record.RichText{
		Type:        "text",
		Text:        &record.TextContent{Content: "r1"},
		Annotations: &record.Annotations{Color: "default"},
		PlainText:   "r1",
	}
	hub := record.Properties{
		"Name":   record.NewTitle("Task"),
		"Points": record.NewNumber(3),
		"Source": record.Text{decorated},
		"Extra":  record.NewSelect("hub only"),
	}
	assert.True(t, testProjector.HubMatches("r1", projected, hub))

	hub["Points"] = record.NewNumber(4)
	assert.False(t, testProjector.HubMatches("r1", projected, hub))

	hub["Points"] = record.NewNumber(3)
	assert.False(t, testProjector.HubMatches("r2", testProjector.ToHub("r2", src), hub))
}
