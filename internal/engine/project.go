package engine

import (
	"github.com/roach88/hubsync/internal/record"
)

// Projector converts property sets between the hub and a source.
type Projector struct {
	SourceField  string
	DeletedField string
}

// ToSource projects hub properties for a reverse write. The link and
// tombstone fields never travel as ordinary fields.
func (p Projector) ToSource(hub record.Properties) record.Properties {
	return record.Project(hub, p.SourceField, p.DeletedField)
}

// ToHub projects source properties for a forward write and stamps the link
// field with the source record id.
func (p Projector) ToHub(sourceID string, src record.Properties) record.Properties {
	out := record.Project(src, p.SourceField)
	out[p.SourceField] = record.Text{record.NewTextSpan(sourceID)}
	return out
}

// Tombstone returns the property set that marks a record deleted.
func (p Projector) Tombstone() record.Properties {
	return record.Properties{p.DeletedField: record.Checkbox(true)}
}

// HubMatches reports whether a hub record already holds the forward
// projection of a source. The link is compared by text, since stores may
// decorate stored spans with annotations the stamp does not carry.
func (p Projector) HubMatches(sourceID string, projected, hub record.Properties) bool {
	if link, ok := hub.PlainText(p.SourceField); !ok || link != sourceID {
		return false
	}
	rest := projected.Clone()
	delete(rest, p.SourceField)
	return record.Equivalent(rest, hub)
}
