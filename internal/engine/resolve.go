package engine

import "time"

// Decision is the outcome of comparing a hub record with its source.
type Decision int

const (
	// KeepBoth means neither side is strictly newer; nothing is written.
	KeepBoth Decision = iota

	// HubWins means the hub record is strictly newer.
	HubWins

	// SourceWins means the source record is strictly newer.
	SourceWins
)

// String returns the decision name used in logs.
func (d Decision) String() string {
	switch d {
	case HubWins:
		return "hub-wins"
	case SourceWins:
		return "source-wins"
	default:
		return "keep"
	}
}

// Resolve compares last-modified timestamps. Equal timestamps resolve to
// KeepBoth, so ties never trigger a write in either direction.
func Resolve(hubModified, sourceModified time.Time) Decision {
	switch {
	case hubModified.After(sourceModified):
		return HubWins
	case sourceModified.After(hubModified):
		return SourceWins
	default:
		return KeepBoth
	}
}
