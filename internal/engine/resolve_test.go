package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Millisecond)

	tests := []struct {
		name   string
		hub    time.Time
		source time.Time
		want   Decision
	}{
		{"hub newer", t2, t1, HubWins},
		{"source newer", t1, t2, SourceWins},
		{"tie", t1, t1, KeepBoth},
		{"tie across zones", t1, t1.In(time.FixedZone("CET", 3600)), KeepBoth},
		{"zero hub", time.Time{}, t1, SourceWins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.hub, tt.source))
		})
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "hub-wins", HubWins.String())
	assert.Equal(t, "source-wins", SourceWins.String())
	assert.Equal(t, "keep", KeepBoth.String())
}
