package engine

// Phase identifies a state of the pass state machine.
type Phase int

const (
	// Idle means no pass is running.
	Idle Phase = iota

	// ReverseSync is the hub to sources phase.
	ReverseSync

	// ForwardSync is the sources to hub phase.
	ForwardSync
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case ReverseSync:
		return "reverse"
	case ForwardSync:
		return "forward"
	default:
		return "idle"
	}
}

// PhaseStats counts what a phase did with each record it saw.
type PhaseStats struct {
	Scanned    int `json:"scanned"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Tombstoned int `json:"tombstoned"`
	Unchanged  int `json:"unchanged"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Writes returns the number of records written by the phase.
func (s PhaseStats) Writes() int {
	return s.Created + s.Updated + s.Tombstoned
}

// Report summarizes one pass.
type Report struct {
	Reverse PhaseStats   `json:"reverse"`
	Forward PhaseStats   `json:"forward"`
	Errors  []*SyncError `json:"-"`
}

// Writes returns the number of records written by the pass.
func (r *Report) Writes() int {
	return r.Reverse.Writes() + r.Forward.Writes()
}

// HasErrors reports whether any record or collection failed.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *Report) stats(p Phase) *PhaseStats {
	if p == ReverseSync {
		return &r.Reverse
	}
	return &r.Forward
}

func (r *Report) fail(err *SyncError) {
	r.Errors = append(r.Errors, err)
	if err.RecordID != "" {
		r.stats(err.Phase).Failed++
	}
}
