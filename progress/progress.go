package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase names for one harvest run, in order.
const (
	PhaseFetch           = "fetch"
	PhaseRewrite         = "rewrite"
	PhaseWeatherFetch    = "weather_fetch"
	PhaseWeatherGenerate = "weather_generate"
)

// Snapshot is a point-in-time copy of the run state, safe to hand to callers.
type Snapshot struct {
	RunID     string `json:"run_id,omitempty"`
	Running   bool   `json:"running"`
	Phase     string `json:"phase,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Completed *int   `json:"completed,omitempty"`

	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`

	// Current item, set during the rewrite phase only
	CurrentID    int64  `json:"current_id,omitempty"`
	CurrentTitle string `json:"current_title,omitempty"`
	CurrentURL   string `json:"current_url,omitempty"`
}

// Tracker records the progress of the current (or last) harvest run with
// thread-safe access. One instance is shared process-wide; each run overwrites
// the previous run's state wholesale on Start.
type Tracker struct {
	mu    sync.RWMutex
	state Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Start resets the state for a new run and marks it running.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Snapshot{
		RunID:     uuid.NewString(),
		Running:   true,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Phase records the current phase and a free-text detail. Counters are kept
// so the rewrite totals stay visible across phase detail updates.
func (t *Tracker) Phase(name, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Phase = name
	t.state.Detail = detail
}

// SetRewriteTotal sets the rewrite-phase item count and zeroes the completed
// counter.
func (t *Tracker) SetRewriteTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	completed := 0
	t.state.Total = &total
	t.state.Completed = &completed
}

// IncRewrite advances the completed counter, clamped to the total.
func (t *Tracker) IncRewrite(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Completed == nil {
		completed := 0
		t.state.Completed = &completed
	}
	c := *t.state.Completed + n
	if t.state.Total != nil && c > *t.state.Total {
		c = *t.state.Total
	}
	*t.state.Completed = c
}

// SetCurrent records the item currently being rewritten.
func (t *Tracker) SetCurrent(id int64, title, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentID = id
	t.state.CurrentTitle = title
	t.state.CurrentURL = url
}

// Finish marks the run done and clears the current-item fields so observers
// don't see stale info. A non-empty error marks the run finished-with-error.
func (t *Tracker) Finish(errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Running = false
	t.state.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	if errMsg != "" {
		t.state.Error = errMsg
	}
	t.state.CurrentID = 0
	t.state.CurrentTitle = ""
	t.state.CurrentURL = ""
}

// Running reports whether a run is in flight.
func (t *Tracker) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Running
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	if t.state.Total != nil {
		total := *t.state.Total
		s.Total = &total
	}
	if t.state.Completed != nil {
		completed := *t.state.Completed
		s.Completed = &completed
	}
	return s
}
