package draft

import (
	"sync"
	"time"

	"github.com/ignite/bottler-outreach/internal/report"
)

// State is the lifecycle state of one group's draft.
type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Draft is the per-group draft record held by the state store.
type Draft struct {
	State     State     `json:"state"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body,omitempty"`
	Error     string    `json:"error,omitempty"`
	Epoch     uint64    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StateStore owns the group→draft mapping. Writes are single-key upserts
// guarded by a mutex, since completions arrive from concurrently running
// generations. Transitions are pending→ready, pending→failed, and
// ready|failed→pending via Begin (regeneration); a completion carries the
// epoch token its generation started with and is discarded when a newer
// generation has begun since.
type StateStore struct {
	mu     sync.Mutex
	order  []string
	drafts map[string]*Draft
	rows   map[string][]*report.Row
}

// NewStateStore creates an empty store. Reset must be called with the
// current dataset's groups before any generation starts.
func NewStateStore() *StateStore {
	return &StateStore{
		drafts: make(map[string]*Draft),
		rows:   make(map[string][]*report.Row),
	}
}

// Reset discards all state and re-keys the store to exactly the given
// groups, every one pending. Called after each upload and on reset.
func (s *StateStore) Reset(groups []*report.SubBottlerGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(groups))
	s.drafts = make(map[string]*Draft, len(groups))
	s.rows = make(map[string][]*report.Row, len(groups))
	for _, g := range groups {
		s.order = append(s.order, g.Name)
		s.drafts[g.Name] = &Draft{State: StatePending, UpdatedAt: time.Now()}
		s.rows[g.Name] = g.Rows
	}
}

// RowsFor returns the rows backing one group. The slice is shared with
// the dataset and must be treated as read-only.
func (s *StateStore) RowsFor(group string) []*report.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[group]
}

// Begin marks a group pending for a fresh generation and returns the new
// epoch token. Any still-running older generation for the group becomes
// stale: its completion will no longer be applied. Returns false for
// unknown groups.
func (s *StateStore) Begin(group string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[group]
	if !ok {
		return 0, false
	}
	d.Epoch++
	d.State = StatePending
	d.Subject = ""
	d.Body = ""
	d.Error = ""
	d.UpdatedAt = time.Now()
	return d.Epoch, true
}

// Complete records a successful generation. The write is applied only if
// epoch still matches the group's current generation.
func (s *StateStore) Complete(group string, epoch uint64, subject, body string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[group]
	if !ok || d.Epoch != epoch {
		return false
	}
	d.State = StateReady
	d.Subject = subject
	d.Body = body
	d.Error = ""
	d.UpdatedAt = time.Now()
	return true
}

// Fail records a failed generation, subject to the same epoch check.
func (s *StateStore) Fail(group string, epoch uint64, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[group]
	if !ok || d.Epoch != epoch {
		return false
	}
	d.State = StateFailed
	d.Subject = ""
	d.Body = ""
	d.Error = message
	d.UpdatedAt = time.Now()
	return true
}

// Get returns a copy of one group's draft.
func (s *StateStore) Get(group string) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[group]
	if !ok {
		return Draft{}, false
	}
	return *d, true
}

// Groups returns the store's key set in dataset order.
func (s *StateStore) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Snapshot returns a copy of every group's draft, keyed by group name.
func (s *StateStore) Snapshot() map[string]Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Draft, len(s.drafts))
	for name, d := range s.drafts {
		out[name] = *d
	}
	return out
}
