package dashboard

import (
	"sync"
	"time"

	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
)

// CycleData describes one finished sync cycle.
type CycleData struct {
	Started    time.Time      `json:"started"`
	DurationMS int64          `json:"duration_ms"`
	State      string         `json:"state"`
	Outcomes   []string       `json:"outcomes"`
	Commit     string         `json:"commit,omitempty"`
	Changes    []string       `json:"changes,omitempty"`
	Pulled     []PulledCommit `json:"pulled,omitempty"`
	Resolved   []string       `json:"resolved,omitempty"`
	Rounds     int            `json:"rounds,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// PulledCommit is an upstream commit brought in by a pull.
type PulledCommit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Subject string `json:"subject"`
}

// TickData describes one watcher tick.
type TickData struct {
	State string `json:"state"`

	// Skipped is true when the tree was still changing and the cycle was
	// deferred.
	Skipped bool `json:"skipped"`

	// QuietFor is the time since the last file change, in seconds.
	// Negative when no change has been seen.
	QuietFor float64 `json:"quiet_for"`
}

// SnapshotData is sent on connect.
type SnapshotData struct {
	Repository string     `json:"repository"`
	Branch     string     `json:"branch,omitempty"`
	Cycles     int        `json:"cycles"`
	LastCycle  *CycleData `json:"last_cycle,omitempty"`
	LastTick   *TickData  `json:"last_tick,omitempty"`
}

// Handler turns sync activity into dashboard messages and remembers the
// latest state for newly connected clients.
type Handler struct {
	server *Server

	mu       sync.Mutex
	snapshot SnapshotData
}

// NewHandler creates a handler publishing to server.
func NewHandler(server *Server, repository, branch string) *Handler {
	h := &Handler{
		server:   server,
		snapshot: SnapshotData{Repository: repository, Branch: branch},
	}
	server.SetSnapshot(h.snapshotMessage)
	return h
}

// OnCycle publishes a finished cycle.
func (h *Handler) OnCycle(rep reposync.Report) {
	data := NewCycleData(rep)

	h.mu.Lock()
	h.snapshot.Cycles++
	h.snapshot.LastCycle = &data
	h.mu.Unlock()

	h.server.Publish(MessageTypeCycle, data)
}

// OnTick publishes a tick.
func (h *Handler) OnTick(data TickData) {
	h.mu.Lock()
	h.snapshot.LastTick = &data
	h.mu.Unlock()

	h.server.Publish(MessageTypeTick, data)
}

// Snapshot returns a copy of the current state.
func (h *Handler) Snapshot() SnapshotData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot
}

func (h *Handler) snapshotMessage() Message {
	msg, err := NewMessage(MessageTypeSnapshot, h.Snapshot())
	if err != nil {
		return Message{Type: MessageTypeSnapshot, Timestamp: time.Now()}
	}
	return msg
}

// NewCycleData flattens a report for the wire.
func NewCycleData(rep reposync.Report) CycleData {
	data := CycleData{
		Started:    rep.Started,
		DurationMS: rep.Duration().Milliseconds(),
		State:      rep.State.String(),
		Commit:     rep.Commit,
		Changes:    rep.Changes,
	}
	for _, o := range rep.Outcomes {
		data.Outcomes = append(data.Outcomes, o.String())
	}
	for _, c := range rep.Pulled {
		data.Pulled = append(data.Pulled, PulledCommit{Hash: c.ShortHash(), Author: c.Author, Subject: c.Subject})
	}
	if rep.Episode != nil {
		data.Resolved = rep.Episode.Files
		data.Rounds = rep.Episode.Rounds
	}
	if err := rep.Err(); err != nil {
		data.Error = err.Error()
	}
	return data
}
