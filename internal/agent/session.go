package agent

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/gg/gmap"
)

// Status of a background session.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// seq numbers sessions across the whole process.
var seq atomic.Int64

// Session tracks one background CLI run.
type Session struct {
	mu           sync.RWMutex
	ID           string
	CLISessionID string
	Status       string
	WorkDir      string
	CreatedAt    time.Time
	LastOutput   string
	process      Handle // nil until attached
}

func (s *Session) attach(p Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.process = p
}

// SetResult records the outcome of the run. An empty cliSessionID keeps the
// one already recorded.
func (s *Session) SetResult(cliSessionID, output, status string) {
	s.mu.Lock()
	if cliSessionID != "" {
		s.CLISessionID = cliSessionID
	}
	s.LastOutput = output
	s.Status = status
	s.mu.Unlock()
}

// SessionSnapshot is a copy of a session's state safe to hand out.
type SessionSnapshot struct {
	ID           string    `json:"id"`
	CLISessionID string    `json:"cli_session_id,omitempty"`
	Status       string    `json:"status"`
	WorkDir      string    `json:"work_dir,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastOutput   string    `json:"last_output,omitempty"`
}

// Snapshot returns a copy of the session's state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		ID:           s.ID,
		CLISessionID: s.CLISessionID,
		Status:       s.Status,
		WorkDir:      s.WorkDir,
		CreatedAt:    s.CreatedAt,
		LastOutput:   s.LastOutput,
	}
}

// SessionManager tracks live background sessions and caps how many may
// exist at once.
type SessionManager struct {
	mu    sync.RWMutex
	byID  map[string]*Session
	limit int
}

// NewSessionManager caps concurrent sessions at limit; 0 means no cap.
func NewSessionManager(limit int) *SessionManager {
	return &SessionManager{
		byID:  make(map[string]*Session),
		limit: limit,
	}
}

// CreateWithLimit registers a new running session, refusing once the cap is
// hit. IDs look like "sw-1", "sw-2", and so on.
func (sm *SessionManager) CreateWithLimit(workDir string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.limit > 0 && len(sm.byID) >= sm.limit {
		return nil, fmt.Errorf("max sessions (%d) in flight, destroy one first", sm.limit)
	}

	s := &Session{
		ID:        fmt.Sprintf("sw-%d", seq.Add(1)),
		Status:    StatusRunning,
		WorkDir:   workDir,
		CreatedAt: time.Now(),
	}
	sm.byID[s.ID] = s
	return s, nil
}

// Get looks up a live session.
func (sm *SessionManager) Get(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.byID[id]
	return s, ok
}

// List returns snapshots of all sessions. The order is non-deterministic.
func (sm *SessionManager) List() []SessionSnapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return gmap.ToSlice(sm.byID, func(_ string, s *Session) SessionSnapshot { return s.Snapshot() })
}

// Destroy drops a session and kills its process if one is still attached.
func (sm *SessionManager) Destroy(id string) {
	sm.mu.Lock()
	s := sm.byID[id]
	delete(sm.byID, id)
	sm.mu.Unlock()

	if s == nil {
		return
	}
	s.mu.RLock()
	proc := s.process
	s.mu.RUnlock()
	if proc != nil {
		proc.Kill()
	}
}
