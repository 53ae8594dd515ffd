package sched

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Store is the job table, a map in memory mirrored to a JSON file. Every
// mutation writes through to disk, so the file stays current even if the
// process dies between ticks.
type Store struct {
	mu   sync.RWMutex
	path string
	jobs map[string]Job
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		jobs: make(map[string]Job),
	}
}

// Open loads the job file. A store that was never written is empty, not an
// error.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read job store: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var jobs []Job
	if err := sonic.Unmarshal(raw, &jobs); err != nil {
		return fmt.Errorf("parse job store: %w", err)
	}
	s.jobs = make(map[string]Job, len(jobs))
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return nil
}

// Insert adds a new job and persists. A duplicate ID is an error.
func (s *Store) Insert(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.jobs[job.ID]; taken {
		return fmt.Errorf("job already exists: %s", job.ID)
	}
	s.jobs[job.ID] = job
	return s.flush()
}

// Put inserts or replaces a job and persists.
func (s *Store) Put(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job
	return s.flush()
}

// Delete removes a job and persists. It reports whether the job existed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false, nil
	}
	delete(s.jobs, id)
	return true, s.flush()
}

func (s *Store) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	return j, ok
}

// All returns every job, oldest first.
func (s *Store) All() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Due returns the enabled jobs whose next run is at or before now.
func (s *Store) Due(now time.Time) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Job
	for _, j := range s.sorted() {
		if j.Enabled && j.NextRunAt != nil && !j.NextRunAt.After(now) {
			due = append(due, j)
		}
	}
	return due
}

// sorted is called with s.mu held.
func (s *Store) sorted() []Job {
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
	return jobs
}

// flush is called with s.mu held for writing. The file is swapped in with a
// rename so a crash mid-write cannot corrupt it. Indented output keeps the
// file hand-editable.
func (s *Store) flush() error {
	raw, err := sonic.MarshalIndent(s.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode job store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create job store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write job store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap job store: %w", err)
	}
	return nil
}
