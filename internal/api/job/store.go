// Package job keeps the in-memory state of asynchronous coach requests
// so clients can poll for grades and insights.
package job

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/zella/internal/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job is one coach request. Result holds the grade or insights payload
// once Status is complete; Error carries the failure code otherwise.
type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Owner     string      `json:"owner"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Result    any         `json:"result,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DefaultMaxJobs bounds a store created with a non-positive size.
const DefaultMaxJobs = 100

// Store holds at most maxSize jobs. When full, the oldest finished job
// makes room first; an unfinished one is only evicted when nothing has
// finished.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a store. Finished jobs older than ttl are dropped on
// the next Create; zero ttl keeps them until evicted by size.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxJobs
	}
	return &Store{
		jobs:    make(map[string]*Job, maxSize),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create registers a pending job of kind for owner and returns a copy.
func (s *Store) Create(kind, owner string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expire()
	if len(s.order) >= s.maxSize {
		s.evict()
	}

	now := s.now()
	j := &Job{
		ID:        "job_" + uuid.NewString(),
		Type:      kind,
		Owner:     owner,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	return *j
}

// expire drops finished jobs past their ttl. Caller holds the lock.
func (s *Store) expire() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	s.drop(func(j *Job) bool { return j.Status.Done() && j.UpdatedAt.Before(cutoff) }, -1)
}

// evict removes one job, preferring the oldest finished one. Caller
// holds the lock.
func (s *Store) evict() {
	if s.drop(func(j *Job) bool { return j.Status.Done() }, 1) == 0 && len(s.order) > 0 {
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
}

// drop removes up to limit jobs matching fn in creation order; a
// negative limit removes all of them.
func (s *Store) drop(fn func(*Job) bool, limit int) int {
	n := 0
	kept := s.order[:0]
	for _, id := range s.order {
		if (limit < 0 || n < limit) && fn(s.jobs[id]) {
			delete(s.jobs, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return n
}

func notFound(id string) error {
	return core.Errorf(core.ErrJobNotFound, "job %s", id)
}

// Get returns a copy of the job.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, notFound(id)
	}
	out := *j
	return &out, nil
}

// Update applies fn to the job under the store lock.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return notFound(id)
	}
	fn(j)
	j.UpdatedAt = s.now()
	return nil
}

// List returns every job in creation order.
func (s *Store) List() []Job {
	return s.ListOwner("")
}

// ListOwner returns the jobs of owner, newest first. An empty owner
// selects all jobs in creation order.
func (s *Store) ListOwner(owner string) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.order))
	if owner == "" {
		for _, id := range s.order {
			out = append(out, *s.jobs[id])
		}
		return out
	}
	for i := len(s.order) - 1; i >= 0; i-- {
		if j := s.jobs[s.order[i]]; j.Owner == owner {
			out = append(out, *j)
		}
	}
	return out
}

// Active counts unfinished jobs of kind.
func (s *Store) Active(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, j := range s.jobs {
		if j.Type == kind && !j.Status.Done() {
			n++
		}
	}
	return n
}
