package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/voyager/models"
)

// ErrAlreadyExists is returned by Create for a duplicate job id
var ErrAlreadyExists = errors.New("job already exists")

// ErrInvalidTransition is returned for a status change the state machine
// does not allow
var ErrInvalidTransition = errors.New("invalid job status transition")

// Registry is the shared store of job state. All operations are atomic;
// the backing map is never exposed. The dispatcher guarantees a single
// writer per job id, readers may poll concurrently.
type Registry interface {
	Create(ctx context.Context, id string, kind models.JobKind) error
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result json.RawMessage) error
	Fail(ctx context.Context, id string, cause string) error
	Get(ctx context.Context, id string) (models.Job, error)
}

// validTransition is the job status state machine: Pending -> Processing,
// Processing -> Completed/Failed, plus Pending -> Failed for jobs whose
// dispatch fell over before a worker ran. Terminal states are frozen.
func validTransition(from, to models.JobStatus) bool {
	switch from {
	case models.JobStatusPending:
		return to == models.JobStatusProcessing || to == models.JobStatusFailed
	case models.JobStatusProcessing:
		return to == models.JobStatusCompleted || to == models.JobStatusFailed
	}
	return false
}

// MemoryRegistry is the in-process Registry. Terminal entries are evicted
// by a janitor after a TTL; without it the map grows for the lifetime of
// the process.
type MemoryRegistry struct {
	mu     sync.RWMutex
	jobs   map[string]*models.Job
	ttl    time.Duration
	logger *log.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryRegistry creates an in-memory registry. ttl bounds how long
// terminal entries are kept once the janitor runs.
func NewMemoryRegistry(ttl time.Duration, logger *log.Logger) *MemoryRegistry {
	if logger == nil {
		logger = log.New(log.Writer(), "[REGISTRY] ", log.LstdFlags)
	}
	return &MemoryRegistry{
		jobs:   make(map[string]*models.Job),
		ttl:    ttl,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

func (r *MemoryRegistry) Create(_ context.Context, id string, kind models.JobKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadyExists)
	}
	now := time.Now()
	r.jobs[id] = &models.Job{
		ID:        id,
		Kind:      kind,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (r *MemoryRegistry) MarkProcessing(_ context.Context, id string) error {
	return r.transition(id, models.JobStatusProcessing, nil, "")
}

func (r *MemoryRegistry) Complete(_ context.Context, id string, result json.RawMessage) error {
	return r.transition(id, models.JobStatusCompleted, result, "")
}

func (r *MemoryRegistry) Fail(_ context.Context, id string, cause string) error {
	if cause == "" {
		cause = "unknown error"
	}
	return r.transition(id, models.JobStatusFailed, nil, cause)
}

// transition applies one state change. Status and payload are written
// together under the same guard so readers never observe a terminal status
// without its result or error.
func (r *MemoryRegistry) transition(id string, to models.JobStatus, result json.RawMessage, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, models.ErrJobNotFound)
	}
	if !validTransition(j.Status, to) {
		return fmt.Errorf("%s -> %s: %w", j.Status, to, ErrInvalidTransition)
	}
	j.Status = to
	j.Result = result
	j.Error = cause
	j.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("%s: %w", id, models.ErrJobNotFound)
	}
	out := *j
	if j.Result != nil {
		out.Result = append(json.RawMessage(nil), j.Result...)
	}
	return out, nil
}

// StartJanitor runs the eviction sweep on a cron schedule until Close.
func (r *MemoryRegistry) StartJanitor(cronSpec string) error {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return fmt.Errorf("registry eviction cron %q: %w", cronSpec, err)
	}
	go func() {
		for {
			next := expr.Next(time.Now())
			if next.IsZero() {
				return
			}
			select {
			case <-r.stop:
				return
			case <-time.After(time.Until(next)):
				if n := r.Sweep(time.Now()); n > 0 {
					r.logger.Printf("evicted %d expired jobs", n)
				}
			}
		}
	}()
	return nil
}

// Sweep removes terminal entries untouched for longer than the TTL and
// returns how many were dropped.
func (r *MemoryRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id, j := range r.jobs {
		if j.Status.Terminal() && now.Sub(j.UpdatedAt) > r.ttl {
			delete(r.jobs, id)
			n++
		}
	}
	return n
}

// Close stops the janitor. Safe to call more than once.
func (r *MemoryRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}
