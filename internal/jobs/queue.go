package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"trackview/internal/logger"
)

const component = "jobs"

// State is the lifecycle stage of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Done reports whether the state is terminal.
func (s State) Done() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCanceled
}

// Status is a point-in-time view of a job.
type Status struct {
	ID        string    `json:"id"`
	Request   Request   `json:"request"`
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	Submitted time.Time `json:"submitted"`
	Started   time.Time `json:"started,omitempty"`
	Finished  time.Time `json:"finished,omitempty"`
}

var (
	// ErrUnknownJob is returned for IDs the queue never issued.
	ErrUnknownJob = errors.New("unknown job")

	// ErrQueueClosed is returned by Submit after Shutdown.
	ErrQueueClosed = errors.New("job queue is shut down")
)

// Runner performs one job. It must return when ctx is canceled.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req Request) error

func (f RunnerFunc) Run(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Queue runs submitted jobs on a bounded worker pool.
type Queue struct {
	mu     sync.RWMutex
	jobs   map[string]*Status
	seq    int
	closed bool

	runner     Runner
	log        logger.Logger
	workerPool chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a queue that runs at most workers jobs at once.
func NewQueue(runner Runner, workers int, log logger.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	pool := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		pool <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		jobs:       make(map[string]*Status),
		runner:     runner,
		log:        log,
		workerPool: pool,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit validates req and schedules it. It returns the job ID.
func (q *Queue) Submit(req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	q.seq++
	id := fmt.Sprintf("job-%d", q.seq)
	q.jobs[id] = &Status{ID: id, Request: req, State: StateQueued, Submitted: time.Now()}
	q.wg.Add(1)
	q.mu.Unlock()

	q.log.Info(component, "job submitted", map[string]interface{}{
		"id":           id,
		"kind":         string(req.Kind),
		"position_min": req.PositionMin,
		"position_max": req.PositionMax,
	})

	go q.run(id, req)
	return id, nil
}

func (q *Queue) run(id string, req Request) {
	defer q.wg.Done()

	select {
	case <-q.workerPool:
		defer func() { q.workerPool <- struct{}{} }()
	case <-q.ctx.Done():
		q.finish(id, q.ctx.Err())
		return
	}

	q.update(id, func(s *Status) {
		s.State = StateRunning
		s.Started = time.Now()
	})

	err := q.safeRun(req)
	q.finish(id, err)
}

func (q *Queue) safeRun(req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.runner.Run(q.ctx, req)
}

func (q *Queue) finish(id string, err error) {
	q.update(id, func(s *Status) {
		s.Finished = time.Now()
		switch {
		case err == nil:
			s.State = StateSucceeded
			s.Message = ""
		case errors.Is(err, context.Canceled):
			s.State = StateCanceled
			s.Message = err.Error()
		default:
			s.State = StateFailed
			s.Message = err.Error()
		}
	})

	if err != nil {
		q.log.Error(component, err, map[string]interface{}{"id": id})
		return
	}
	q.log.Info(component, "job finished", map[string]interface{}{"id": id})
}

func (q *Queue) update(id string, fn func(*Status)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.jobs[id]; ok {
		fn(s)
	}
}

// Status returns a copy of the job's status.
func (q *Queue) Status(id string) (Status, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	s, ok := q.jobs[id]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return *s, nil
}

// List returns every job in submission order.
func (q *Queue) List() []Status {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Status, 0, len(q.jobs))
	for _, s := range q.jobs {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].Submitted.Before(out[j].Submitted)
		}
		return jobSeq(out[i].ID) < jobSeq(out[j].ID)
	})
	return out
}

func jobSeq(id string) int {
	var n int
	fmt.Sscanf(id, "job-%d", &n)
	return n
}

// Wait polls until the job reaches a terminal state or ctx ends.
func (q *Queue) Wait(ctx context.Context, id string, interval time.Duration) (Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s, err := q.Status(id)
		if err != nil {
			return Status{}, err
		}
		if s.State.Done() {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown cancels running jobs and waits for them to return.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}
