package coach

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/api/job"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/metrics"
)

// Job kinds.
const (
	KindGrade    = "grade"
	KindInsights = "insights"
)

// Task is the work of one async coach request.
type Task func(ctx context.Context) (any, error)

// Runner executes coach tasks as async jobs. A newer request of the same
// (user, kind) cancels the older one, whose job ends as SUPERSEDED.
type Runner struct {
	tracker *Tracker
	jobs    *job.Store
	metrics *metrics.Registry
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner creates a runner. timeout <= 0 disables the per-task deadline.
func NewRunner(jobs *job.Store, timeout time.Duration, reg *metrics.Registry, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		tracker: NewTracker(),
		jobs:    jobs,
		metrics: reg,
		logger:  logger,
		timeout: timeout,
	}
}

// Jobs exposes the underlying job store.
func (r *Runner) Jobs() *job.Store { return r.jobs }

// Submit starts task in the background and returns its pending job.
func (r *Runner) Submit(user, kind string, task Task) job.Job {
	j := r.jobs.Create(kind, user)
	ctx, tok := r.tracker.Begin(context.Background(), user, kind)
	r.metrics.SetJobsActive(kind, r.jobs.Active(kind))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, j.ID, tok, task)
	}()
	return j
}

func (r *Runner) run(ctx context.Context, id string, tok Token, task Task) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.jobs.Update(id, func(j *job.Job) {
		j.Status = job.StatusRunning
		j.Progress = 10
	})

	start := time.Now()
	result, err := task(ctx)
	current := r.tracker.Finish(tok)

	status := "complete"
	r.jobs.Update(id, func(j *job.Job) {
		switch {
		case !current:
			status = "superseded"
			j.Status = job.StatusFailed
			j.Error = core.WrapError(core.ErrSuperseded, nil)
		case err != nil:
			status = "failed"
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		default:
			j.Status = job.StatusComplete
			j.Progress = 100
			j.Result = result
		}
	})

	r.metrics.RecordCoach(tok.Kind, status, time.Since(start).Seconds())
	r.metrics.SetJobsActive(tok.Kind, r.jobs.Active(tok.Kind))
	if err != nil && current {
		r.logger.Warn("coach job failed",
			zap.String("job", id),
			zap.String("kind", tok.Kind),
			zap.String("user", tok.User),
			zap.Error(err))
		return
	}
	r.logger.Info("coach job finished",
		zap.String("job", id),
		zap.String("kind", tok.Kind),
		zap.String("status", status))
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func asCoreError(err error) *core.Error {
	if ce, ok := core.AsError(err); ok {
		return ce
	}
	return core.WrapError(core.ErrLLMFailed, err)
}
