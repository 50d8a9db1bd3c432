package automation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
	"go.uber.org/zap"
)

// Executor starts a job. The default runs each job on its own goroutine.
type Executor func(job func())

// Poster hands a completion callback back to the timeline.
type Poster func(fn func())

// Worker runs automation off the timeline and reports each outcome back
// through the poster. Completion callbacks never run on the worker's
// goroutine.
type Worker struct {
	ctx    context.Context
	svc    Service
	post   Poster
	exec   Executor
	wg     sync.WaitGroup
	shakes atomic.Int32
	drags  atomic.Int32
	logger *zap.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithExecutor replaces how jobs are started.
func WithExecutor(e Executor) WorkerOption {
	return func(w *Worker) { w.exec = e }
}

// NewWorker creates a worker. Jobs inherit ctx, so cancelling it interrupts
// running pranks (which still restore what they moved).
func NewWorker(ctx context.Context, svc Service, post Poster, logger *zap.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{ctx: ctx, svc: svc, post: post, logger: logger}
	w.exec = func(job func()) { go job() }
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Backend names the service in use.
func (w *Worker) Backend() string { return w.svc.Name() }

// Shake starts a shake of duration d. done receives the result on the
// timeline.
func (w *Worker) Shake(d time.Duration, done func(error)) {
	w.shakes.Add(1)
	w.start("shake", func() error {
		defer w.shakes.Add(-1)
		return w.svc.ShakeEnvironment(w.ctx, d)
	}, done)
}

// Drag starts dragging the icon at at by offset. Drags may overlap.
func (w *Worker) Drag(at, offset geom.Point, done func(error)) {
	w.drags.Add(1)
	w.start("drag", func() error {
		defer w.drags.Add(-1)
		return w.svc.DragIconNear(w.ctx, at, offset)
	}, done)
}

// InFlight returns the number of running shakes and drags.
func (w *Worker) InFlight() (shakes, drags int) {
	return int(w.shakes.Load()), int(w.drags.Load())
}

// Wait blocks until every started job has finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) start(kind string, job func() error, done func(error)) {
	w.wg.Add(1)
	w.exec(func() {
		defer w.wg.Done()
		err := job()
		if err != nil {
			w.logger.Warn("automation failed",
				zap.String("job", kind), zap.String("backend", w.svc.Name()), zap.Error(err))
		} else {
			w.logger.Debug("automation finished", zap.String("job", kind))
		}
		if done != nil {
			w.post(func() { done(err) })
		}
	})
}
