// Package worker defines worker contracts for asynchronous team refreshes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/venturedesk/internal/domain/model"
	"github.com/okian/venturedesk/internal/leaderboard"
	"github.com/okian/venturedesk/pkg/logger"
	"github.com/okian/venturedesk/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultFetchTimeout = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Update abstracts what workers read off the queue.
// Using the model.TeamUpdate type for consistency.
type Update = model.TeamUpdate

// Deriver recomputes one team's leaderboard record from authoritative state.
type Deriver interface {
	Derive(ctx context.Context, teamID string) (leaderboard.Record, error)
}

// Applier receives derived records and failure reports.
type Applier interface {
	Apply(ctx context.Context, teamID string, gen uint64, rec leaderboard.Record) bool
	MarkFailed(ctx context.Context, teamID string, gen uint64, err error)
}

// Tracker releases the per-team pending mark once a refresh finishes.
type Tracker interface {
	Clear(ctx context.Context, teamID string)
}

// Queue defines how workers receive updates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Update
}

// Worker processes refresh requests using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining updates before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing refresh requests.
type InMemoryWorker struct {
	queue   Queue
	deriver Deriver
	applier Applier
	tracker Tracker
	name    string

	// Bounded window for one team's data fetch. A fetch that overruns it
	// reports failure and the team keeps its last-known record.
	fetchTimeout time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, deriver Deriver, applier Applier, tracker Tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        queue,
		deriver:      deriver,
		applier:      applier,
		tracker:      tracker,
		name:         "worker",
		fetchTimeout: defaultFetchTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	updates := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := w.processUpdate(ctx, u); err != nil {
				w.logger.Error(ctx, "error processing update", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processUpdate handles a single refresh request.
func (w *InMemoryWorker) processUpdate(ctx context.Context, u Update) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	// Release the pending mark before reading state. A trigger arriving
	// while the fetch runs re-marks and queues a fresh refresh instead of
	// being swallowed.
	w.tracker.Clear(ctx, u.TeamID)

	fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	rec, err := w.deriver.Derive(fetchCtx, u.TeamID)
	cancel()

	if err != nil {
		metrics.RecordRefreshFailure()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "derive_error")
		w.applier.MarkFailed(ctx, u.TeamID, u.Generation, err)
		w.logger.Error(ctx, "refresh failed for team",
			logger.String("team_id", u.TeamID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to refresh team %s: %w", u.TeamID, err)
	}

	if w.applier.Apply(ctx, u.TeamID, u.Generation, rec) {
		metrics.RecordTeamRefreshed()
		metrics.RecordRefreshLatency(float64(time.Since(start).Milliseconds()))
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, deriver Deriver, applier Applier, tracker Tracker, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, deriver, applier, tracker, workerOpts...)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the queue first so workers drain what is already buffered.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
