package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/venturedesk/internal/adapters/mq/queue"
	worker "github.com/okian/venturedesk/internal/adapters/mq/worker"
	model "github.com/okian/venturedesk/internal/domain/model"
	"github.com/okian/venturedesk/internal/leaderboard"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	updates chan worker.Update
}

func newMockQueue() *mockQueue {
	return &mockQueue{updates: make(chan worker.Update, 10)}
}

func (mq *mockQueue) Dequeue(_ context.Context) <-chan worker.Update {
	return mq.updates
}

func (mq *mockQueue) Close() error {
	close(mq.updates)
	return nil
}

func (mq *mockQueue) add(u worker.Update) {
	mq.updates <- u
}

type mockDeriver struct {
	mu      sync.RWMutex
	records map[string]leaderboard.Record
	errs    map[string]error
	delay   time.Duration
}

func newMockDeriver() *mockDeriver {
	return &mockDeriver{
		records: make(map[string]leaderboard.Record),
		errs:    make(map[string]error),
	}
}

func (md *mockDeriver) Derive(ctx context.Context, teamID string) (leaderboard.Record, error) {
	md.mu.RLock()
	delay := md.delay
	md.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return leaderboard.Record{}, ctx.Err()
		}
	}

	md.mu.RLock()
	defer md.mu.RUnlock()
	if err, exists := md.errs[teamID]; exists {
		return leaderboard.Record{}, err
	}
	if rec, exists := md.records[teamID]; exists {
		return rec, nil
	}
	return leaderboard.Record{Name: teamID, Status: model.StatusPlaying, HasRounds: true}, nil
}

func (md *mockDeriver) setRecord(teamID string, rec leaderboard.Record) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.records[teamID] = rec
}

func (md *mockDeriver) setError(teamID string, err error) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.errs[teamID] = err
}

func (md *mockDeriver) setDelay(d time.Duration) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.delay = d
}

type applyCall struct {
	teamID string
	gen    uint64
	rec    leaderboard.Record
}

type failCall struct {
	teamID string
	gen    uint64
	err    error
}

type mockApplier struct {
	mu      sync.Mutex
	applies []applyCall
	fails   []failCall
}

func (ma *mockApplier) Apply(_ context.Context, teamID string, gen uint64, rec leaderboard.Record) bool {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.applies = append(ma.applies, applyCall{teamID: teamID, gen: gen, rec: rec})
	return true
}

func (ma *mockApplier) MarkFailed(_ context.Context, teamID string, gen uint64, err error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.fails = append(ma.fails, failCall{teamID: teamID, gen: gen, err: err})
}

func (ma *mockApplier) applyCount() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return len(ma.applies)
}

func (ma *mockApplier) failCount() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return len(ma.fails)
}

type mockTracker struct {
	mu      sync.Mutex
	cleared []string
}

func (mt *mockTracker) Clear(_ context.Context, teamID string) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.cleared = append(mt.cleared, teamID)
}

func (mt *mockTracker) clearedCount() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return len(mt.cleared)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerProcessing(t *testing.T) {
	convey.Convey("Given a worker over a mock pipeline", t, func() {
		mq := newMockQueue()
		deriver := newMockDeriver()
		applier := &mockApplier{}
		tracker := &mockTracker{}

		w := worker.NewInMemoryWorker(mq, deriver, applier, tracker, worker.WithName("test-worker"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a refresh request arrives", func() {
			deriver.setRecord("team-1", leaderboard.Record{Name: "Alpha", HasRounds: true})
			mq.add(model.TeamUpdate{TeamID: "team-1", Generation: 7})

			convey.Convey("Then the derived record is applied with its generation", func() {
				waitFor(t, func() bool { return applier.applyCount() == 1 })
				applier.mu.Lock()
				call := applier.applies[0]
				applier.mu.Unlock()
				convey.So(call.teamID, convey.ShouldEqual, "team-1")
				convey.So(call.gen, convey.ShouldEqual, 7)
				convey.So(call.rec.Name, convey.ShouldEqual, "Alpha")
			})

			convey.Convey("And the pending mark is released", func() {
				waitFor(t, func() bool { return tracker.clearedCount() >= 1 })
				convey.So(tracker.cleared[0], convey.ShouldEqual, "team-1")
			})
		})

		convey.Convey("When deriving fails", func() {
			deriver.setError("team-2", errors.New("store unavailable"))
			mq.add(model.TeamUpdate{TeamID: "team-2", Generation: 1})

			convey.Convey("Then the failure is reported instead of applied", func() {
				waitFor(t, func() bool { return applier.failCount() == 1 })
				convey.So(applier.applyCount(), convey.ShouldEqual, 0)
				applier.mu.Lock()
				fail := applier.fails[0]
				applier.mu.Unlock()
				convey.So(fail.teamID, convey.ShouldEqual, "team-2")
			})
		})

		convey.Convey("When the fetch overruns its window", func() {
			slowQueue := newMockQueue()
			deriver.setDelay(200 * time.Millisecond)
			slow := worker.NewInMemoryWorker(slowQueue, deriver, applier, tracker,
				worker.WithFetchTimeout(20*time.Millisecond))
			slowCtx, slowCancel := context.WithCancel(context.Background())
			defer slowCancel()
			go slow.Run(slowCtx)

			slowQueue.add(model.TeamUpdate{TeamID: "team-3", Generation: 1})

			convey.Convey("Then the team is marked failed with a deadline error", func() {
				waitFor(t, func() bool { return applier.failCount() == 1 })
				applier.mu.Lock()
				fail := applier.fails[0]
				applier.mu.Unlock()
				convey.So(errors.Is(fail.err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		w := worker.NewInMemoryWorker(mq, newMockDeriver(), &mockApplier{}, &mockTracker{})
		go w.Run(context.Background())

		convey.Convey("Then shutdown completes promptly", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		deriver := newMockDeriver()
		applier := &mockApplier{}
		tracker := &mockTracker{}

		pool := worker.NewPool(4, q, deriver, applier, tracker)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many refresh requests are enqueued", func() {
			for i := 0; i < 20; i++ {
				ok := q.Enqueue(ctx, model.TeamUpdate{TeamID: "team", Generation: uint64(i)})
				convey.So(ok, convey.ShouldBeTrue)
			}

			convey.Convey("Then every request is processed", func() {
				waitFor(t, func() bool { return applier.applyCount() == 20 })
				convey.So(tracker.clearedCount(), convey.ShouldEqual, 20)
			})

			convey.Convey("And shutdown drains the queue", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}
