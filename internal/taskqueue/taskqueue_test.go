package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSubmitRunsTaskToCompletion(t *testing.T) {
	db := newTestDB(t)
	e := New(db, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	ran := make(chan struct{})
	taskID, err := e.Submit("import test show", func(ctx context.Context, progress domain.ProgressCallback) error {
		progress(50, "halfway")
		close(ran)
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	// give the worker a moment to persist the completed status
	deadline := time.Now().Add(2 * time.Second)
	for {
		th, err := db.GetTaskHistory(taskID)
		if err != nil {
			t.Fatalf("get task history: %v", err)
		}
		if th.Status == domain.TaskStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never reached completed status, got %q", th.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitFailingTaskRecordsFailedStatus(t *testing.T) {
	db := newTestDB(t)
	e := New(db, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	taskID, err := e.Submit("broken import", func(ctx context.Context, progress domain.ProgressCallback) error {
		return errors.New("provider unreachable")
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		th, err := db.GetTaskHistory(taskID)
		if err != nil {
			t.Fatalf("get task history: %v", err)
		}
		if th.Status == domain.TaskStatusFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never reached failed status, got %q", th.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	db := newTestDB(t)
	e := New(db, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	taskID, err := e.Submit("slow import", func(ctx context.Context, progress domain.ProgressCallback) error {
		close(started)
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	<-started
	th, err := db.GetTaskHistory(taskID)
	if err != nil {
		t.Fatalf("get task history: %v", err)
	}
	if th.Status != domain.TaskStatusRunning {
		t.Fatalf("expected running while in flight, got %q", th.Status)
	}
	close(release)
}

func TestProgressCallbackIsSafeFromOtherGoroutines(t *testing.T) {
	db := newTestDB(t)
	e := New(db, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	done := make(chan struct{})
	_, err := e.Submit("fan out import", func(ctx context.Context, progress domain.ProgressCallback) error {
		for i := 0; i < 5; i++ {
			go progress(i*20, "from another goroutine")
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestShutdownLetsInFlightTaskFinish(t *testing.T) {
	db := newTestDB(t)
	e := New(db, 4)

	ctx := context.Background()
	go e.Run(ctx)

	finished := make(chan struct{})
	_, err := e.Submit("final import", func(ctx context.Context, progress domain.ProgressCallback) error {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	e.Shutdown()

	select {
	case <-finished:
	default:
		t.Fatal("expected in-flight task to finish before Shutdown returned")
	}
}
