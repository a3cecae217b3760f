package scheduler

import (
	"context"
	"sync"
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

func TestRegisterPersistsScheduledTaskAndNextRun(t *testing.T) {
	db := newTestDB(t)
	s, err := New(db, "Asia/Shanghai")
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	err = s.Register("tmdb-auto-map", "tmdb_auto_map", "0 */30 * * * *", true, func(ctx context.Context, progress domain.ProgressCallback) error {
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tasks, err := db.ListScheduledTasks()
	if err != nil {
		t.Fatalf("list scheduled tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Name != "tmdb-auto-map" || !tasks[0].Enabled {
		t.Fatalf("unexpected task row: %+v", tasks[0])
	}
	if tasks[0].NextRun == nil {
		t.Fatal("expected next_run to be populated on registration")
	}
}

func TestDisabledJobIsRegisteredButNeverFires(t *testing.T) {
	db := newTestDB(t)
	s, err := New(db, "Asia/Shanghai")
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	var ran int32
	err = s.Register("paused-job", "tmdb_auto_map", "0 * * * * *", false, func(ctx context.Context, progress domain.ProgressCallback) error {
		ran++
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if ran != 0 {
		t.Fatalf("expected disabled job never to fire, ran=%d", ran)
	}

	tasks, err := db.ListScheduledTasks()
	if err != nil {
		t.Fatalf("list scheduled tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Enabled {
		t.Fatalf("expected disabled task row still present, got %+v", tasks)
	}
}

func TestRunNowFiresJobImmediately(t *testing.T) {
	db := newTestDB(t)
	s, err := New(db, "Asia/Shanghai")
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	var mu sync.Mutex
	ranCount := 0
	done := make(chan struct{}, 1)

	err = s.Register("once-a-year-job", "tmdb_auto_map", "0 0 0 1 1 *", true, func(ctx context.Context, progress domain.ProgressCallback) error {
		mu.Lock()
		ranCount++
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	if err := s.RunNow("once-a-year-job"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected RunNow to fire the job immediately")
	}

	mu.Lock()
	defer mu.Unlock()
	if ranCount != 1 {
		t.Fatalf("expected exactly 1 run, got %d", ranCount)
	}
}

func TestRunNowUnknownJobReturnsError(t *testing.T) {
	db := newTestDB(t)
	s, err := New(db, "Asia/Shanghai")
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if err := s.RunNow("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown job name")
	}
}
