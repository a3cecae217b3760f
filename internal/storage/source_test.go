package storage

import (
	"testing"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReassociateSourcesMovesDistinctSources(t *testing.T) {
	db := openTestDB(t)

	src, err := db.GetOrCreateWork("Show A", domain.MediaKindTVSeries, 1, "")
	if err != nil {
		t.Fatalf("create source work: %v", err)
	}
	dst, err := db.GetOrCreateWork("Show A Dup", domain.MediaKindTVSeries, 1, "")
	if err != nil {
		t.Fatalf("create target work: %v", err)
	}

	if _, err := db.LinkSource(src.ID, "bilibili", "ss1"); err != nil {
		t.Fatalf("link source: %v", err)
	}

	if err := db.ReassociateSources(src.ID, dst.ID); err != nil {
		t.Fatalf("reassociate sources: %v", err)
	}

	moved, err := db.GetSourceByProviderMediaID("bilibili", "ss1")
	if err != nil {
		t.Fatalf("get moved source: %v", err)
	}
	if moved.WorkID != dst.ID {
		t.Fatalf("expected source moved to work %d, got %d", dst.ID, moved.WorkID)
	}

	if _, err := db.GetWork(src.ID); err != domain.ErrNotFound {
		t.Fatalf("expected source work to be deleted, got err=%v", err)
	}
}

func TestReassociateSourcesSameMediaLinkedTwiceMovesSingleSource(t *testing.T) {
	db := openTestDB(t)

	src, err := db.GetOrCreateWork("Show B", domain.MediaKindTVSeries, 1, "")
	if err != nil {
		t.Fatalf("create source work: %v", err)
	}
	dst, err := db.GetOrCreateWork("Show B Dup", domain.MediaKindTVSeries, 1, "")
	if err != nil {
		t.Fatalf("create target work: %v", err)
	}

	dupSource, err := db.LinkSource(src.ID, "bilibili", "ss1")
	if err != nil {
		t.Fatalf("link source under source work: %v", err)
	}
	// (provider, provider_media_id) is globally unique, so the second link
	// is ignored and returns the existing source on the source work.
	second, err := db.LinkSource(dst.ID, "bilibili", "ss1")
	if err != nil {
		t.Fatalf("link same media under target work: %v", err)
	}

	if err := db.ReassociateSources(src.ID, dst.ID); err != nil {
		t.Fatalf("reassociate sources: %v", err)
	}

	if second.ID != dupSource.ID || second.WorkID != src.ID {
		t.Fatalf("expected second link to return source %d on work %d, got %+v", dupSource.ID, src.ID, second)
	}

	remaining, err := db.GetSourceByProviderMediaID("bilibili", "ss1")
	if err != nil {
		t.Fatalf("get surviving source: %v", err)
	}
	if remaining.ID != dupSource.ID || remaining.WorkID != dst.ID {
		t.Fatalf("expected source %d moved to target work %d, got %+v", dupSource.ID, dst.ID, remaining)
	}

	if _, err := db.GetWork(src.ID); err != domain.ErrNotFound {
		t.Fatalf("expected source work to be deleted, got err=%v", err)
	}
}

func TestReassociateSourcesUnknownWorkFails(t *testing.T) {
	db := openTestDB(t)

	dst, err := db.GetOrCreateWork("Show C", domain.MediaKindTVSeries, 1, "")
	if err != nil {
		t.Fatalf("create target work: %v", err)
	}

	if err := db.ReassociateSources(9999, dst.ID); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown source work, got %v", err)
	}
}
