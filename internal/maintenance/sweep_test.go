package maintenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"movie-meme-api/internal/storage"

	"github.com/gofrs/flock"
)

type staticRefs []string

func (r staticRefs) ReferencedLocators(context.Context) ([]string, error) { return r, nil }

type brokenRefs struct{}

func (brokenRefs) ReferencedLocators(context.Context) ([]string, error) {
	return nil, errors.New("database is locked")
}

var (
	now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	old = now.Add(-2 * time.Hour)
)

func writeAsset(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return s
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSweepRemovesOnlyOldOrphans(t *testing.T) {
	store := newStore(t)
	writeAsset(t, store.Path("kept.mp4"), old)
	writeAsset(t, store.ThumbnailPath("thumb_kept.jpg"), old)
	writeAsset(t, store.Path("orphan.mp4"), old)
	writeAsset(t, store.ThumbnailPath("thumb_orphan.jpg"), old)
	writeAsset(t, store.Path("fresh.mp4"), now.Add(-time.Minute))
	writeAsset(t, store.Path(".x.mp4.tmp-123"), old)
	// A thumbnail-named reference must not protect a top-level file of the same name.
	writeAsset(t, store.Path("thumb_kept.jpg"), old)

	refs := staticRefs{
		"http://h/uploads/kept.mp4",
		"http://h/uploads/thumbnails/thumb_kept.jpg",
	}
	sweeper := NewSweeper(store, refs, nil)
	report, err := sweeper.Sweep(context.Background(), Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if report.Scanned != 7 || report.Referenced != 2 || report.TooYoung != 1 || len(report.Removed) != 4 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Bytes != 16 {
		t.Fatalf("expected 16 bytes removed, got %d", report.Bytes)
	}
	for _, p := range []string{store.Path("kept.mp4"), store.ThumbnailPath("thumb_kept.jpg"), store.Path("fresh.mp4")} {
		if !exists(p) {
			t.Fatalf("%s should have been kept", p)
		}
	}
	for _, p := range []string{store.Path("orphan.mp4"), store.ThumbnailPath("thumb_orphan.jpg"), store.Path(".x.mp4.tmp-123"), store.Path("thumb_kept.jpg")} {
		if exists(p) {
			t.Fatalf("%s should have been removed", p)
		}
	}
}

func TestSweepDryRunKeepsFiles(t *testing.T) {
	store := newStore(t)
	writeAsset(t, store.Path("orphan.mp4"), old)

	report, err := NewSweeper(store, staticRefs{}, nil).Sweep(context.Background(), Options{
		DryRun: true,
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !report.DryRun || len(report.Removed) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !exists(store.Path("orphan.mp4")) {
		t.Fatalf("dry run deleted a file")
	}
}

func TestSweepRefusesWhileLocked(t *testing.T) {
	store := newStore(t)
	lock := flock.New(filepath.Join(store.Root(), LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer lock.Unlock()

	if _, err := NewSweeper(store, staticRefs{}, nil).Sweep(context.Background(), Options{}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestSweepReferenceFailureRemovesNothing(t *testing.T) {
	store := newStore(t)
	writeAsset(t, store.Path("orphan.mp4"), old)

	if _, err := NewSweeper(store, brokenRefs{}, nil).Sweep(context.Background(), Options{Now: func() time.Time { return now }}); err == nil {
		t.Fatalf("expected error")
	}
	if !exists(store.Path("orphan.mp4")) {
		t.Fatalf("file removed despite reference failure")
	}
}
