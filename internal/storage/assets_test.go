package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestNewCreatesThumbnailsDir(t *testing.T) {
	store := newTestStore(t)
	info, err := os.Stat(store.ThumbnailsDir())
	if err != nil || !info.IsDir() {
		t.Fatalf("thumbnails dir missing: %v", err)
	}
}

func TestGenerateName(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.UnixMilli(1700000000123) }

	name := store.GenerateName("My Clip.MP4")
	if !regexp.MustCompile(`^1700000000123-\d{9}\.mp4$`).MatchString(name) {
		t.Fatalf("unexpected generated name %q", name)
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n := store.GenerateName("a.mov")
		if seen[n] {
			t.Fatalf("duplicate name %q", n)
		}
		seen[n] = true
	}
}

func TestSaveAndRemove(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save(strings.NewReader("video-bytes"), "clip.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(store.Path(name))
	if err != nil {
		t.Fatalf("read saved asset: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	entries, _ := os.ReadDir(store.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			t.Fatalf("temp file left behind: %q", e.Name())
		}
	}

	removed, err := store.Remove(name)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = store.Remove(name)
	if err != nil || removed {
		t.Fatalf("second Remove should be a no-op, got %v, %v", removed, err)
	}
}

func TestPathStaysInsideStore(t *testing.T) {
	store := newTestStore(t)
	if got := store.Path("../../etc/passwd"); filepath.Dir(got) != store.Root() {
		t.Fatalf("path escaped the store: %q", got)
	}
	if got := store.ThumbnailPath("../x.jpg"); filepath.Dir(got) != store.ThumbnailsDir() {
		t.Fatalf("thumbnail path escaped: %q", got)
	}
}

func TestListAndCleanup(t *testing.T) {
	store := newTestStore(t)

	video, err := store.Save(strings.NewReader("v"), "a.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(store.ThumbnailPath("thumb_a.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatalf("write thumbnail: %v", err)
	}

	assets, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %+v", assets)
	}
	var thumbs int
	for _, a := range assets {
		if a.Thumbnail {
			thumbs++
		}
	}
	if thumbs != 1 {
		t.Fatalf("expected one thumbnail, got %d", thumbs)
	}

	cleanup := NewCleanup(store, nil)
	cleanup.AddVideo(video)
	cleanup.AddThumbnail("thumb_a.jpg")
	cleanup.AddThumbnail("thumb_missing.jpg")
	if n := cleanup.Run(); n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}
	assets, _ = store.List()
	if len(assets) != 0 {
		t.Fatalf("expected empty store, got %+v", assets)
	}
}

func TestCleanupRelease(t *testing.T) {
	store := newTestStore(t)
	video, err := store.Save(strings.NewReader("v"), "a.mp4")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	cleanup := NewCleanup(store, nil)
	cleanup.AddVideo(video)
	cleanup.Release()
	if n := cleanup.Run(); n != 0 {
		t.Fatalf("released cleanup removed %d files", n)
	}
	if !fileExists(store.Path(video)) {
		t.Fatalf("released asset was removed")
	}
}
