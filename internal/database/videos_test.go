package database

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"movie-meme-api/internal/models"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := Open(filepath.Join(t.TempDir(), "catalog", "memes.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })

	// Deterministic, strictly increasing creation times.
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	catalog.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return catalog
}

func mustCreate(t *testing.T, c *Catalog, title, movie string, tags ...string) models.Video {
	t.Helper()
	v := models.NewVideo(title, movie, "", tags)
	v.FilePath = "http://localhost/uploads/" + title + ".mp4"
	if err := c.Create(context.Background(), v); err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return *v
}

func hasTag(v models.Video, tag string) bool {
	for _, t := range v.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func titles(videos []models.Video) []string {
	out := make([]string, len(videos))
	for i, v := range videos {
		out[i] = v.Title
	}
	return out
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	c := openTestCatalog(t)
	v := mustCreate(t, c, "Hello there", "Star Wars", "classic", "greeting")

	if !ValidID(v.ID) {
		t.Fatalf("expected a valid id, got %q", v.ID)
	}
	if v.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}

	got, err := c.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(*got, v) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *got, v)
	}
}

func TestCreateRejectsInvalidRecords(t *testing.T) {
	c := openTestCatalog(t)
	cases := []*models.Video{
		{Title: "", FilePath: "f", Tags: []string{"a"}},
		{Title: "t", FilePath: "", Tags: []string{"a"}},
		{Title: "t", FilePath: "f", Tags: nil},
	}
	for _, v := range cases {
		if err := c.Create(context.Background(), v); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("expected ErrInvalidRecord for %+v, got %v", v, err)
		}
	}
	if n, _ := c.Count(context.Background()); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}
}

func TestListNewestFirstAndStable(t *testing.T) {
	c := openTestCatalog(t)
	mustCreate(t, c, "first", "A", "x")
	mustCreate(t, c, "second", "B", "x")
	mustCreate(t, c, "third", "C", "x")

	ctx := context.Background()
	first, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"third", "second", "first"}; !reflect.DeepEqual(titles(first), want) {
		t.Fatalf("unexpected order %q", titles(first))
	}
	second, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated List calls differ")
	}
}

func TestListSameTimestampUsesInsertionOrder(t *testing.T) {
	c := openTestCatalog(t)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	mustCreate(t, c, "a", "", "x")
	mustCreate(t, c, "b", "", "x")

	videos, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"b", "a"}; !reflect.DeepEqual(titles(videos), want) {
		t.Fatalf("unexpected order %q", titles(videos))
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	c := openTestCatalog(t)
	videos, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if videos == nil || len(videos) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", videos)
	}
}

func TestSearchByTagIsExactAndCaseSensitive(t *testing.T) {
	c := openTestCatalog(t)
	mustCreate(t, c, "one", "Movie", "funny", "classic")
	mustCreate(t, c, "two", "Movie", "Funny")
	mustCreate(t, c, "three", "Movie", "funny stuff")
	mustCreate(t, c, "four", "Movie", "sad", "funny")

	videos, err := c.Search(context.Background(), Query{Tag: "funny"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []string{"four", "one"}; !reflect.DeepEqual(titles(videos), want) {
		t.Fatalf("unexpected tag matches %q", titles(videos))
	}
	for _, v := range videos {
		if !hasTag(v, "funny") {
			t.Fatalf("%q does not carry the tag", v.Title)
		}
	}
}

func TestSearchByMovieIsCaseInsensitiveSubstring(t *testing.T) {
	c := openTestCatalog(t)
	mustCreate(t, c, "one", "The Dark Knight", "x")
	mustCreate(t, c, "two", "KNIGHT and Day", "x")
	mustCreate(t, c, "three", "Amélie", "x")
	mustCreate(t, c, "four", "Up", "x")

	videos, err := c.Search(context.Background(), Query{Movie: "kNiGhT"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []string{"two", "one"}; !reflect.DeepEqual(titles(videos), want) {
		t.Fatalf("unexpected movie matches %q", titles(videos))
	}

	videos, err = c.Search(context.Background(), Query{Movie: "AMÉL"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []string{"three"}; !reflect.DeepEqual(titles(videos), want) {
		t.Fatalf("unicode folding failed: %q", titles(videos))
	}

	videos, err = c.Search(context.Background(), Query{Movie: ".*"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(videos) != 0 {
		t.Fatalf("movie search must be literal, got %q", titles(videos))
	}
}

func TestSearchByText(t *testing.T) {
	c := openTestCatalog(t)
	mustCreate(t, c, "I am your father", "Star Wars", "reveal")
	mustCreate(t, c, "Why so serious", "The Dark Knight", "joker")
	mustCreate(t, c, "Just keep swimming", "Finding Nemo", "fish", "motivation")

	cases := []struct {
		query string
		want  []string
	}{
		{"father", []string{"I am your father"}},
		{"KNIGHT", []string{"Why so serious"}},
		{"fish", []string{"Just keep swimming"}},
		{"swims", []string{"Just keep swimming"}},
		{"batman", nil},
		{"swimming joker", []string{"Just keep swimming", "Why so serious"}},
		{`" OR * NEAR`, nil},
	}
	for _, tc := range cases {
		videos, err := c.Search(context.Background(), Query{Text: tc.query})
		if err != nil {
			t.Fatalf("Search(%q): %v", tc.query, err)
		}
		got := titles(videos)
		if len(got) == 0 {
			got = nil
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Search(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestSearchPriority(t *testing.T) {
	c := openTestCatalog(t)
	mustCreate(t, c, "alpha", "Zeta", "t1")
	mustCreate(t, c, "beta", "Alpha Movie", "t2")

	videos, err := c.Search(context.Background(), Query{Text: "alpha", Tag: "t2", Movie: "zeta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := []string{"beta", "alpha"}; !reflect.DeepEqual(titles(videos), want) {
		t.Fatalf("text query should win: %q", titles(videos))
	}

	videos, _ = c.Search(context.Background(), Query{Tag: "t2", Movie: "zeta"})
	if want := []string{"beta"}; !reflect.DeepEqual(titles(videos), want) {
		t.Fatalf("tag should win over movie: %q", titles(videos))
	}

	videos, _ = c.Search(context.Background(), Query{})
	if len(videos) != 2 {
		t.Fatalf("empty query should list everything, got %d", len(videos))
	}
}

func TestGetInvalidAndMissing(t *testing.T) {
	c := openTestCatalog(t)
	for _, id := range []string{"", "undefined", "123", "not-a-uuid-at-all-but-36-characters!"} {
		if _, err := c.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get(%q) = %v, want ErrNotFound", id, err)
		}
	}
	if _, err := c.Get(context.Background(), "5f1c2a8e-3b1d-4c7e-9a53-0f2b6d8e4a11"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestDeleteRemovesRecordAndIndex(t *testing.T) {
	c := openTestCatalog(t)
	v := mustCreate(t, c, "delete me", "Movie", "gone")
	keep := mustCreate(t, c, "keep me", "Movie", "stay")
	ctx := context.Background()

	if err := c.Delete(ctx, v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Delete(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
	if _, err := c.Get(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted record still readable: %v", err)
	}
	if videos, _ := c.Search(ctx, Query{Text: "delete"}); len(videos) != 0 {
		t.Fatalf("text index still returns deleted record")
	}
	if videos, _ := c.Search(ctx, Query{Tag: "gone"}); len(videos) != 0 {
		t.Fatalf("tag index still returns deleted record")
	}
	if _, err := c.Get(ctx, keep.ID); err != nil {
		t.Fatalf("unrelated record affected: %v", err)
	}
}

func TestReferencedLocators(t *testing.T) {
	c := openTestCatalog(t)
	v := models.NewVideo("with thumb", "", "", []string{"a"})
	v.FilePath = "http://h/uploads/1.mp4"
	v.ThumbnailPath = "http://h/uploads/thumbnails/thumb_1.jpg"
	if err := c.Create(context.Background(), v); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mustCreate(t, c, "2", "", "b")

	got, err := c.ReferencedLocators(context.Background())
	if err != nil {
		t.Fatalf("ReferencedLocators: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 locators, got %q", got)
	}
}

func TestOpenInMemory(t *testing.T) {
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	mustCreate(t, c, "x", "", "y")
	if n, err := c.Count(context.Background()); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestValidID(t *testing.T) {
	if !ValidID("5f1c2a8e-3b1d-4c7e-9a53-0f2b6d8e4a11") {
		t.Fatalf("expected canonical uuid to be valid")
	}
	for _, id := range []string{"", "undefined", "5f1c2a8e3b1d4c7e9a530f2b6d8e4a11", "{5f1c2a8e-3b1d-4c7e-9a53-0f2b6d8e4a11}"} {
		if ValidID(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}
