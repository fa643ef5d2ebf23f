package docstore

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newStoreFile creates a SQLite file with one documents table holding ids
// d1..d5 in order.
func newStoreFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "docs.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stmts := []string{
		`CREATE TABLE documents (id TEXT PRIMARY KEY, title TEXT, text TEXT)`,
		`INSERT INTO documents VALUES ('d1', 'One', 'first text')`,
		`INSERT INTO documents VALUES ('d2', 'Two', 'second text')`,
		`INSERT INTO documents VALUES ('d3', 'Three', NULL)`,
		`INSERT INTO documents VALUES ('d4', 'Four', 'fourth text')`,
		`INSERT INTO documents VALUES ('d5', NULL, 'fifth text')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return path
}

func openTest(t *testing.T, path string, opts *Options) *Store {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	opts.Logger = quiet
	s, err := Open(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_IDsAndIndex(t *testing.T) {
	s := openTest(t, newStoreFile(t, t.TempDir()), nil)
	if s.Table() != "documents" {
		t.Errorf("table: %q", s.Table())
	}
	want := []string{"d1", "d2", "d3", "d4", "d5"}
	if !reflect.DeepEqual(s.IDs(), want) {
		t.Errorf("ids: %v", s.IDs())
	}
	if i, ok := s.Index("d4"); !ok || i != 3 {
		t.Errorf("Index(d4): %d, %v", i, ok)
	}
	if _, ok := s.Index("nope"); ok {
		t.Error("Index of unknown id should be false")
	}
	if id, ok := s.IDAt(1); !ok || id != "d2" {
		t.Errorf("IDAt(1): %q, %v", id, ok)
	}
	if _, ok := s.IDAt(5); ok {
		t.Error("IDAt out of range should be false")
	}
}

func TestContent(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, newStoreFile(t, t.TempDir()), nil)
	c, ok, err := s.Content(ctx, "d2")
	if err != nil || !ok || c != "second text" {
		t.Errorf("Content(d2): %q, %v, %v", c, ok, err)
	}
	if _, ok, err := s.Content(ctx, "missing"); err != nil || ok {
		t.Errorf("missing id: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.Content(ctx, "d3"); err != nil || ok {
		t.Errorf("NULL content: ok=%v err=%v", ok, err)
	}
}

func TestContent_TitleColumn(t *testing.T) {
	s := openTest(t, newStoreFile(t, t.TempDir()), &Options{ContentType: ContentTitle})
	c, ok, err := s.Content(context.Background(), "d1")
	if err != nil || !ok || c != "One" {
		t.Errorf("Content(d1): %q, %v, %v", c, ok, err)
	}
}

func TestTitles(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, newStoreFile(t, t.TempDir()), nil)
	titles, err := s.Titles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(titles, []string{"One", "Two", "Three", "Four", ""}) {
		t.Errorf("titles: %v", titles)
	}
	idx, err := s.IndexTitles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if idx[2] != "Three" || len(idx) != 5 {
		t.Errorf("index titles: %v", idx)
	}
}

func TestBatches(t *testing.T) {
	s := openTest(t, newStoreFile(t, t.TempDir()), &Options{Seed: 3})
	var got [][]string
	for b := range s.Batches(2, false) {
		got = append(got, b)
	}
	want := [][]string{{"d1", "d2"}, {"d3", "d4"}, {"d5"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("batches: %v", got)
	}

	var all [][]string
	for b := range s.Batches(0, false) {
		all = append(all, b)
	}
	if len(all) != 1 || len(all[0]) != 5 {
		t.Errorf("batchSize 0: %v", all)
	}

	var shuffled []string
	for b := range s.Batches(2, true) {
		shuffled = append(shuffled, b...)
	}
	sorted := slices.Clone(shuffled)
	slices.Sort(sorted)
	if !reflect.DeepEqual(sorted, s.IDs()) {
		t.Errorf("shuffled batches lost ids: %v", shuffled)
	}
}

func TestBatches_ShuffleDeterministic(t *testing.T) {
	path := newStoreFile(t, t.TempDir())
	run := func() []string {
		s := openTest(t, path, &Options{Seed: 11})
		var out []string
		for b := range s.Batches(3, true) {
			out = append(out, b...)
		}
		return out
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Errorf("same seed, different order: %v vs %v", a, b)
	}
}

func TestDocuments(t *testing.T) {
	s := openTest(t, newStoreFile(t, t.TempDir()), nil)
	docs, err := s.Documents(context.Background(), []string{"d4", "zz", "d1", "d3"})
	if err != nil {
		t.Fatal(err)
	}
	want := []Document{
		{ID: "d4", Content: "fourth text", Found: true},
		{ID: "zz"},
		{ID: "d1", Content: "first text", Found: true},
		{ID: "d3"},
	}
	if !reflect.DeepEqual(docs, want) {
		t.Errorf("documents:\n got %+v\nwant %+v", docs, want)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "none.db"), &Options{Logger: quiet})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.db")
	if err := os.WriteFile(path, []byte(strings.Repeat("this is not a sqlite database\n", 64)), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(context.Background(), path, &Options{Logger: quiet})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestOpen_TableCount(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.db")
	two := filepath.Join(dir, "two.db")
	for path, stmts := range map[string][]string{
		empty: {`PRAGMA user_version = 1`},
		two:   {`CREATE TABLE a (id TEXT, text TEXT)`, `CREATE TABLE b (id TEXT, text TEXT)`},
	} {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			t.Fatal(err)
		}
		for _, s := range stmts {
			if _, err := db.Exec(s); err != nil {
				t.Fatal(err)
			}
		}
		db.Close()
	}
	for _, path := range []string{empty, two} {
		_, err := Open(context.Background(), path, &Options{Logger: quiet})
		if !errors.Is(err, ErrMetadata) {
			t.Errorf("%s: expected ErrMetadata, got %v", filepath.Base(path), err)
		}
	}
}

func TestOpen_BadContentType(t *testing.T) {
	_, err := Open(context.Background(), newStoreFile(t, t.TempDir()), &Options{ContentType: "body", Logger: quiet})
	if err == nil {
		t.Fatal("expected error for unknown content type")
	}
}

func TestOpen_Remote(t *testing.T) {
	data, err := os.ReadFile(newStoreFile(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	for i := 0; i < 2; i++ {
		s := openTest(t, srv.URL+"/stores/wiki.db", &Options{DataDir: dataDir, Client: srv.Client()})
		if s.Path() != filepath.Join(dataDir, "wiki.db") {
			t.Errorf("path: %q", s.Path())
		}
		if s.Len() != 5 {
			t.Errorf("len: %d", s.Len())
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("store downloaded %d times, want 1", n)
	}
}
