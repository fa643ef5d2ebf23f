package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/httpfetch"
	_ "modernc.org/sqlite"
)

// Content columns.
const (
	ContentText  = "text"
	ContentTitle = "title"
)

var (
	// ErrOpen is wrapped when the store file is missing or is not a SQLite database.
	ErrOpen = errors.New("docstore: cannot open store")
	// ErrMetadata is wrapped when the store does not hold exactly one
	// document table with the expected columns.
	ErrMetadata = errors.New("docstore: bad store layout")
)

// Options configures Open. The zero value reads the text column of a local store.
type Options struct {
	DataDir     string // download directory for remote stores; ~ is expanded
	ContentType string // column returned by Content: ContentText (default) or ContentTitle
	Seed        uint64 // seed for shuffled batches
	Client      *http.Client
	Logger      *slog.Logger
}

// Store is an open document store. Safe for concurrent use.
type Store struct {
	db      *sql.DB
	path    string
	table   string
	content string
	ids     []string
	index   map[string]int
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Open connects to the store at path, discovers its table and loads the
// document ids. Remote paths are downloaded first.
func Open(ctx context.Context, path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	content := opts.ContentType
	if content == "" {
		content = ContentText
	}
	if content != ContentText && content != ContentTitle {
		return nil, fmt.Errorf("docstore: content type must be %q or %q, got %q", ContentText, ContentTitle, content)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrOpen)
	}

	local, err := resolve(ctx, path, opts, logger)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "connecting to document store", "path", local)
	if fi, err := os.Stat(local); err != nil || fi.IsDir() {
		return nil, openErr(local, err)
	}
	db, err := sql.Open("sqlite", local)
	if err != nil {
		return nil, openErr(local, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, openErr(local, err)
	}

	s := &Store{
		db:      db,
		path:    local,
		content: content,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "document store ready", "path", local, "table", s.table, "documents", len(s.ids))
	return s, nil
}

func openErr(path string, err error) error {
	if err == nil {
		err = errors.New("is a directory")
	}
	return fmt.Errorf("%w: %s: %v; check that the store path exists and is a valid SQLite file", ErrOpen, path, err)
}

func metadataErr(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s; check that the store was built correctly and is not empty",
		ErrMetadata, path, fmt.Sprintf(format, args...))
}

func resolve(ctx context.Context, path string, opts *Options, logger *slog.Logger) (string, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		p, err := config.ExpandPath(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrOpen, err)
		}
		return p, nil
	}
	dir, err := config.ExpandPath(opts.DataDir)
	if err != nil {
		return "", fmt.Errorf("%w: data dir: %v", ErrOpen, err)
	}
	logger.InfoContext(ctx, "downloading document store", "url", path, "dir", dir)
	local, err := httpfetch.Download(ctx, opts.Client, path, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpen, err)
	}
	return local, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return openErr(s.path, err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return openErr(s.path, err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return openErr(s.path, err)
	}
	if len(tables) != 1 {
		return metadataErr(s.path, "expected exactly one table, found %d", len(tables))
	}
	s.table = tables[0]

	probe := fmt.Sprintf(`SELECT id, %s FROM %s LIMIT 0`, quoteIdent(s.content), quoteIdent(s.table))
	if _, err := s.db.ExecContext(ctx, probe); err != nil {
		return metadataErr(s.path, "table %s: %v", s.table, err)
	}

	ids, err := s.column(ctx, "id")
	if err != nil {
		return metadataErr(s.path, "read ids: %v", err)
	}
	s.ids = ids
	s.index = make(map[string]int, len(ids))
	for i, id := range ids {
		s.index[id] = i
	}
	return nil
}

// column reads one column of every row. NULL values read as "".
func (s *Store) column(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s`, quoteIdent(name), quoteIdent(s.table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v.String)
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Path returns the local path of the store file.
func (s *Store) Path() string { return s.path }

// Table returns the name of the document table.
func (s *Store) Table() string { return s.table }

// Len returns the number of documents.
func (s *Store) Len() int { return len(s.ids) }

// IDs returns the document ids in table order.
func (s *Store) IDs() []string { return append([]string(nil), s.ids...) }

// Index returns the position of id in IDs.
func (s *Store) Index(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// IDAt returns the id at position i.
func (s *Store) IDAt(i int) (string, bool) {
	if i < 0 || i >= len(s.ids) {
		return "", false
	}
	return s.ids[i], true
}

// Content returns the content column of document id. A missing document (or a
// NULL content) yields ok == false and no error.
func (s *Store) Content(ctx context.Context, id string) (string, bool, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, quoteIdent(s.content), quoteIdent(s.table))
	var v sql.NullString
	err := s.db.QueryRowContext(ctx, q, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("docstore: content %q: %w", id, err)
	}
	return v.String, v.Valid, nil
}

// Titles returns the title column in table order.
func (s *Store) Titles(ctx context.Context) ([]string, error) {
	titles, err := s.column(ctx, ContentTitle)
	if err != nil {
		return nil, fmt.Errorf("docstore: titles: %w", err)
	}
	return titles, nil
}

// IndexTitles maps each row position to its title.
func (s *Store) IndexTitles(ctx context.Context) (map[int]string, error) {
	titles, err := s.Titles(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(titles))
	for i, t := range titles {
		out[i] = t
	}
	s.logger.DebugContext(ctx, "indexed titles", "documents", len(out))
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
