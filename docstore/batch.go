package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
)

// maxVars stays below SQLite's default limit on bound parameters.
const maxVars = 500

// Document is one result of Documents.
type Document struct {
	ID      string
	Content string
	Found   bool
}

// Batches yields the document ids in batches of batchSize; batchSize <= 0
// yields all ids in one batch. With shuffle the order is permuted using the
// store's seeded generator, which advances on every shuffled call.
func (s *Store) Batches(batchSize int, shuffle bool) iter.Seq[[]string] {
	ids := s.IDs()
	if shuffle {
		s.mu.Lock()
		s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		s.mu.Unlock()
	}
	if batchSize <= 0 {
		batchSize = len(ids)
	}
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += batchSize {
			end := min(start+batchSize, len(ids))
			if !yield(ids[start:end:end]) {
				return
			}
		}
	}
}

// Documents fetches the content of ids, in the order given. Ids not in the
// store come back with Found == false.
func (s *Store) Documents(ctx context.Context, ids []string) ([]Document, error) {
	found := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += maxVars {
		chunk := ids[start:min(start+maxVars, len(ids))]
		if err := s.fetch(ctx, chunk, found); err != nil {
			return nil, err
		}
	}
	out := make([]Document, len(ids))
	for i, id := range ids {
		c, ok := found[id]
		out[i] = Document{ID: id, Content: c, Found: ok}
	}
	return out, nil
}

func (s *Store) fetch(ctx context.Context, ids []string, into map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`SELECT id, %s FROM %s WHERE id IN (%s)`,
		quoteIdent(s.content), quoteIdent(s.table), strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("docstore: documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, content sql.NullString
		if err := rows.Scan(&id, &content); err != nil {
			return fmt.Errorf("docstore: documents: %w", err)
		}
		if content.Valid {
			into[id.String] = content.String
		}
	}
	return rows.Err()
}
