package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string      `json:"db_path"`
	DBSizeBytes int64       `json:"db_size_bytes"`
	TotalDocs   int         `json:"total_docs"`
	ActiveDocs  int         `json:"active_docs"`
	Kinds       []KindStats `json:"kinds"`
}

// KindStats holds per-kind counts.
type KindStats struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
	Keys  int    `json:"keys"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs`).Scan(&st.TotalDocs); err != nil {
		return nil, fmt.Errorf("count docs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs WHERE deleted_at IS NULL`).Scan(&st.ActiveDocs); err != nil {
		return nil, fmt.Errorf("count live docs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) as cnt, COUNT(DISTINCT key) as keys
		FROM docs WHERE deleted_at IS NULL
		GROUP BY kind ORDER BY cnt DESC`)
	if err != nil {
		return nil, fmt.Errorf("count kinds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k KindStats
		if err := rows.Scan(&k.Kind, &k.Count, &k.Keys); err != nil {
			return nil, fmt.Errorf("count kinds: %w", err)
		}
		st.Kinds = append(st.Kinds, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count kinds: %w", err)
	}
	return st, nil
}
