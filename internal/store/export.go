package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/brick/internal/model"
)

// ExportAll returns all live documents, optionally filtered by kind.
func (s *SQLiteStore) ExportAll(ctx context.Context, kind model.Kind) ([]model.Doc, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(kind))
	}

	query := `SELECT ` + docColumns + ` FROM docs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY kind, key, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Doc
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Import stores documents from an export, keeping their ids.
// Documents whose id is already live are skipped.
func (s *SQLiteStore) Import(ctx context.Context, docs []model.Doc) (int, error) {
	imported := 0
	for _, d := range docs {
		if d.ID != "" {
			if _, err := s.Fetch(ctx, d.ID); err == nil {
				continue
			} else if !errors.Is(err, ErrNotFound) {
				return imported, err
			}
		}
		d.Rev = ""
		d.Deleted = false
		if _, err := s.Post(ctx, d); err != nil {
			return imported, fmt.Errorf("import %s: %w", d.ID, err)
		}
		imported++
	}
	return imported, nil
}
