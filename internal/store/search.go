package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/brick/internal/model"
)

// searchIndexes lists the searchable fields per index.
var searchIndexes = map[string]struct {
	kind   model.Kind
	fields map[string]bool
}{
	"factoids": {model.KindFact, map[string]bool{"subject": true, "subject_lc": true, "mode": true, "factoid": true}},
	"vars":     {model.KindVar, map[string]bool{"var": true, "value": true}},
	"users":    {model.KindUser, map[string]bool{"subject": true, "user_id": true}},
}

// Search finds live documents whose field contains value, case-insensitively.
func (s *SQLiteStore) Search(ctx context.Context, index, field, value string) ([]model.Doc, error) {
	idx, ok := searchIndexes[index]
	if !ok {
		return nil, fmt.Errorf("unknown search index %q", index)
	}
	if !idx.fields[field] {
		return nil, fmt.Errorf("field %q is not searchable in %s", field, index)
	}

	pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
	q := `SELECT ` + docColumns + ` FROM docs
		WHERE deleted_at IS NULL AND kind = ?
		  AND lower(json_extract(data, '$.` + field + `')) LIKE ? ESCAPE '\'
		ORDER BY key, created_at`

	rows, err := s.db.QueryContext(ctx, q, string(idx.kind), pattern)
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

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
