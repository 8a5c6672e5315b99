package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rcliao/brick/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer keeps batch posts serialized.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// OpenWithRetry keeps trying to open the store at a fixed interval until it
// succeeds or ctx is done.
func OpenWithRetry(ctx context.Context, dbPath string, interval time.Duration, log *zap.Logger) (*SQLiteStore, error) {
	for attempt := 1; ; attempt++ {
		s, err := NewSQLiteStore(dbPath)
		if err == nil {
			return s, nil
		}
		log.Warn("store unavailable, retrying",
			zap.String("path", dbPath),
			zap.Int("attempt", attempt),
			zap.Duration("interval", interval),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open store: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// nextRev bumps the generation counter of a revision token.
func (s *SQLiteStore) nextRev(prev string) string {
	gen := 0
	if i := strings.IndexByte(prev, '-'); i > 0 {
		gen, _ = strconv.Atoi(prev[:i])
	}
	return strconv.Itoa(gen+1) + "-" + strings.ToLower(s.newID())
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS docs (
		id          TEXT PRIMARY KEY,
		rev         TEXT NOT NULL,
		kind        TEXT NOT NULL,
		key         TEXT NOT NULL,
		data        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_docs_kind_key ON docs(kind, key);
	CREATE INDEX IF NOT EXISTS idx_docs_deleted ON docs(deleted_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

const docColumns = `id, rev, kind, key, data, deleted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDoc(sc scanner) (model.Doc, error) {
	var d model.Doc
	var kind, data string
	var deletedAt sql.NullString
	if err := sc.Scan(&d.ID, &d.Rev, &kind, &d.Key, &data, &deletedAt); err != nil {
		return d, err
	}
	d.Kind = model.Kind(kind)
	d.Data = json.RawMessage(data)
	d.Deleted = deletedAt.Valid
	return d, nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, ids ...string) ([]model.Doc, error) {
	docs := make([]model.Doc, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+docColumns+` FROM docs WHERE id = ? AND deleted_at IS NULL`, id)
		d, err := scanDoc(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *SQLiteStore) Post(ctx context.Context, docs ...model.Doc) ([]PostResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	results := make([]PostResult, 0, len(docs))
	for _, d := range docs {
		res, err := s.postOne(ctx, tx, d)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *SQLiteStore) postOne(ctx context.Context, tx *sql.Tx, d model.Doc) (PostResult, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if d.ID == "" {
		if d.Deleted {
			return PostResult{}, fmt.Errorf("delete without id: %w", ErrNotFound)
		}
		if !model.ValidKinds[d.Kind] {
			return PostResult{}, fmt.Errorf("invalid kind %q", d.Kind)
		}
		res := PostResult{ID: s.newID(), Rev: s.nextRev("")}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO docs (id, rev, kind, key, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.ID, res.Rev, string(d.Kind), d.Key, string(d.Data), now, now)
		if err != nil {
			return PostResult{}, fmt.Errorf("insert: %w", err)
		}
		return res, nil
	}

	cur, err := scanDoc(tx.QueryRowContext(ctx, `SELECT `+docColumns+` FROM docs WHERE id = ?`, d.ID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if d.Deleted {
			return PostResult{}, fmt.Errorf("delete %s: %w", d.ID, ErrNotFound)
		}
		if !model.ValidKinds[d.Kind] {
			return PostResult{}, fmt.Errorf("invalid kind %q", d.Kind)
		}
		res := PostResult{ID: d.ID, Rev: s.nextRev("")}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO docs (id, rev, kind, key, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.ID, res.Rev, string(d.Kind), d.Key, string(d.Data), now, now)
		if err != nil {
			return PostResult{}, fmt.Errorf("insert %s: %w", d.ID, err)
		}
		return res, nil
	case err != nil:
		return PostResult{}, fmt.Errorf("load %s: %w", d.ID, err)
	}

	if cur.Deleted {
		// Writing to a tombstone resurrects it; revisions of deleted docs are not checked.
		if d.Deleted {
			return PostResult{ID: cur.ID, Rev: cur.Rev}, nil
		}
	} else if d.Rev != cur.Rev {
		return PostResult{}, fmt.Errorf("post %s: have rev %q, stored %q: %w", d.ID, d.Rev, cur.Rev, ErrConflict)
	}

	res := PostResult{ID: cur.ID, Rev: s.nextRev(cur.Rev)}
	if d.Deleted {
		_, err = tx.ExecContext(ctx,
			`UPDATE docs SET rev = ?, updated_at = ?, deleted_at = ? WHERE id = ?`,
			res.Rev, now, now, cur.ID)
	} else {
		kind, key, data := d.Kind, d.Key, d.Data
		if kind == "" {
			kind = cur.Kind
		}
		if len(data) == 0 {
			data = cur.Data
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE docs SET rev = ?, kind = ?, key = ?, data = ?, updated_at = ?, deleted_at = NULL WHERE id = ?`,
			res.Rev, string(kind), key, string(data), now, cur.ID)
	}
	if err != nil {
		return PostResult{}, fmt.Errorf("update %s: %w", d.ID, err)
	}
	return res, nil
}

func (s *SQLiteStore) Update(ctx context.Context, docs ...model.Doc) ([]PostResult, error) {
	prepared := make([]model.Doc, 0, len(docs))
	for _, d := range docs {
		if d.Rev != "" || d.ID == "" {
			prepared = append(prepared, d)
			continue
		}
		cur, err := s.Fetch(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		merged, err := mergeDoc(cur[0], d)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, merged)
	}
	return s.Post(ctx, prepared...)
}

// mergeDoc overlays the body fields of patch onto cur.
func mergeDoc(cur, patch model.Doc) (model.Doc, error) {
	out := cur
	if patch.Kind != "" {
		out.Kind = patch.Kind
	}
	if patch.Key != "" {
		out.Key = patch.Key
	}
	out.Deleted = patch.Deleted
	if len(patch.Data) == 0 {
		return out, nil
	}
	var base, over map[string]any
	if err := json.Unmarshal(cur.Data, &base); err != nil {
		return out, fmt.Errorf("merge %s: %w", cur.ID, err)
	}
	if err := json.Unmarshal(patch.Data, &over); err != nil {
		return out, fmt.Errorf("merge %s: %w", cur.ID, err)
	}
	if base == nil {
		base = map[string]any{}
	}
	for k, v := range over {
		base[k] = v
	}
	b, err := json.Marshal(base)
	if err != nil {
		return out, err
	}
	out.Data = b
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, docs ...model.Doc) ([]model.Doc, error) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	old, err := s.Fetch(ctx, ids...)
	if err != nil {
		return nil, err
	}
	tombs := make([]model.Doc, len(old))
	for i, d := range old {
		tombs[i] = d.Tombstone()
	}
	if _, err := s.Post(ctx, tombs...); err != nil {
		return nil, err
	}
	return old, nil
}

// viewKinds maps every view to the document kind it reads.
var viewKinds = map[View]model.Kind{
	ViewSubjects:      model.KindFact,
	ViewCached:        model.KindFact,
	ViewNonAlias:      model.KindFact,
	ViewNonAliasCount: model.KindFact,
	ViewVars:          model.KindVar,
	ViewUsers:         model.KindUser,
	ViewSyllables:     model.KindSyllable,
	ViewStates:        model.KindState,
}

func (s *SQLiteStore) Query(ctx context.Context, p QueryParams) ([]Row, error) {
	kind, ok := viewKinds[p.View]
	if !ok {
		return nil, fmt.Errorf("unknown view %q", p.View)
	}

	where := []string{"deleted_at IS NULL", "kind = ?"}
	args := []any{string(kind)}
	if p.Key != "" {
		where = append(where, "key = ?")
		args = append(args, p.Key)
	}

	value := "''"
	switch p.View {
	case ViewCached:
		where = append(where, "json_extract(data, '$.cached') = 1")
		value = "json_extract(data, '$.factoid')"
	case ViewNonAlias, ViewNonAliasCount:
		where = append(where, "json_extract(data, '$.mode') != ?")
		args = append(args, model.RelAlias)
		value = "json_extract(data, '$.factoid')"
	case ViewVars:
		value = "json_extract(data, '$.value')"
	case ViewUsers:
		value = "json_extract(data, '$.subject')"
	case ViewSyllables:
		value = "CAST(json_extract(data, '$.syllables') AS TEXT)"
	}
	cond := strings.Join(where, " AND ")

	if p.View == ViewNonAliasCount {
		return s.countRows(ctx, cond, args, p.Group)
	}

	q := `SELECT ` + docColumns + `, COALESCE(` + value + `, '') FROM docs WHERE ` + cond +
		` ORDER BY key, created_at, id`
	if p.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, p.Limit, p.Skip)
	} else if p.Skip > 0 {
		q += ` LIMIT -1 OFFSET ?`
		args = append(args, p.Skip)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var d model.Doc
		var kind, data, val string
		var deletedAt sql.NullString
		if err := rows.Scan(&d.ID, &d.Rev, &kind, &d.Key, &data, &deletedAt, &val); err != nil {
			return nil, err
		}
		r := Row{ID: d.ID, Key: d.Key, Value: val}
		if p.View == ViewSyllables {
			r.Count, _ = strconv.Atoi(val)
		}
		if p.FullDocs {
			d.Kind = model.Kind(kind)
			d.Data = json.RawMessage(data)
			r.Doc = &d
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) countRows(ctx context.Context, cond string, args []any, group bool) ([]Row, error) {
	if !group {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM docs WHERE `+cond, args...).Scan(&n); err != nil {
			return nil, err
		}
		return []Row{{Count: n}}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, COUNT(*) FROM docs WHERE `+cond+` GROUP BY key ORDER BY key`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
