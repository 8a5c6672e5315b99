package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fact(subject, mode, value string) model.Factoid {
	return model.Factoid{
		Subject:    subject,
		SubjectKey: subject,
		Relation:   mode,
		Value:      value,
		AddedBy:    "tester",
		Added:      time.Now().UTC(),
	}
}

func postFact(t *testing.T, s *SQLiteStore, f model.Factoid) model.Factoid {
	t.Helper()
	res, err := s.Post(context.Background(), f.Doc())
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	f.ID, f.Rev = res[0].ID, res[0].Rev
	return f
}

func TestPostAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := postFact(t, s, fact("bird", model.RelIs, "a word"))
	if f.ID == "" {
		t.Fatal("expected non-empty ID")
	}
	if f.Rev == "" || f.Rev[:2] != "1-" {
		t.Errorf("expected first generation rev, got %q", f.Rev)
	}

	docs, err := s.Fetch(ctx, f.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got, err := model.FactoidFromDoc(docs[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Value != "a word" || got.Relation != model.RelIs {
		t.Errorf("unexpected fact %+v", got)
	}
	if got.Rev != f.Rev {
		t.Errorf("expected rev %q, got %q", f.Rev, got.Rev)
	}
}

func TestFetchMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Fetch(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStaleRevConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := postFact(t, s, fact("bird", model.RelIs, "a word"))
	stale := f

	f.Value = "the word"
	res, err := s.Post(ctx, f.Doc())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res[0].Rev[:2] != "2-" {
		t.Errorf("expected second generation rev, got %q", res[0].Rev)
	}

	stale.Value = "lost update"
	if _, err := s.Post(ctx, stale.Doc()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := postFact(t, s, fact("bird", model.RelIs, "a word"))
	f.Rev = "1-bogus"

	_, err := s.Post(ctx, fact("cat", model.RelIs, "furry").Doc(), f.Doc())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	rows, _ := s.Query(ctx, QueryParams{View: ViewSubjects, Key: "cat"})
	if len(rows) != 0 {
		t.Errorf("expected rolled back insert, got %d rows", len(rows))
	}
}

func TestDeleteAndResurrect(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := postFact(t, s, fact("bird", model.RelIs, "a word"))

	old, err := s.Delete(ctx, f.Doc())
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(old) != 1 || old[0].ID != f.ID {
		t.Fatalf("expected deleted doc back, got %+v", old)
	}
	if _, err := s.Fetch(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Re-posting the old body without a rev brings it back under the same id.
	restored := old[0]
	restored.Rev = ""
	res, err := s.Post(ctx, restored)
	if err != nil {
		t.Fatalf("resurrect: %v", err)
	}
	if res[0].ID != f.ID {
		t.Errorf("expected id %s, got %s", f.ID, res[0].ID)
	}
	if _, err := s.Fetch(ctx, f.ID); err != nil {
		t.Errorf("fetch after resurrect: %v", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := model.User{ExternalID: "u1", Name: "Alice", Role: model.RoleUser}
	res, err := s.Post(ctx, u.Doc())
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	patch := model.Doc{ID: res[0].ID, Data: []byte(`{"role":"op"}`)}
	if _, err := s.Update(ctx, patch); err != nil {
		t.Fatalf("update: %v", err)
	}

	docs, _ := s.Fetch(ctx, res[0].ID)
	got, err := model.UserFromDoc(docs[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Role != model.RoleOp {
		t.Errorf("expected op, got %s", got.Role)
	}
	if got.Name != "Alice" {
		t.Errorf("expected name kept, got %q", got.Name)
	}
}

func TestViews(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	postFact(t, s, fact("bird", model.RelIs, "a word"))
	postFact(t, s, fact("bird", model.RelReply, "tweet"))
	postFact(t, s, fact("birb", model.RelAlias, "bird"))
	cached := fact("hi", model.RelReply, "hello")
	cached.Cached = true
	postFact(t, s, cached)

	v := model.Variable{Name: "color", Value: "red"}
	if _, err := s.Post(ctx, v.Doc()); err != nil {
		t.Fatalf("post var: %v", err)
	}
	syl := model.Syllable{Word: "fire", Count: 1}
	if _, err := s.Post(ctx, syl.Doc()); err != nil {
		t.Fatalf("post syllable: %v", err)
	}

	tests := []struct {
		name   string
		params QueryParams
		want   int
	}{
		{"subjects", QueryParams{View: ViewSubjects, Key: "bird"}, 2},
		{"cached", QueryParams{View: ViewCached}, 1},
		{"nonalias", QueryParams{View: ViewNonAlias}, 3},
		{"nonalias paged", QueryParams{View: ViewNonAlias, Limit: 2, Skip: 2}, 1},
		{"vars", QueryParams{View: ViewVars, Key: "color"}, 1},
		{"syllables", QueryParams{View: ViewSyllables}, 1},
		{"users empty", QueryParams{View: ViewUsers}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.Query(ctx, tt.params)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("expected %d rows, got %d", tt.want, len(rows))
			}
		})
	}

	rows, _ := s.Query(ctx, QueryParams{View: ViewCached})
	if rows[0].Key != "hi" || rows[0].Value != "hello" {
		t.Errorf("unexpected cached row %+v", rows[0])
	}
	rows, _ = s.Query(ctx, QueryParams{View: ViewSyllables})
	if rows[0].Count != 1 {
		t.Errorf("expected syllable count 1, got %d", rows[0].Count)
	}
	rows, _ = s.Query(ctx, QueryParams{View: ViewSubjects, Key: "bird", FullDocs: true})
	if rows[0].Doc == nil {
		t.Error("expected full docs")
	}
}

func TestNonAliasCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	postFact(t, s, fact("bird", model.RelIs, "a word"))
	postFact(t, s, fact("bird", model.RelReply, "tweet"))
	postFact(t, s, fact("cat", model.RelIs, "furry"))
	postFact(t, s, fact("kitty", model.RelAlias, "cat"))

	rows, err := s.Query(ctx, QueryParams{View: ViewNonAliasCount})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows[0].Count != 3 {
		t.Errorf("expected 3, got %d", rows[0].Count)
	}

	rows, _ = s.Query(ctx, QueryParams{View: ViewNonAliasCount, Group: true})
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
	if rows[0].Key != "bird" || rows[0].Count != 2 {
		t.Errorf("unexpected group %+v", rows[0])
	}
}

func TestUnknownView(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Query(context.Background(), QueryParams{View: "bogus"}); err == nil {
		t.Fatal("expected error for unknown view")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := postFact(t, s, fact("bird", model.RelIs, "a word"))
	postFact(t, s, fact("cat", model.RelIs, "furry"))
	s.Delete(ctx, f.Doc())

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalDocs != 2 || st.ActiveDocs != 1 {
		t.Errorf("expected 2 total 1 active, got %d/%d", st.TotalDocs, st.ActiveDocs)
	}
	if len(st.Kinds) != 1 || st.Kinds[0].Kind != "fact" {
		t.Errorf("unexpected kinds %+v", st.Kinds)
	}
}

func TestStatsFailsOnClosedStore(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	st, err := s.Stats(context.Background())
	if err == nil {
		t.Fatalf("expected error from closed store, got %+v", st)
	}
	if st != nil {
		t.Errorf("expected no stats on error, got %+v", st)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	postFact(t, src, fact("bird", model.RelIs, "a word"))
	src.Post(ctx, model.Variable{Name: "color", Value: "red"}.Doc())

	docs, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}

	dst := newTestStore(t)
	n, err := dst.Import(ctx, docs)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}
	// Second import skips live ids.
	n, _ = dst.Import(ctx, docs)
	if n != 0 {
		t.Errorf("expected 0 on re-import, got %d", n)
	}

	facts, _ := dst.ExportAll(ctx, model.KindFact)
	if len(facts) != 1 || facts[0].ID != docs[0].ID {
		t.Errorf("expected imported ids preserved, got %+v", facts)
	}
}

func TestOpenWithRetryGivesUp(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The parent path is a regular file so the db dir can never be created.
	_, err := OpenWithRetry(ctx, filepath.Join(blocker, "sub", "db.sqlite"), 10*time.Millisecond, zap.NewNop())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
