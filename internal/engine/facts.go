package engine

import (
	"context"
	"fmt"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/textfmt"
)

// maxAliasDepth bounds how many aliases a lookup follows.
const maxAliasDepth = 8

// subjectFacts returns the facts stored under a normalized subject key.
func (e *Engine) subjectFacts(ctx context.Context, key string) ([]model.Factoid, error) {
	rows, err := e.store.Query(ctx, store.QueryParams{View: store.ViewSubjects, Key: key, FullDocs: true})
	if err != nil {
		return nil, fmt.Errorf("query subject %q: %w", key, err)
	}
	facts := make([]model.Factoid, 0, len(rows))
	for _, row := range rows {
		f, err := model.FactoidFromDoc(*row.Doc)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// factQuery returns the facts for subject. With follow set, every alias is
// replaced in place by the facts of its target.
func (e *Engine) factQuery(ctx context.Context, subject string, follow bool) ([]model.Factoid, error) {
	key := textfmt.Depunctuate(subject)
	if key == "" {
		return nil, errMissing
	}
	if !follow {
		facts, err := e.subjectFacts(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(facts) == 0 {
			return nil, fmt.Errorf("subject %q: %w", key, errMissing)
		}
		return facts, nil
	}
	return e.resolve(ctx, key, map[string]bool{}, 0)
}

func (e *Engine) resolve(ctx context.Context, key string, path map[string]bool, depth int) ([]model.Factoid, error) {
	if path[key] || depth > maxAliasDepth {
		return nil, fmt.Errorf("alias chain through %q: %w", key, errConflict)
	}
	facts, err := e.subjectFacts(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("subject %q: %w", key, errMissing)
	}

	path[key] = true
	defer delete(path, key)

	out := make([]model.Factoid, 0, len(facts))
	for _, f := range facts {
		if !f.IsAlias() {
			out = append(out, f)
			continue
		}
		sub, err := e.resolve(ctx, textfmt.Depunctuate(f.Value), path, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// properties are the flags every fact of one subject must share.
type properties struct {
	SubjectKey string
	Cached     bool
	Protected  bool
	Alias      bool
}

// common returns the shared properties of facts, or errConflict when the
// set is not uniform.
func common(facts []model.Factoid) (properties, error) {
	if len(facts) == 0 {
		return properties{}, errMissing
	}
	p := properties{
		SubjectKey: facts[0].SubjectKey,
		Cached:     facts[0].Cached,
		Protected:  facts[0].Protected,
		Alias:      facts[0].IsAlias(),
	}
	for _, f := range facts[1:] {
		switch {
		case f.SubjectKey != p.SubjectKey:
			return p, fmt.Errorf("subject %q mixed with %q: %w", f.SubjectKey, p.SubjectKey, errConflict)
		case f.Cached != p.Cached:
			return p, fmt.Errorf("cache flag mismatch on %q: %w", f.SubjectKey, errConflict)
		case f.Protected != p.Protected:
			return p, fmt.Errorf("protect flag mismatch on %q: %w", f.SubjectKey, errConflict)
		case f.IsAlias() != p.Alias:
			return p, fmt.Errorf("alias mismatch on %q: %w", f.SubjectKey, errConflict)
		}
	}
	return p, nil
}

// compileFact renders "subject verb value", or the bare value for replies.
func compileFact(f model.Factoid) Result {
	text := f.Value
	if f.Relation != model.RelReply {
		text = f.Subject + " " + f.Verb() + " " + f.Value
	}
	return ok(text, session.Database(f.ID))
}

func (e *Engine) compileAll(facts []model.Factoid) []Result {
	out := make([]Result, len(facts))
	for i, f := range facts {
		out[i] = compileFact(f)
	}
	return out
}

// keyQuery answers "subject ~= key" with one fact whose value matches key.
func (e *Engine) keyQuery(ctx context.Context, subject, key string) Result {
	facts, err := e.factQuery(ctx, subject, true)
	if err != nil {
		return e.resultOf(err)
	}
	re := looseRegexp(key)
	var match []model.Factoid
	for _, f := range facts {
		if re.MatchString(f.Value) {
			match = append(match, f)
		}
	}
	if len(match) == 0 {
		return e.dontKnow(Missing)
	}
	return compileFact(match[e.intn(len(match))])
}

// lookup lists every fact whose value contains value.
func (e *Engine) lookup(ctx context.Context, value string) Result {
	docs, err := e.store.Search(ctx, "factoids", "factoid", value)
	if err != nil {
		return e.resultOf(err)
	}
	var rows []listRow
	for _, d := range docs {
		f, err := model.FactoidFromDoc(d)
		if err != nil {
			return e.resultOf(err)
		}
		if f.IsAlias() {
			continue
		}
		rows = append(rows, listRow{Item: f.Subject, Col1: f.Relation, Col2: f.Value, ID: f.ID})
	}
	if len(rows) == 0 {
		return e.dontKnow(Missing)
	}
	page, trace := e.makeList(session.SourceList, rows, 2)
	return Result{Code: Success, Text: `"` + value + `":` + "\n" + page, Trace: trace, Raw: true}
}

// literal lists the raw facts of a subject with their flags.
func (e *Engine) literal(ctx context.Context, subject string) Result {
	facts, err := e.factQuery(ctx, subject, true)
	if err != nil {
		return e.resultOf(err)
	}

	head := textfmt.Quote(subject) + ":"
	if textfmt.Depunctuate(subject) != facts[0].SubjectKey {
		head = textfmt.Quote(subject) + " => " + textfmt.Quote(facts[0].Subject) + ":"
	}
	tags := ""
	if facts[0].Cached {
		tags += "(cached)"
	}
	if facts[0].Protected {
		tags += "(protected)"
	}
	if tags != "" {
		head += "\n" + tags
	}

	rows := make([]listRow, len(facts))
	for i, f := range facts {
		rows[i] = listRow{Item: f.Relation, Col1: f.Value, ID: f.ID}
	}
	page, trace := e.makeList(session.SourceList, rows, 1)
	return Result{Code: Success, Text: head + "\n" + page, Trace: trace, Raw: true}
}

// randomFact picks uniformly among all non-alias facts.
func (e *Engine) randomFact(ctx context.Context) Result {
	n, err := e.factCount(ctx)
	if err != nil {
		return e.resultOf(err)
	}
	if n == 0 {
		return e.dontKnow(Missing)
	}
	rows, err := e.store.Query(ctx, store.QueryParams{View: store.ViewNonAlias, FullDocs: true, Limit: 1, Skip: e.intn(n)})
	if err != nil {
		return e.resultOf(err)
	}
	if len(rows) == 0 {
		return e.dontKnow(Missing)
	}
	f, err := model.FactoidFromDoc(*rows[0].Doc)
	if err != nil {
		return e.resultOf(err)
	}
	return compileFact(f)
}

func (e *Engine) factCount(ctx context.Context) (int, error) {
	rows, err := e.store.Query(ctx, store.QueryParams{View: store.ViewNonAliasCount})
	if err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

func (e *Engine) subjectCount(ctx context.Context) (int, error) {
	rows, err := e.store.Query(ctx, store.QueryParams{View: store.ViewNonAliasCount, Group: true})
	if err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return len(rows), nil
}

// getLast resolves the trace at index; -1 means "that".
func (e *Engine) getLast(index int) (session.Target, error) {
	return e.state.Trace.Resolve(index)
}

// fetchFact loads one fact document by id.
func (e *Engine) fetchFact(ctx context.Context, id string) (model.Factoid, error) {
	docs, err := e.store.Fetch(ctx, id)
	if err != nil {
		return model.Factoid{}, err
	}
	if docs[0].Kind != model.KindFact {
		return model.Factoid{}, fmt.Errorf("doc %s is a %s: %w", id, docs[0].Kind, errMissing)
	}
	return model.FactoidFromDoc(docs[0])
}
