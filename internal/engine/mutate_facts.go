package engine

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/textfmt"
)

// Subjects that can never be taught.
var forbiddenSubjects = map[string]bool{"that": true}

var reVarRef = regexp.MustCompile(`\$(\S+)`)

const alreadyHad = "I already had it that way, $who"

// newFact stores subject relation value. Facts taught to an alias are
// stored under the subject the alias leads to.
func (e *Engine) newFact(ctx context.Context, subject, relation, value string, b *bag) Result {
	key := textfmt.Depunctuate(subject)
	if key == "" || forbiddenSubjects[key] {
		return e.denied()
	}
	if selfcheck(subject, b.Name) && !allowed(b, model.RoleAdmin) {
		return e.denied()
	}

	facts, err := e.subjectFacts(ctx, key)
	if err != nil {
		return e.resultOf(err)
	}
	if len(facts) > 0 && facts[0].IsAlias() && relation != model.RelAlias {
		if facts, err = e.factQuery(ctx, subject, true); err != nil {
			return e.resultOf(err)
		}
		subject, key = facts[0].Subject, facts[0].SubjectKey
	}

	var protected, cached bool
	for _, f := range facts {
		if f.Value == value && f.Relation == relation {
			return fail(Conflict, alreadyHad)
		}
		protected = protected || f.Protected
		cached = cached || f.Cached
	}
	if protected && !allowed(b, model.RoleOp) {
		return e.denied()
	}

	f := model.Factoid{
		Subject:    subject,
		SubjectKey: key,
		Relation:   relation,
		Value:      value,
		Cached:     cached,
		Protected:  protected,
		AddedBy:    b.UserID,
		Added:      b.Time,
	}
	res, err := e.store.Post(ctx, f.Doc())
	if err != nil {
		return e.resultOf(err)
	}
	f.ID = res[0].ID

	refresh := session.RefreshNone
	if cached {
		refresh = session.RefreshFacts
		if err := e.refresh(ctx, refresh); err != nil {
			return e.resultOf(err)
		}
	}
	e.setUndo(b, []model.Doc{tombstone(f.ID)}, model.RoleOp, refresh,
		"Okay $who, forgot "+textfmt.Quote(subject)+" "+relation+" "+textfmt.Quote(value)+".")
	e.log.Info("learned",
		zap.String("subject", subject),
		zap.String("relation", relation),
		zap.String("value", value),
		zap.String("from", b.Name))
	return ok("Okay, $who", session.Database(f.ID))
}

// mayChange applies the shared edit rules: self-edits need admin, other
// people's facts need op.
func mayChange(f model.Factoid, b *bag) bool {
	if selfcheck(f.Subject, b.Name) && !allowed(b, model.RoleAdmin) {
		return false
	}
	return owner(f, b.UserID) || allowed(b, model.RoleOp)
}

// editFact rewrites the value of the fact at index, replacing matches of
// old with repl.
func (e *Engine) editFact(ctx context.Context, index int, repl, old string, b *bag) Result {
	t, err := e.getLast(index)
	if err != nil {
		return e.resultOf(err)
	}
	if t.Source != session.SourceDatabase && t.Source != session.SourceList {
		return e.dontKnow(Missing)
	}
	f, err := e.fetchFact(ctx, t.ID)
	if err != nil {
		return e.resultOf(err)
	}
	if !mayChange(f, b) {
		return e.denied()
	}

	re, err := regexp.Compile(old)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(old))
	}
	prev := f.Doc()
	f.Value = re.ReplaceAllLiteralString(f.Value, repl)
	if f.Value == "" {
		return fail(Conflict, "Sorry, $who, a factoid can't be empty.")
	}
	if string(f.Doc().Data) == string(prev.Data) {
		return fail(Conflict, alreadyHad)
	}
	if _, err := e.store.Post(ctx, f.Doc()); err != nil {
		return e.resultOf(err)
	}

	refresh := session.RefreshNone
	if f.Cached {
		refresh = session.RefreshFacts
		if err := e.refresh(ctx, refresh); err != nil {
			return e.resultOf(err)
		}
	}
	e.setUndo(b, []model.Doc{restoreDoc(prev)}, model.RoleOp, refresh, "Okay $who, factoid reverted.")
	return ok("Okay, $who. Factoid updated.", nil)
}

// remFact forgets one fact. Variable references in the echoed value are
// frozen so they are not filled.
func (e *Engine) remFact(ctx context.Context, id string, b *bag) Result {
	f, err := e.fetchFact(ctx, id)
	if err != nil {
		return e.resultOf(err)
	}
	if !mayChange(f, b) {
		r := fail(Denied, "You can't take away my memories!")
		if e.intn(2) == 0 {
			r = e.cached(tagDenied, Denied)
		}
		return r
	}

	old, err := e.store.Delete(ctx, f.Doc())
	if err != nil {
		return e.resultOf(err)
	}
	refresh := session.RefreshNone
	if f.Cached {
		refresh = session.RefreshFacts
		if err := e.refresh(ctx, refresh); err != nil {
			return e.resultOf(err)
		}
	}
	e.setUndo(b, []model.Doc{restoreDoc(old[0])}, model.RoleOp, refresh, "Okay $who, factoid unforgot.")
	e.log.Info("forgot", zap.String("subject", f.Subject), zap.String("relation", f.Relation), zap.String("value", f.Value))

	frozen := reVarRef.ReplaceAllString(f.Value, "[$1]")
	return ok("Okay, $who, forgot "+textfmt.Quote(f.Subject)+" "+f.Relation+" "+textfmt.Quote(frozen), nil)
}

// alias points src at dst, creating the alias or retargeting an existing one.
func (e *Engine) alias(ctx context.Context, src, dst string, b *bag) Result {
	srcKey, dstKey := textfmt.Depunctuate(src), textfmt.Depunctuate(dst)
	if srcKey == dstKey {
		return fail(Conflict, alreadyHad)
	}

	facts, err := e.factQuery(ctx, src, false)
	if errors.Is(err, errMissing) {
		r := e.newFact(ctx, src, model.RelAlias, dstKey, b)
		if r.Code != Success {
			return r
		}
		return ok("Okay, $who", r.Trace)
	}
	if err != nil {
		return e.resultOf(err)
	}

	f := facts[0]
	if !f.IsAlias() {
		return fail(Conflict, "Sorry, $who, there is already a factoid for "+textfmt.Quote(src))
	}
	if f.Value == dstKey {
		return fail(Conflict, alreadyHad)
	}
	if !mayChange(f, b) {
		return e.denied()
	}
	prev := f.Doc()
	f.Value = dstKey
	if _, err := e.store.Post(ctx, f.Doc()); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, []model.Doc{restoreDoc(prev)}, model.RoleOp, session.RefreshNone, "Okay $who, alias restored.")
	return ok("Okay, $who", session.Database(f.ID))
}

// unalias removes the alias stored for subject.
func (e *Engine) unalias(ctx context.Context, subject string, b *bag) Result {
	facts, err := e.factQuery(ctx, subject, false)
	if err != nil {
		return e.resultOf(err)
	}
	if !facts[0].IsAlias() {
		return fail(Conflict, alreadyHad)
	}
	return e.remFact(ctx, facts[0].ID, b)
}

// merge moves every fact of src to dst and leaves an alias behind. Values
// dst already holds are dropped and the moved facts take dst's flags.
func (e *Engine) merge(ctx context.Context, src, dst string, b *bag) Result {
	if !allowed(b, model.RoleOp) {
		return e.denied()
	}
	srcKey, dstKey := textfmt.Depunctuate(src), textfmt.Depunctuate(dst)
	if srcKey == dstKey {
		return fail(Conflict, alreadyHad)
	}

	srcFacts, err := e.factQuery(ctx, src, false)
	if err != nil {
		return e.resultOf(err)
	}

	var dstFacts []model.Factoid
	dstProp := properties{SubjectKey: dstKey}
	switch facts, err := e.factQuery(ctx, dst, false); {
	case errors.Is(err, errMissing):
	case err != nil:
		return e.resultOf(err)
	default:
		prop, err := common(facts)
		if err != nil {
			return e.resultOf(err)
		}
		if prop.Alias {
			return fail(Conflict, "Sorry, $who, but "+textfmt.Quote(dst)+" is an alias for "+textfmt.Quote(facts[0].Value)+".")
		}
		dstFacts, dstProp = facts, prop
	}

	held := make(map[string]bool, len(dstFacts))
	for _, f := range dstFacts {
		held[f.Value] = true
	}

	var writes, restore []model.Doc
	for _, f := range srcFacts {
		restore = append(restore, restoreDoc(f.Doc()))
		switch {
		case f.IsAlias() && textfmt.Depunctuate(f.Value) == dstKey:
			return fail(Conflict, alreadyHad)
		case f.IsAlias(), held[f.Value]:
			writes = append(writes, f.Doc().Tombstone())
		default:
			f.Subject, f.SubjectKey = dstKey, dstKey
			f.Cached, f.Protected = dstProp.Cached, dstProp.Protected
			writes = append(writes, f.Doc())
		}
	}

	link := model.Factoid{
		Subject:    src,
		SubjectKey: srcKey,
		Relation:   model.RelAlias,
		Value:      dstKey,
		Protected:  dstProp.Protected,
		AddedBy:    b.UserID,
		Added:      b.Time,
	}
	writes = append(writes, link.Doc())
	res, err := e.store.Post(ctx, writes...)
	if err != nil {
		return e.resultOf(err)
	}
	link.ID = res[len(res)-1].ID

	if err := e.refresh(ctx, session.RefreshFacts); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, append(restore, tombstone(link.ID)), model.RoleOp, session.RefreshFacts, "Okay $who, factoids unmerged.")
	e.log.Info("merged", zap.String("src", srcKey), zap.String("dst", dstKey), zap.Int("facts", len(srcFacts)))
	return ok("Okay, $who", nil)
}

// tagFacts sets the cached and protected flags of every fact of key. A nil
// flag is left alone.
func (e *Engine) tagFacts(ctx context.Context, key string, cached, protected *bool, b *bag) Result {
	if !allowed(b, model.RoleOp) {
		return e.denied()
	}
	facts, err := e.factQuery(ctx, key, false)
	if err != nil {
		return e.resultOf(err)
	}

	var writes, restore []model.Doc
	for _, f := range facts {
		changed := false
		prev := f.Doc()
		if cached != nil && f.Cached != *cached {
			f.Cached, changed = *cached, true
		}
		if protected != nil && f.Protected != *protected {
			f.Protected, changed = *protected, true
		}
		if changed {
			writes = append(writes, f.Doc())
			restore = append(restore, restoreDoc(prev))
		}
	}

	if len(writes) == 0 {
		q := textfmt.Quote(key)
		switch {
		case cached != nil && *cached:
			return fail(Conflict, "$who, "+q+" is already cached.")
		case protected != nil && *protected:
			return fail(Conflict, "$who, "+q+" is already protected.")
		case cached != nil:
			return fail(Conflict, "$who, "+q+" is not cached.")
		default:
			return fail(Conflict, "$who, "+q+" is not protected.")
		}
	}

	if _, err := e.store.Post(ctx, writes...); err != nil {
		return e.resultOf(err)
	}
	if err := e.refresh(ctx, session.RefreshFacts); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, restore, model.RoleOp, session.RefreshFacts, "Okay $who, factoids reverted.")
	e.log.Info("facts tagged", zap.String("subject", key), zap.Int("count", len(writes)))
	return ok("Okay, $who", nil)
}
