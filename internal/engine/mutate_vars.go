package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/textfmt"
)

// addValue appends value to a variable. Values of a protected variable
// inherit the protection and need op.
func (e *Engine) addValue(ctx context.Context, name, value string, b *bag) Result {
	name = strings.ToLower(name)
	if name == "" || model.ReservedVars[name] {
		return e.denied()
	}

	docs, err := e.varDocs(ctx, name)
	if err != nil {
		return e.resultOf(err)
	}
	protected := false
	for _, d := range docs {
		v, err := model.VariableFromDoc(d)
		if err != nil {
			return e.resultOf(err)
		}
		if v.Value == value {
			return fail(Conflict, alreadyHad)
		}
		protected = protected || v.Protected
	}
	if protected && !allowed(b, model.RoleOp) {
		return e.denied()
	}

	v := model.Variable{Name: name, Value: value, Protected: protected, AddedBy: b.UserID, Added: b.Time}
	res, err := e.store.Post(ctx, v.Doc())
	if err != nil {
		return e.resultOf(err)
	}
	if err := e.refresh(ctx, session.RefreshVars); err != nil {
		return e.resultOf(err)
	}
	id := res[0].ID
	e.setUndo(b, []model.Doc{tombstone(id)}, model.RoleOp, session.RefreshVars,
		"Okay $who, forgot "+name+" "+textfmt.Quote(value))
	e.log.Info("value added", zap.String("var", name), zap.String("value", value), zap.String("from", b.Name))
	return ok("Okay, $who, learned new "+name+" "+textfmt.Quote(value),
		session.List(session.SourceVarList, []string{id}, nil))
}

// remValue forgets one variable value by id.
func (e *Engine) remValue(ctx context.Context, id string, b *bag) Result {
	if !allowed(b, model.RoleOp) {
		return e.denied()
	}
	docs, err := e.store.Fetch(ctx, id)
	if err != nil {
		return e.resultOf(err)
	}
	if docs[0].Kind != model.KindVar {
		return e.dontKnow(Missing)
	}
	old, err := e.store.Delete(ctx, docs[0])
	if err != nil {
		return e.resultOf(err)
	}
	v, err := model.VariableFromDoc(old[0])
	if err != nil {
		return e.resultOf(err)
	}
	if err := e.refresh(ctx, session.RefreshVars); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, []model.Doc{restoreDoc(old[0])}, model.RoleOp, session.RefreshVars,
		"Okay $who, un-forgot "+v.Name+" "+textfmt.Quote(v.Value))
	return ok("Okay, $who, forgot "+v.Name+" "+textfmt.Quote(v.Value), nil)
}

// removeValue forgets a variable value given by its text.
func (e *Engine) removeValue(ctx context.Context, name, value string, b *bag) Result {
	docs, err := e.varDocs(ctx, strings.ToLower(name))
	if err != nil {
		return e.resultOf(err)
	}
	for _, d := range docs {
		v, err := model.VariableFromDoc(d)
		if err != nil {
			return e.resultOf(err)
		}
		if v.Value == value {
			return e.remValue(ctx, v.ID, b)
		}
	}
	return e.dontKnow(Missing)
}

func (e *Engine) varDocs(ctx context.Context, name string) ([]model.Doc, error) {
	rows, err := e.store.Query(ctx, store.QueryParams{View: store.ViewVars, Key: name, FullDocs: true})
	if err != nil {
		return nil, err
	}
	docs := make([]model.Doc, len(rows))
	for i, row := range rows {
		docs[i] = *row.Doc
	}
	return docs, nil
}

// remVar forgets every value of a variable.
func (e *Engine) remVar(ctx context.Context, name string, b *bag) Result {
	if !allowed(b, model.RoleOp) {
		return e.denied()
	}
	name = strings.ToLower(name)
	docs, err := e.varDocs(ctx, name)
	if err != nil {
		return e.resultOf(err)
	}
	if len(docs) == 0 {
		return e.dontKnow(Missing)
	}
	old, err := e.store.Delete(ctx, docs...)
	if err != nil {
		return e.resultOf(err)
	}
	restore := make([]model.Doc, len(old))
	for i, d := range old {
		restore[i] = restoreDoc(d)
	}
	if err := e.refresh(ctx, session.RefreshVars); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, restore, model.RoleOp, session.RefreshVars, "Okay $who, un-forgot var "+textfmt.Quote(name))
	e.log.Info("var removed", zap.String("var", name), zap.Int("values", len(old)))
	return ok("Okay, $who, removed var "+textfmt.Quote(name), nil)
}

// protectVar sets the protection flag on every value of a variable.
func (e *Engine) protectVar(ctx context.Context, on bool, name string, b *bag) Result {
	if !allowed(b, model.RoleOp) {
		return e.denied()
	}
	name = strings.ToLower(name)
	docs, err := e.varDocs(ctx, name)
	if err != nil {
		return e.resultOf(err)
	}
	if len(docs) == 0 {
		return e.dontKnow(Missing)
	}

	var writes, restore []model.Doc
	for _, d := range docs {
		v, err := model.VariableFromDoc(d)
		if err != nil {
			return e.resultOf(err)
		}
		if v.Protected == on {
			continue
		}
		restore = append(restore, restoreDoc(d))
		v.Protected = on
		writes = append(writes, v.Doc())
	}
	if len(writes) == 0 {
		if on {
			return fail(Conflict, "$who, that var is already protected.")
		}
		return fail(Conflict, "$who, that var is not protected.")
	}

	if _, err := e.store.Post(ctx, writes...); err != nil {
		return e.resultOf(err)
	}
	if err := e.refresh(ctx, session.RefreshVars); err != nil {
		return e.resultOf(err)
	}

	q := textfmt.Quote(name)
	if on {
		e.setUndo(b, restore, model.RoleOp, session.RefreshVars, "Okay $who, no longer protecting var "+q+".")
		return ok("Okay, $who, protecting var "+q+".", nil)
	}
	e.setUndo(b, restore, model.RoleOp, session.RefreshVars, "Okay $who, protecting var "+q+" again.")
	return ok("Okay, $who, no longer protecting var "+q+".", nil)
}
