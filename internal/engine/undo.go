package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/cache"
	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
)

// setUndo replaces the undo slot with docs that reverse the change just made.
func (e *Engine) setUndo(b *bag, docs []model.Doc, floor model.Role, refresh session.Refresh, response string) {
	e.state.SetUndo(&session.Undo{
		Actor:    b.UserID,
		Docs:     docs,
		Floor:    floor,
		Response: response,
		Refresh:  refresh,
	})
}

// restoreDoc returns d ready to be written back in full.
func restoreDoc(d model.Doc) model.Doc {
	d.Rev = ""
	d.Deleted = false
	return d
}

func tombstone(id string) model.Doc {
	return model.Doc{ID: id, Deleted: true}
}

// undo replays the undo slot. Anyone other than the actor needs the
// record's role floor; a refused undo leaves the slot in place.
func (e *Engine) undo(ctx context.Context, b *bag) Result {
	u := e.state.Undo
	if u == nil {
		return fail(Missing, "Sorry, $who, I can't undo that")
	}
	if u.Actor != b.UserID && !allowed(b, u.Floor) {
		return e.denied()
	}
	e.state.TakeUndo()

	docs := make([]model.Doc, 0, len(u.Docs))
	for _, d := range u.Docs {
		cur, err := e.store.Fetch(ctx, d.ID)
		switch {
		case err == nil:
			d.Rev = cur[0].Rev
		case errors.Is(err, store.ErrNotFound):
			if d.Deleted {
				continue
			}
			d.Rev = ""
		default:
			return e.resultOf(err)
		}
		docs = append(docs, d)
	}
	if len(docs) > 0 {
		if _, err := e.store.Post(ctx, docs...); err != nil {
			return e.resultOf(fmt.Errorf("undo: %w", err))
		}
	}
	if err := e.refresh(ctx, u.Refresh); err != nil {
		return e.resultOf(err)
	}
	e.log.Info("undone", zap.String("by", b.Name), zap.Int("docs", len(docs)))
	return ok(u.Response, nil)
}

// refresh rebuilds the cache an operation touched.
func (e *Engine) refresh(ctx context.Context, r session.Refresh) error {
	var err error
	switch r {
	case session.RefreshVars:
		_, err = e.vars.Rebuild(ctx, e.store)
	case session.RefreshSyllables:
		_, err = cache.RebuildSyllables(ctx, e.store, e.syll)
	case session.RefreshUsers:
		_, err = e.users.Rebuild(ctx, e.store)
	case session.RefreshFacts:
		_, err = e.replies.Rebuild(ctx, e.store)
	}
	return err
}
