package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/textfmt"
)

// promote moves the listed user at index one role up, or down when on is
// false.
func (e *Engine) promote(ctx context.Context, on bool, index int, b *bag) Result {
	t, err := e.getLast(index)
	if err != nil {
		return e.resultOf(err)
	}
	if t.Source != session.SourceUserList {
		return e.dontKnow(Missing)
	}
	user, found := e.users.Get(t.ID)
	if !found {
		return e.dontKnow(Missing)
	}

	role := user.Role + 1
	if !on {
		role = user.Role - 1
	}
	if !role.Valid() {
		return fail(Denied, "Sorry, $who, I can't do that.")
	}
	return e.changeRole(ctx, user, role, b)
}

// changeRole sets user's role. Nobody changes their own role or grants a
// role at or above their own.
func (e *Engine) changeRole(ctx context.Context, user model.User, role model.Role, b *bag) Result {
	if user.ExternalID == b.UserID || b.Role <= role {
		return e.denied()
	}
	prev, was := user.Doc(), user.Role
	user.Role = role
	if _, err := e.store.Post(ctx, user.Doc()); err != nil {
		return e.resultOf(err)
	}
	if err := e.refresh(ctx, session.RefreshUsers); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, []model.Doc{restoreDoc(prev)}, model.RoleAdmin, session.RefreshUsers,
		"Okay $who, "+user.Name+" is "+was.String()+" again.")
	e.log.Info("role changed", zap.String("user", user.Name), zap.Stringer("role", role), zap.String("by", b.Name))
	return ok("Okay, $who", nil)
}

// remUser forgets a user by external id.
func (e *Engine) remUser(ctx context.Context, id string, b *bag) Result {
	if !allowed(b, model.RoleAdmin) {
		return e.denied()
	}
	user, found := e.users.Get(id)
	if !found || user.ID == "" {
		return e.dontKnow(Missing)
	}
	old, err := e.store.Delete(ctx, user.Doc())
	if err != nil {
		return e.resultOf(err)
	}
	if err := e.refresh(ctx, session.RefreshUsers); err != nil {
		return e.resultOf(err)
	}
	q := textfmt.Quote(user.Name)
	e.setUndo(b, []model.Doc{restoreDoc(old[0])}, model.RoleAdmin, session.RefreshUsers, "Okay $who, user "+q+" unforgot.")
	return ok("Okay, $who, forgot user "+q, nil)
}
