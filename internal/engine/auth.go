package engine

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/parse"
	"github.com/rcliao/brick/internal/store"
)

// prep splits out the addressee and loads the sender's role, recording the
// sender as a user on first contact.
func (e *Engine) prep(ctx context.Context, b *bag) {
	t := parse.Address(b.Text, e.botName())
	b.To, b.Msg, b.Addressed = t.To, t.Msg, t.Addressed

	user, known := e.users.Get(b.UserID)
	if !known {
		user = model.User{ExternalID: b.UserID, Role: model.RoleUser}
	}
	b.Role = user.Role

	user.Name = b.Name
	user.LastSeen = b.Time
	if err := e.saveUser(ctx, user); err != nil {
		e.log.Warn("updating user failed", zap.String("user_id", b.UserID), zap.Error(err))
	}
}

// saveUser writes u and refreshes its cache entry. A stale revision is
// retried once against the stored copy.
func (e *Engine) saveUser(ctx context.Context, u model.User) error {
	res, err := e.store.Post(ctx, u.Doc())
	if errors.Is(err, store.ErrConflict) {
		if _, rerr := e.users.Rebuild(ctx, e.store); rerr != nil {
			return rerr
		}
		if cur, ok := e.users.Get(u.ExternalID); ok {
			u.ID, u.Rev = cur.ID, cur.Rev
		}
		res, err = e.store.Post(ctx, u.Doc())
	}
	if err != nil {
		e.users.Put(u)
		return err
	}
	u.ID, u.Rev = res[0].ID, res[0].Rev
	e.users.Put(u)
	return nil
}

func allowed(b *bag, req model.Role) bool {
	return b.Role.AtLeast(req)
}

// selfcheck reports whether subject is the sender's own name or quote.
func selfcheck(subject, name string) bool {
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(name) + `(?:\s+quote)?$`)
	return re.MatchString(subject)
}

func owner(f model.Factoid, userID string) bool {
	return f.AddedBy != "" && f.AddedBy == userID
}
