package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
)

// Load picks the newest stored session matching signature and version and
// deletes every other snapshot, including those saved under another
// signature. It returns nil when no compatible snapshot exists.
func Load(ctx context.Context, st store.Store, version, signature string, log *zap.Logger) (*State, error) {
	rows, err := st.Query(ctx, store.QueryParams{View: store.ViewStates, FullDocs: true})
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var best *State
	var stale []model.Doc
	for _, row := range rows {
		var s State
		if err := row.Doc.Decode(&s); err != nil {
			log.Warn("discarding unreadable state", zap.String("id", row.ID), zap.Error(err))
			stale = append(stale, *row.Doc)
			continue
		}
		s.ID, s.Rev = row.Doc.ID, row.Doc.Rev
		if s.Version != version || s.Signature != signature {
			stale = append(stale, *row.Doc)
			continue
		}
		if best == nil || s.Saved.After(best.Saved) {
			if best != nil {
				stale = append(stale, model.Doc{ID: best.ID, Rev: best.Rev})
			}
			cur := s
			best = &cur
			continue
		}
		stale = append(stale, *row.Doc)
	}

	if len(stale) > 0 {
		if _, err := st.Delete(ctx, stale...); err != nil {
			log.Warn("removing old states failed", zap.Int("count", len(stale)), zap.Error(err))
		} else {
			log.Info("old states removed", zap.Int("count", len(stale)))
		}
	}
	return best, nil
}

// Save overwrites the stored snapshot with s.
func (s *State) Save(ctx context.Context, st store.Store, now time.Time) error {
	s.Saved = now
	res, err := st.Post(ctx, model.StateDoc(s.ID, s.Rev, s.Signature, s))
	if errors.Is(err, store.ErrConflict) {
		// Someone else wrote the snapshot; take their revision and overwrite.
		docs, ferr := st.Fetch(ctx, s.ID)
		if ferr != nil {
			return fmt.Errorf("save state: %w", ferr)
		}
		s.Rev = docs[0].Rev
		res, err = st.Post(ctx, model.StateDoc(s.ID, s.Rev, s.Signature, s))
	}
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.ID, s.Rev = res[0].ID, res[0].Rev
	return nil
}
