package engine

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/textfmt"
)

var reMultiWord = regexp.MustCompile(`\w+\s+\w+`)

// addSyllables teaches the syllable count of a single word.
func (e *Engine) addSyllables(ctx context.Context, word string, count int, b *bag) Result {
	if reMultiWord.MatchString(word) {
		return fail(Failed, "Sorry, $who, I can only learn syllables for one word at a time.")
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if n, found := e.syll.Lookup(word); found && n == count {
		return fail(Conflict, alreadyHad)
	}

	rows, err := e.store.Query(ctx, store.QueryParams{View: store.ViewSyllables, Key: word, FullDocs: true})
	if err != nil {
		return e.resultOf(err)
	}

	var undo model.Doc
	var response string
	if len(rows) == 0 {
		res, err := e.store.Post(ctx, model.Syllable{Word: word, Count: count}.Doc())
		if err != nil {
			return e.resultOf(err)
		}
		undo = tombstone(res[0].ID)
		response = "Okay $who, forgot syllables for " + textfmt.Quote(word) + "."
	} else {
		s, err := model.SyllableFromDoc(*rows[0].Doc)
		if err != nil {
			return e.resultOf(err)
		}
		undo = restoreDoc(*rows[0].Doc)
		s.Count = count
		if _, err := e.store.Post(ctx, s.Doc()); err != nil {
			return e.resultOf(err)
		}
		response = "Okay $who, syllables reverted."
	}

	if err := e.refresh(ctx, session.RefreshSyllables); err != nil {
		return e.resultOf(err)
	}
	e.setUndo(b, []model.Doc{undo}, model.RoleOp, session.RefreshSyllables, response)
	e.log.Info("syllables learned", zap.String("word", word), zap.Int("count", count))
	return ok("Okay, $who", nil)
}

// changeKey applies a set, enable, disable or reset of a config key.
func (e *Engine) changeKey(ctx context.Context, mode, key, value string, b *bag) Result {
	switch mode {
	case "set", "enable", "disable", "reset":
	default:
		return fail(Failed, "Sorry $who, "+textfmt.Quote(mode)+" is not a valid command.")
	}
	if !allowed(b, model.RoleOp) {
		return e.denied()
	}
	if mode == "set" && value == "" {
		return fail(Failed, "Sorry, $who, please provide a value for "+textfmt.Quote(key))
	}
	k, found := e.cfg.Schema(key)
	if !found || k.Hidden {
		return fail(Missing, "Sorry, $who, Key: "+textfmt.Quote(key)+" not found.")
	}

	var err error
	switch {
	case mode == "set":
		err = e.cfg.Set(key, value)
	case mode == "reset":
		err = e.cfg.Reset(key)
	case k.Plugin && mode == "enable":
		err = e.cfg.Set(key, config.PluginDefault)
	case k.Plugin:
		err = e.cfg.Set(key, 0)
	case k.Type == config.Bool:
		err = e.cfg.Set(key, mode == "enable")
	default:
		return fail(Failed, "Sorry, $who, "+textfmt.Quote(key)+" can't be "+mode+"d.")
	}
	if errors.Is(err, config.ErrType) {
		return fail(Failed, "Sorry, $who, "+textfmt.Quote(value)+" is not a valid "+k.Type.String()+".")
	}
	if err != nil {
		return e.resultOf(err)
	}

	switch {
	case strings.HasPrefix(key, "reminder_"):
		e.syncReminder()
	case key == "outburst":
		e.refreshOutburst(b.Time)
	}
	if err := e.saveState(ctx); err != nil {
		e.log.Warn("saving session failed", zap.Error(err))
	}
	e.log.Info("configuration updated", zap.String("key", key), zap.Any("value", e.cfg.Snapshot()[key]), zap.String("by", b.Name))
	return ok("Okay $who, configuration updated.", nil)
}
