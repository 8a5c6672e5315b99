package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/parse"
	"github.com/rcliao/brick/internal/syllable"
)

// Subjective mute spans as [min, max] seconds.
var muteSpans = map[string][2]int{
	"moment": {30, 90},
	"bit":    {240, 480},
	"while":  {1800, 3600},
}

// command runs a matched command. handled is false when the command does
// not apply and the message should be treated as conversation instead.
func (e *Engine) command(ctx context.Context, b *bag, cmd parse.Command) (r Result, handled bool, err error) {
	switch cmd.Kind {
	case parse.KindMute:
		if cmd.Exact && !allowed(b, model.RoleOp) {
			return e.denied(), true, nil
		}
		e.state.MuteFor(e.muteDuration(cmd), b.Time)
		e.log.Info("muted", zap.String("by", b.Name), zap.Int64("until", e.state.Mute))
		return ok("Okay, $who, I'll be back later", nil), true, nil

	case parse.KindUnmute:
		if !e.state.Muted(b.Time) || !allowed(b, model.RoleOp) {
			return Result{}, false, nil
		}
		e.state.Unmute()
		e.log.Info("mute ended", zap.String("by", b.Name))
		return ok("Okay, $who", nil), true, nil

	case parse.KindRestart:
		if !allowed(b, model.RoleOp) {
			return e.denied(), true, nil
		}
		if err := e.loadCaches(ctx, e.cfg.Bool("caching")); err != nil {
			return e.resultOf(err), true, nil
		}
		return ok("Ready to Answer All Bells", nil), true, nil

	case parse.KindRefresh:
		if !allowed(b, model.RoleOp) {
			return e.denied(), true, nil
		}
		if err := e.loadCaches(ctx, true); err != nil {
			return e.resultOf(err), true, nil
		}
		return ok("Okay $who, cache updated.", nil), true, nil

	case parse.KindCache:
		key, res, found := e.tagTarget(ctx, cmd)
		if !found {
			return res, true, nil
		}
		var protect *bool
		if cmd.On {
			protect = &cmd.On
		}
		return e.tagFacts(ctx, key, &cmd.On, protect, b), true, nil

	case parse.KindProtect:
		key, res, found := e.tagTarget(ctx, cmd)
		if !found {
			return res, true, nil
		}
		return e.tagFacts(ctx, key, nil, &cmd.On, b), true, nil

	case parse.KindProtectVar:
		return e.protectVar(ctx, cmd.On, cmd.Var, b), true, nil

	case parse.KindSyllableTeach:
		return e.addSyllables(ctx, cmd.Subject, cmd.Count, b), true, nil

	case parse.KindSyllableQuery:
		n := syllable.Text(e.syll, cmd.Subject)
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return ok(fmt.Sprintf(`$who, "%s" has %d syllable%s`, cmd.Subject, n, plural), nil), true, nil

	case parse.KindKeyQuery:
		return e.keyQuery(ctx, cmd.Subject, cmd.Key), true, nil

	case parse.KindLookup:
		return e.lookup(ctx, cmd.Subject), true, nil

	case parse.KindLiteral:
		return e.literal(ctx, cmd.Subject), true, nil

	case parse.KindWhatWasThat:
		return e.whatWasThat(ctx), true, nil

	case parse.KindEdit:
		return e.editFact(ctx, cmd.Index, cmd.Value, cmd.Old, b), true, nil

	case parse.KindDelete:
		return e.remove(ctx, cmd.Index, b), true, nil

	case parse.KindAlias:
		return e.alias(ctx, cmd.Subject, cmd.Value, b), true, nil

	case parse.KindUnalias:
		return e.unalias(ctx, cmd.Subject, b), true, nil

	case parse.KindMerge:
		return e.merge(ctx, cmd.Subject, cmd.Value, b), true, nil

	case parse.KindVersion:
		return ok("$who, I am version "+Version, nil), true, nil

	case parse.KindStats:
		return Result{Code: Success, Text: e.statusString(ctx, b.Time), Raw: true}, true, nil

	case parse.KindListUsers:
		return e.userList(), true, nil

	case parse.KindListVars:
		if cmd.All {
			return e.varList(""), true, nil
		}
		return e.varList(cmd.Var), true, nil

	case parse.KindMore:
		if !e.state.Trace.Paged() {
			return Result{}, false, nil
		}
		page := e.state.Trace.Iterate()
		return Result{Code: Success, Text: page, Trace: e.state.Trace, Raw: true}, true, nil

	case parse.KindConfig:
		if cmd.Mode == "get" || cmd.Mode == "list" {
			switch cmd.Key {
			case "keys":
				return e.keyList(), true, nil
			case "plugins":
				return e.pluginList(), true, nil
			}
			if k, found := e.cfg.Schema(cmd.Key); found && !k.Hidden {
				return e.keyValue(k), true, nil
			}
		}
		return e.changeKey(ctx, cmd.Mode, cmd.Key, cmd.Value, b), true, nil

	case parse.KindPromote:
		return e.promote(ctx, cmd.On, cmd.Index, b), true, nil

	case parse.KindAddValue:
		return e.addValue(ctx, cmd.Var, cmd.Value, b), true, nil

	case parse.KindRemoveValue:
		return e.removeValue(ctx, cmd.Var, cmd.Value, b), true, nil

	case parse.KindRemoveVar:
		return e.remVar(ctx, cmd.Var, b), true, nil

	case parse.KindUndo:
		return e.undo(ctx, b), true, nil

	case parse.KindEcho, parse.KindCrash:
		if !e.cfg.Bool("devmode") || !allowed(b, model.RoleAdmin) {
			return Result{}, false, nil
		}
		if cmd.Kind == parse.KindCrash {
			e.log.Warn("crash requested", zap.String("by", b.Name))
			return Result{}, true, ErrCrash
		}
		return ok(cmd.Subject, nil), true, nil
	}
	return Result{}, false, nil
}

func (e *Engine) muteDuration(cmd parse.Command) time.Duration {
	if span, found := muteSpans[cmd.Span]; found {
		return time.Duration(span[0]+e.intn(span[1]-span[0]+1)) * time.Second
	}
	if cmd.Count > 0 {
		return time.Duration(cmd.Count) * time.Second
	}
	return time.Duration(e.cfg.Int("mutetime")) * time.Second
}

// tagTarget finds the subject key a cache or protect command acts on.
func (e *Engine) tagTarget(ctx context.Context, cmd parse.Command) (string, Result, bool) {
	if !cmd.HasIndex {
		return cmd.Subject, Result{}, true
	}
	t, err := e.getLast(cmd.Index)
	if err != nil {
		return "", e.resultOf(err), false
	}
	if t.ID == "" {
		return "", e.dontKnow(Missing), false
	}
	f, err := e.fetchFact(ctx, t.ID)
	if err != nil {
		return "", e.resultOf(err), false
	}
	return f.SubjectKey, Result{}, true
}
