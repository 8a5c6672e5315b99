package engine

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/metrics"
	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/parse"
	"github.com/rcliao/brick/internal/textfmt"
)

// core answers one message from someone other than the bot.
func (e *Engine) core(ctx context.Context, b *bag) (string, error) {
	e.prep(ctx, b)
	metrics.Messages.WithLabelValues(strconv.FormatBool(b.Addressed)).Inc()
	e.log.Debug("processing message",
		zap.String("name", b.Name),
		zap.Stringer("role", b.Role),
		zap.String("to", b.To),
		zap.String("msg", b.Msg))

	if e.state.Muted(b.Time) && !(b.Addressed && allowed(b, model.RoleOp)) {
		e.log.Debug("message ignored while muted")
		return "", nil
	}

	if cmd, found := parse.MatchCommand(b.Msg, b.Addressed); found {
		r, handled, err := e.command(ctx, b, cmd)
		if err != nil {
			return "", err
		}
		if handled {
			metrics.Commands.WithLabelValues(string(cmd.Kind), r.Code.String()).Inc()
			return e.say(r, b), nil
		}
	}

	if !b.Addressed && len(b.Msg) > e.cfg.Int("max_length") {
		e.log.Debug("long post ignored", zap.Int("length", len(b.Msg)))
		return "", nil
	}

	candidates := e.addressed(ctx, b)
	if len(candidates) == 0 {
		if b.Addressed || len(b.Msg) >= e.cfg.Int("min_length") {
			candidates = append(candidates, e.answers(ctx, b.Msg)...)
		}
		if subject, found := parse.Question(b.Msg); found {
			candidates = append(candidates, e.answers(ctx, subject)...)
		}
		more, err := e.runPlugins(ctx, b)
		if err != nil {
			return "", err
		}
		candidates = append(candidates, more...)
	}

	if len(candidates) == 0 {
		if b.Addressed {
			return e.say(e.dontKnow(Missing), b), nil
		}
		return "", nil
	}
	return e.say(candidates[e.intn(len(candidates))], b), nil
}

// answers compiles every fact known about subject.
func (e *Engine) answers(ctx context.Context, subject string) []Result {
	facts, err := e.factQuery(ctx, subject, true)
	switch {
	case errors.Is(err, errMissing):
		return nil
	case err != nil:
		e.log.Warn("fact lookup failed", zap.String("subject", subject), zap.Error(err))
		return nil
	}
	return e.compileAll(facts)
}

// addressed collects the conversational responses. Only "X is Y" applies
// to unaddressed messages, and only when learn_unaddressed is on.
func (e *Engine) addressed(ctx context.Context, b *bag) []Result {
	var out []Result
	if !b.Addressed {
		if !e.cfg.Bool("learn_unaddressed") {
			return nil
		}
		if f, found := parse.XisY(b.Msg); found {
			if r := e.xisy(ctx, f, b); r.Code == Success {
				out = append(out, r)
			}
		}
		return out
	}

	if parse.Random(b.Msg) {
		if r := e.randomFact(ctx); r.Code == Success {
			out = append(out, r)
		}
	}
	if options := parse.Choice(b.Msg); len(options) > 0 {
		out = append(out, e.choice(options))
	}
	if parse.YesNo(b.Msg) {
		out = append(out, e.cached("[yes or no]", Success))
	}
	if q, found := parse.Remember(b.Msg); found {
		if r := e.remember(ctx, q, b); r.Text != "" {
			out = append(out, r)
		}
	}
	if f, found := parse.XisY(b.Msg); found {
		if r := e.xisy(ctx, f, b); r.Text != "" {
			out = append(out, r)
		}
	}
	return out
}

// xisy learns "X is Y", mapping "you are" to the bot and "I am" to the
// sender.
func (e *Engine) xisy(ctx context.Context, f parse.Fact, b *bag) Result {
	subject, relation := f.Subject, f.Relation
	switch key := textfmt.Depunctuate(subject); {
	case key == "you" && relation == "<are>":
		subject, relation = e.botName(), model.RelIs
	case key == "i" && relation == "<am>":
		subject, relation = b.Name, model.RelIs
	}
	return e.newFact(ctx, subject, relation, f.Value, b)
}

// remember stores the newest post from name matching text as a quote.
func (e *Engine) remember(ctx context.Context, q parse.Quote, b *bag) Result {
	reName := looseRegexp(q.Name)
	reText := looseRegexp(q.Text)

	name, quote := "", ""
	for i := len(e.state.History) - 1; i >= 0; i-- {
		p := e.state.History[i]
		if reName.MatchString(p.Name) && reText.MatchString(p.Text) {
			name, quote = p.Name, p.Name+`: "`+p.Text+`"`
			break
		}
	}
	if name == "" {
		return fail(Missing, "Sorry, $who, I don't remember what "+q.Name+" said.")
	}

	key := textfmt.Depunctuate(name)
	if key == textfmt.Depunctuate(e.botName()) {
		return fail(Denied, "Sorry, $who, you aren't allowed to quote me.")
	}
	if key == textfmt.Depunctuate(b.Name) {
		return fail(Denied, "$who, please don't quote yourself.")
	}

	r := e.newFact(ctx, name+" quote", model.RelReply, quote, b)
	if r.Code != Success {
		return r
	}
	return ok("Okay, "+b.Name+", remembering "+quote, r.Trace)
}

// looseRegexp compiles s case-insensitively, or matches it literally when
// it is not a valid pattern.
func looseRegexp(s string) *regexp.Regexp {
	re, err := regexp.Compile("(?i)" + s)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
	}
	return re
}

// choice picks one option, or sometimes declines with a canned reply.
func (e *Engine) choice(options []string) Result {
	options = append(options, "")
	if c := options[e.intn(len(options))]; c != "" {
		return ok(c, nil)
	}
	if len(options) > 3 {
		return e.cached("[choice 3]", Success)
	}
	return e.cached("[choice 2]", Success)
}
