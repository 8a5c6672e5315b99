package engine

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/cache"
	"github.com/rcliao/brick/internal/metrics"
	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/textfmt"
)

const tagDenied = "[permission denied]"

// Used when no "[permission denied]" replies are cached.
var deniedReplies = []string{
	"Sorry, $who, I can't let you do that.",
	"$who, you don't have permission to do that.",
	"Nice try, $who.",
}

const unableReply = "Sorry, $who, I am unable to do that right now."

var (
	reVarName  = regexp.MustCompile(`\$(\w+)`)
	reSomebody = regexp.MustCompile(`(?i)\$(somebody)`)
)

// say renders r for posting and makes it the new trace. Placeholders are
// only filled when there is a message to fill them from.
func (e *Engine) say(r Result, b *bag) string {
	if r.Text == "" {
		return ""
	}
	t := r.Trace
	if t == nil {
		t = session.Internal(r.Text)
	}
	text := r.Text
	if b != nil && !r.Raw {
		text, t.Subs = e.fill(text, b)
	}
	e.state.SetTrace(t)
	return text
}

func (e *Engine) fill(text string, b *bag) (string, []session.Sub) {
	var subs []session.Sub
	bot := e.botName()

	if bot != "" {
		reSelf := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(bot) + `\s+is\s+`)
		if reSelf.MatchString(text) {
			text = reSelf.ReplaceAllLiteralString(text, "I am ")
			subs = append(subs, session.Sub{Var: bot + " is", Val: "I am"})
		}
	}

	text, subs = fillVar(text, "who", []string{b.Name}, e.intn, subs)

	text = reSomebody.ReplaceAllStringFunc(text, func(m string) string {
		return "$" + textfmt.MatchCase("someone", m[1:])
	})
	someone := e.users.Names()
	if len(someone) == 0 {
		someone = []string{"Somebody"}
	}
	text, subs = fillVar(text, "someone", someone, e.intn, subs)

	to := []string{b.To}
	if b.To == "" || strings.EqualFold(b.To, bot) {
		to = []string{"Somebody"}
		for _, n := range e.users.Names() {
			if !strings.EqualFold(n, b.Name) {
				to = append(to, n)
			}
		}
	}
	text, subs = fillVar(text, "to", to, e.intn, subs)

	seen := map[string]bool{}
	for _, m := range reVarName.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if seen[name] || model.ReservedVars[name] {
			continue
		}
		seen[name] = true
		if values := e.vars.Values(name); len(values) > 0 {
			text, subs = fillVar(text, name, values, e.intn, subs)
		}
	}
	return text, subs
}

// fillVar replaces every $name (or $name+) with a random value, matching
// the placeholder's case unless it is written in lower case.
func fillVar(text, name string, values []string, intn func(int) int, subs []session.Sub) (string, []session.Sub) {
	re := regexp.MustCompile(`(?i)\$(` + regexp.QuoteMeta(name) + `(?:\+|\b))`)
	pos := 0
	for pos <= len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		ph := text[pos+loc[2] : pos+loc[3]]

		val := values[intn(len(values))]
		if !lowercase(ph) {
			val = textfmt.MatchCase(val, ph)
		}
		text = text[:start] + val + text[end:]
		subs = append(subs, session.Sub{Var: "$" + ph, Val: val})
		pos = start + len(val)
	}
	return text, subs
}

func lowercase(s string) bool {
	return strings.ToLower(s) == s && strings.ToUpper(s) != s
}

// cached picks a canned reply for tag, falling back to "don't know".
func (e *Engine) cached(tag string, c Code) Result {
	r, found := e.replies.Pick(tag, e.intn)
	if !found {
		return fail(c, r.Text)
	}
	return Result{Code: c, Text: r.Text, Trace: session.Cached(r.ID)}
}

func (e *Engine) dontKnow(c Code) Result {
	return e.cached(cache.TagDontKnow, c)
}

func (e *Engine) denied() Result {
	if e.replies.Has(tagDenied) {
		return e.cached(tagDenied, Denied)
	}
	return fail(Denied, deniedReplies[e.intn(len(deniedReplies))])
}

// resultOf maps an error from a lookup or a store call to a reply.
func (e *Engine) resultOf(err error) Result {
	switch {
	case errors.Is(err, errMissing), errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrNoTarget):
		return e.dontKnow(Missing)
	case errors.Is(err, errConflict), errors.Is(err, session.ErrAmbiguous):
		return e.dontKnow(Conflict)
	}
	e.log.Error("store call failed", zap.Error(err))
	metrics.StoreErrors.Inc()
	return fail(Failed, unableReply)
}
