package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/textfmt"
)

// listRow is one line of a listing. ID is what "#N" resolves to.
type listRow struct {
	Item string
	Col1 string
	Col2 string
	ID   string
}

// makeList sorts rows by item, renders cols extra columns and pages the
// result. It returns the first page and the trace for the listing.
func (e *Engine) makeList(src session.Source, rows []listRow, cols int) (string, *session.Trace) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Item < rows[j].Item })

	items := make([]string, len(rows))
	var col1, col2, ids []string
	for i, r := range rows {
		items[i] = r.Item
		if cols >= 1 {
			col1 = append(col1, r.Col1)
		}
		if cols >= 2 {
			col2 = append(col2, r.Col2)
		}
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	pages := textfmt.Page(textfmt.Table(items, col1, col2), e.cfg.Int("list_limit"))
	return pages[0], session.List(src, ids, pages)
}

func (e *Engine) userList() Result {
	users := e.users.All()
	if len(users) == 0 {
		return e.dontKnow(Missing)
	}
	rows := make([]listRow, len(users))
	for i, u := range users {
		rows[i] = listRow{Item: u.Name, Col1: u.Role.String(), ID: u.ExternalID}
	}
	page, trace := e.makeList(session.SourceUserList, rows, 1)
	return Result{Code: Success, Text: "Users:\n" + page, Trace: trace, Raw: true}
}

// varList lists every variable, or the values of one when name is set.
func (e *Engine) varList(name string) Result {
	names := e.vars.Names()
	if len(names) == 0 {
		return e.dontKnow(Missing)
	}

	if name != "" {
		entries := e.vars.Entries(strings.ToLower(name))
		if len(entries) == 0 {
			return fail(Missing, "var: "+textfmt.Quote(name)+" not found")
		}
		rows := make([]listRow, len(entries))
		for i, v := range entries {
			rows[i] = listRow{Item: v.Text, ID: v.ID}
		}
		page, trace := e.makeList(session.SourceVarList, rows, 0)
		head := name + ":\n"
		if entries[0].Protected {
			head += "(protected)\n"
		}
		return Result{Code: Success, Text: head + page, Trace: trace, Raw: true}
	}

	rows := make([]listRow, len(names))
	for i, n := range names {
		rows[i] = listRow{Item: n}
		if entries := e.vars.Entries(n); len(entries) > 0 && entries[0].Protected {
			rows[i].Col1 = "(p)"
		}
	}
	page, trace := e.makeList(session.SourceList, rows, 1)
	return Result{Code: Success, Text: "Vars:\n" + page, Trace: trace, Raw: true}
}

func (e *Engine) keyList() Result {
	entries := e.cfg.Visible()
	if len(entries) == 0 {
		return e.dontKnow(Missing)
	}
	rows := make([]listRow, len(entries))
	for i, en := range entries {
		rows[i] = listRow{Item: en.Key, Col1: fmt.Sprint(en.Value)}
	}
	page, trace := e.makeList(session.SourceList, rows, 1)
	return Result{Code: Success, Text: "Keys:\n" + page, Trace: trace, Raw: true}
}

func (e *Engine) pluginList() Result {
	entries := e.cfg.Plugins()
	if len(entries) == 0 {
		return fail(Missing, "I'm not running any plugins, $who.")
	}
	rows := make([]listRow, len(entries))
	for i, en := range entries {
		val := "disabled"
		if n, _ := en.Value.(int); n > 0 {
			val = fmt.Sprintf("%d%%", n)
		}
		rows[i] = listRow{Item: en.Key, Col1: val}
	}
	page, trace := e.makeList(session.SourceList, rows, 1)
	return Result{Code: Success, Text: "Plugins:\n" + page, Trace: trace, Raw: true}
}

// keyValue reports one visible config key.
func (e *Engine) keyValue(k config.Key) Result {
	v, _ := e.cfg.Get(k.Name)
	return ok(fmt.Sprintf("%s: %v", k.Name, v), nil)
}

// whatWasThat explains the last response: the fact it came from and the
// substitutions made in it.
func (e *Engine) whatWasThat(ctx context.Context) Result {
	t, err := e.getLast(-1)
	if err != nil {
		return e.resultOf(err)
	}
	switch t.Source {
	case session.SourceInternal:
		return Result{Code: Success, Text: t.Response, Trace: e.state.Trace, Raw: true}
	case session.SourceCached, session.SourceDatabase:
	default:
		return e.dontKnow(Missing)
	}

	f, err := e.fetchFact(ctx, t.ID)
	if err != nil {
		if t.Source == session.SourceCached {
			if rerr := e.refresh(ctx, session.RefreshFacts); rerr != nil {
				return e.resultOf(rerr)
			}
		}
		return e.resultOf(err)
	}

	var sb strings.Builder
	sb.WriteString("That was " + textfmt.Quote(f.Subject) + " " + f.Relation + " " + textfmt.Quote(f.Value))
	for _, s := range t.Subs {
		sb.WriteString("\n" + textfmt.Quote(s.Var) + " => " + textfmt.Quote(s.Val))
	}
	return Result{Code: Success, Text: sb.String(), Trace: e.state.Trace, Raw: true}
}

// remove forgets whatever the trace item at index is.
func (e *Engine) remove(ctx context.Context, index int, b *bag) Result {
	t, err := e.getLast(index)
	if err != nil {
		return e.resultOf(err)
	}
	switch t.Source {
	case session.SourceVarList:
		return e.remValue(ctx, t.ID, b)
	case session.SourceUserList:
		return e.remUser(ctx, t.ID, b)
	case session.SourceList, session.SourceDatabase:
		return e.remFact(ctx, t.ID, b)
	}
	r := e.dontKnow(Missing)
	r.Trace = e.state.Trace
	return r
}

func (e *Engine) statusString(ctx context.Context, now time.Time) string {
	facts, err := e.factCount(ctx)
	if err != nil {
		e.log.Warn("counting facts failed", zap.Error(err))
	}
	subjects, err := e.subjectCount(ctx)
	if err != nil {
		e.log.Warn("counting subjects failed", zap.Error(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I am version %s.  ", Version)
	fmt.Fprintf(&sb, "I've been awake for %s.  ", textfmt.Duration(now.Sub(e.state.Uptime)))
	fmt.Fprintf(&sb, "I now know %d things about %d subjects.  ", facts, subjects)
	fmt.Fprintf(&sb, "I know of %d users in this channel.  ", e.users.Len())
	if e.state.Muted(now) {
		if left := e.state.MuteRemaining(now); left > 0 {
			sb.WriteString("I am being quiet right now, but I'll be back in about " + textfmt.Duration(left))
		} else {
			sb.WriteString("I am being quiet right now.  ")
		}
	}
	return sb.String()
}
