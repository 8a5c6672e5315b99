package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/metrics"
	"github.com/rcliao/brick/internal/plugin"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/syllable"
)

// runPlugins asks each plugin, in order, for candidate responses. A plugin
// runs when a roll of 0..100 is within its configured percentage; zero
// disables it. Failing plugins are skipped unless the bot is offline.
func (e *Engine) runPlugins(ctx context.Context, b *bag) ([]Result, error) {
	if len(e.plugins) == 0 {
		return nil, nil
	}
	pc := e.pluginContext(b)

	var out []Result
	for _, p := range e.plugins {
		if chance := e.pluginChance(p.Name()); chance <= 0 || e.rng.Intn(101) > chance {
			continue
		}
		d, err := e.invoke(ctx, p, pc)
		if err != nil {
			if e.cfg.Bool("offline") {
				return nil, fmt.Errorf("plugin %s: %w", p.Name(), err)
			}
			metrics.PluginErrors.WithLabelValues(p.Name()).Inc()
			e.log.Warn("plugin failed", zap.String("plugin", p.Name()), zap.Error(err))
			continue
		}
		out = append(out, e.apply(ctx, d, b)...)
	}
	return out, nil
}

func (e *Engine) pluginChance(name string) int {
	if !e.cfg.Has(name) {
		return config.PluginDefault
	}
	return e.cfg.Int(name)
}

func (e *Engine) pluginContext(b *bag) plugin.Context {
	history := make([]plugin.Post, len(e.state.History))
	for i, p := range e.state.History {
		history[i] = plugin.Post{Name: p.Name, Text: p.Text, Syllables: syllable.Text(e.syll, p.Text)}
	}
	return plugin.Context{
		Name:      b.Name,
		UserID:    b.UserID,
		Text:      b.Text,
		Msg:       b.Msg,
		To:        b.To,
		Addressed: b.Addressed,
		Syllables: b.Syllables,
		History:   history,
	}
}

// invoke runs one plugin, resolving a deferred call through its Recall.
func (e *Engine) invoke(ctx context.Context, p plugin.Plugin, pc plugin.Context) (d *plugin.Directive, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	d, err = p.Respond(pc)
	if err != nil || d == nil || d.Call == nil {
		return d, err
	}

	rc, isRecaller := p.(plugin.Recaller)
	if !isRecaller {
		return nil, fmt.Errorf("call to %s without a recall", d.Call.Source)
	}
	var values []string
	switch d.Call.Source {
	case plugin.SourceVar:
		values = e.vars.Values(d.Call.Arg)
	case plugin.SourceSocial:
		if e.fetcher != nil {
			if values, err = e.fetcher.Posts(ctx, d.Call.Arg); err != nil {
				return nil, fmt.Errorf("fetch %s: %w", d.Call.Arg, err)
			}
		}
	default:
		return nil, fmt.Errorf("unknown call source %q", d.Call.Source)
	}
	return rc.Recall(pc, values)
}

// apply turns a directive into candidate responses. Text said after a
// silent store points at what was stored.
func (e *Engine) apply(ctx context.Context, d *plugin.Directive, b *bag) []Result {
	if d == nil {
		return nil
	}
	var out []Result
	var last *session.Trace

	if a := d.AddValue; a != nil {
		if r := e.addValue(ctx, a.Var, a.Value, b); r.Code == Success {
			if a.Success != "" {
				out = append(out, ok(a.Success, r.Trace))
			} else {
				last = r.Trace
			}
		}
	}
	if l := d.Learn; l != nil {
		if r := e.newFact(ctx, l.Subject, l.Relation, l.Value, b); r.Code == Success {
			if l.Success != "" {
				out = append(out, ok(l.Success, r.Trace))
			} else {
				last = r.Trace
			}
		}
	}
	if d.Lookup != "" {
		out = append(out, e.answers(ctx, d.Lookup)...)
	}
	for _, t := range d.Texts {
		if t != "" {
			out = append(out, ok(t, last))
		}
	}
	return out
}
