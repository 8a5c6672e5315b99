// Package engine resolves chat messages against the factoid store.
//
// The engine owns the session state, the in-memory caches and the plugin
// registry. Process and Heartbeat are serialized behind one lock, so a
// scheduled heartbeat never interleaves with a message.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/cache"
	"github.com/rcliao/brick/internal/chunker"
	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/metrics"
	"github.com/rcliao/brick/internal/plugin"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/syllable"
)

// Version is reported by the bot and stamped on saved sessions.
const Version = "3.1.0"

// ErrCrash is returned by Process when an admin asks the bot to crash in
// development mode. Hosts should exit.
var ErrCrash = errors.New("crash requested")

// Message is one inbound chat message.
type Message struct {
	Name   string
	UserID string
	Text   string
	// System marks platform events that are ignored.
	System bool
}

// Options configures an Engine. Store and Config are required.
type Options struct {
	Store   store.Store
	Config  *config.Config
	Logger  *zap.Logger
	Plugins []plugin.Plugin
	Fetcher plugin.PostFetcher
	// Counter is the syllable counter used for untaught words.
	Counter syllable.Counter
	Rand    *rand.Rand
	Now     func() time.Time
}

// Engine is the bot.
type Engine struct {
	mu sync.Mutex

	store   store.Store
	cfg     *config.Config
	log     *zap.Logger
	plugins []plugin.Plugin
	fetcher plugin.PostFetcher
	rng     *rand.Rand
	now     func() time.Time

	replies *cache.Replies
	vars    *cache.Vars
	users   *cache.Users
	syll    *syllable.Overrides

	state *session.State
}

// New builds the caches, loads the newest compatible session and returns a
// ready engine.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Config == nil {
		return nil, errors.New("engine: config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:   opts.Store,
		cfg:     opts.Config,
		log:     opts.Logger,
		plugins: opts.Plugins,
		fetcher: opts.Fetcher,
		rng:     opts.Rand,
		now:     opts.Now,
		replies: cache.NewReplies(),
		vars:    cache.NewVars(),
		users:   cache.NewUsers(),
		syll:    syllable.NewOverrides(opts.Counter),
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.now == nil {
		e.now = time.Now
	}

	if err := e.loadCaches(ctx, e.cfg.Bool("caching")); err != nil {
		return nil, err
	}
	if err := e.loadState(ctx); err != nil {
		return nil, err
	}
	e.log.Info("engine ready",
		zap.String("botname", e.botName()),
		zap.Int("plugins", len(e.plugins)),
		zap.String("version", Version))
	return e, nil
}

// Config returns the live configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Split breaks a response into posts that fit the configured post limit.
func (e *Engine) Split(text string) []string {
	return chunker.Chunk(text, chunker.Options{MaxSize: e.cfg.Int("post_limit")})
}

func (e *Engine) botName() string { return e.cfg.String("botname") }

// loadCaches rebuilds users and syllables, and replies and vars when
// withReplies is set.
func (e *Engine) loadCaches(ctx context.Context, withReplies bool) error {
	if withReplies {
		n, err := e.replies.Rebuild(ctx, e.store)
		if err != nil {
			return err
		}
		e.log.Info("replies cached", zap.Int("count", n))

		n, err = e.vars.Rebuild(ctx, e.store)
		if err != nil {
			return err
		}
		e.log.Info("vars cached", zap.Int("count", n))
	}

	n, err := e.users.Rebuild(ctx, e.store)
	if err != nil {
		return err
	}
	e.log.Info("users cached", zap.Int("count", n))

	n, err = cache.RebuildSyllables(ctx, e.store, e.syll)
	if err != nil {
		return err
	}
	e.log.Info("syllables cached", zap.Int("count", n))
	return nil
}

func (e *Engine) loadState(ctx context.Context) error {
	st, err := session.Load(ctx, e.store, Version, e.cfg.Signature(), e.log)
	if err != nil {
		return err
	}
	if st == nil {
		e.log.Info("generating new session")
		st = session.New(Version, e.cfg.Signature(), e.now(), session.Reminder{})
	} else if len(st.Config) > 0 {
		if err := e.cfg.Restore(e.restorable(st.Config)); err != nil {
			e.log.Warn("some saved settings were not restored", zap.Error(err))
		}
	}
	e.state = st
	e.syncReminder()
	if st.Outburst.IsZero() {
		e.refreshOutburst(e.now())
	}
	return e.saveState(ctx)
}

// restorable drops hidden keys from a saved config; those always come from
// the config file and environment.
func (e *Engine) restorable(snap map[string]any) map[string]any {
	out := make(map[string]any, len(snap))
	for name, v := range snap {
		if k, ok := e.cfg.Schema(name); ok && !k.Hidden {
			out[name] = v
		}
	}
	return out
}

func (e *Engine) syncReminder() {
	e.state.Reminder.Day = e.cfg.Int("reminder_day")
	e.state.Reminder.CooldownHours = e.cfg.Int("reminder_cooldown")
	e.state.Reminder.Subject = e.cfg.String("reminder_subject")
}

func (e *Engine) saveState(ctx context.Context) error {
	e.state.Config = e.cfg.Snapshot()
	return e.state.Save(ctx, e.store, e.now())
}

// refreshOutburst schedules the next outburst between half and one and a
// half times the configured interval from now.
func (e *Engine) refreshOutburst(now time.Time) {
	base := float64(e.cfg.Int("outburst")) * float64(time.Hour)
	e.state.Outburst = now.Add(time.Duration(base * (0.5 + e.rng.Float64())))
}

// Process handles one message and returns the response, or "" for none.
// The error is non-nil only in debug mode, or for ErrCrash.
func (e *Engine) Process(ctx context.Context, m Message) (resp string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.ProcessDuration.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic while processing message", zap.Any("panic", r), zap.Stack("stack"))
			resp = ""
			if e.cfg.Bool("debug") {
				err = fmt.Errorf("process message: panic: %v", r)
			}
		}
	}()

	if m.System {
		return "", nil
	}

	now := e.now()
	b := &bag{
		Name:      m.Name,
		UserID:    m.UserID,
		Text:      strings.TrimSpace(m.Text),
		Time:      now,
		Syllables: syllable.Text(e.syll, m.Text),
	}

	if !strings.EqualFold(m.Name, e.botName()) {
		resp, err = e.core(ctx, b)
	}

	e.refreshOutburst(now)
	e.state.Record(session.Post{Name: m.Name, UserID: m.UserID, Text: b.Text, Time: now}, e.cfg.Int("post_history"))
	if serr := e.saveState(ctx); serr != nil {
		e.log.Warn("saving session failed", zap.Error(serr))
	}

	if err != nil && !errors.Is(err, ErrCrash) {
		e.log.Error("processing message failed", zap.String("name", m.Name), zap.Error(err))
		if !e.cfg.Bool("debug") {
			err = nil
		}
	}
	if resp != "" {
		metrics.Responses.Inc()
	}
	return resp, err
}

// Heartbeat runs the interval driven behaviors: outbursts and reminders.
func (e *Engine) Heartbeat(ctx context.Context) (resp string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic during heartbeat", zap.Any("panic", r), zap.Stack("stack"))
			resp = ""
			if e.cfg.Bool("debug") {
				err = fmt.Errorf("heartbeat: panic: %v", r)
			}
		}
	}()

	now := e.now()
	if e.state.Muted(now) {
		metrics.Heartbeats.WithLabelValues("muted").Inc()
		return "", nil
	}

	result := "idle"
	if resp = e.outburst(ctx, now); resp != "" {
		result = "outburst"
	} else if resp = e.reminder(ctx, now); resp != "" {
		result = "reminder"
	}
	metrics.Heartbeats.WithLabelValues(result).Inc()

	if serr := e.saveState(ctx); serr != nil {
		e.log.Warn("saving session failed", zap.Error(serr))
	}
	return resp, nil
}

// Status returns the same summary the bot gives when asked for its status.
func (e *Engine) Status(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusString(ctx, e.now())
}

func (e *Engine) intn(n int) int { return e.rng.Intn(n) }
