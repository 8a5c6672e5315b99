package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/engine"
	"github.com/rcliao/brick/internal/plugin"
	"github.com/rcliao/brick/internal/social"
	"github.com/rcliao/brick/internal/store"
)

var errQuit = errors.New("quit")

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal",
		Long: `Chat with the bot in the terminal. Every line is one message.

Lines starting with a slash are host commands:
  /user NAME   speak as NAME
  /id ID       speak with user id ID
  /pulse       run a heartbeat now
  /status      show the bot's status
  /quit        leave`,
		Run: runChat,
	}

	cmd.Flags().String("name", defaultUser(), "Your chat name")
	cmd.Flags().String("id", "", "Your user id (default: your name)")
	cmd.Flags().String("heartbeat", "@every 1m", "Cron spec for outbursts and reminders (empty disables)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().Bool("delay", false, "Wait up to resp_delay seconds before each response")

	RootCmd.AddCommand(cmd)
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "console"
}

// newEngine builds an engine with the built-in plugins over st.
func newEngine(ctx context.Context, cfg *config.Config, st store.Store, log *zap.Logger) (*engine.Engine, error) {
	var fetcher plugin.PostFetcher
	if u := cfg.String("social_url"); u != "" {
		fetcher = social.NewScraper(u, social.WithLogger(log.Named("social")))
	}
	return engine.New(ctx, engine.Options{
		Store:   st,
		Config:  cfg,
		Logger:  log.Named("engine"),
		Plugins: plugin.Builtins(),
		Fetcher: fetcher,
	})
}

func runChat(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	id, _ := cmd.Flags().GetString("id")
	spec, _ := cmd.Flags().GetString("heartbeat")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	delay, _ := cmd.Flags().GetBool("delay")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	log := newLogger()
	defer log.Sync()

	s, err := store.OpenWithRetry(ctx, getDBPath(cfg), 5*time.Second, log)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	eng, err := newEngine(ctx, cfg, s, log)
	if err != nil {
		exitErr("start engine", err)
	}

	t := &terminal{
		out:  os.Stdout,
		eng:  eng,
		log:  log,
		bot:  cfg.String("botname"),
		name: name,
		id:   id,
	}
	if delay {
		t.delay = time.Duration(cfg.Int("resp_delay")) * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)

	if spec != "" {
		c := cron.New()
		if _, err := c.AddFunc(spec, func() { t.pulse(gctx) }); err != nil {
			exitErr("heartbeat schedule", err)
		}
		c.Start()
		g.Go(func() error {
			<-gctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error { return t.run(gctx, os.Stdin) })

	fmt.Fprintf(os.Stderr, "%s is listening. Address it as \"%s: ...\". /quit to leave.\n", t.bot, t.bot)
	err = g.Wait()
	switch {
	case err == nil, errors.Is(err, errQuit), errors.Is(err, context.Canceled):
	case errors.Is(err, engine.ErrCrash):
		fmt.Fprintln(os.Stderr, "crashed on request")
		os.Exit(2)
	default:
		exitErr("chat", err)
	}
}

// terminal is the chat host for a local console.
type terminal struct {
	mu    sync.Mutex
	out   io.Writer
	eng   *engine.Engine
	log   *zap.Logger
	bot   string
	delay time.Duration

	name string
	id   string
}

func (t *terminal) userID() string {
	if t.id != "" {
		return t.id
	}
	return t.name
}

// run reads lines until in is exhausted, the user quits or ctx ends.
func (t *terminal) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := t.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (t *terminal) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return t.hostCommand(ctx, line)
	}

	resp, err := t.eng.Process(ctx, engine.Message{Name: t.name, UserID: t.userID(), Text: line})
	if errors.Is(err, engine.ErrCrash) {
		return err
	}
	if err != nil {
		t.log.Error("message failed", zap.Error(err))
		t.notice("error: %v", err)
		return nil
	}
	t.post(ctx, resp)
	return nil
}

func (t *terminal) hostCommand(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	switch fields[0] {
	case "/quit", "/exit":
		return errQuit
	case "/user":
		if arg == "" {
			t.notice("you are %s (%s)", t.name, t.userID())
			return nil
		}
		t.name = arg
		t.notice("you are now %s", t.name)
	case "/id":
		t.id = arg
		t.notice("your id is now %s", t.userID())
	case "/pulse":
		t.pulse(ctx)
	case "/status":
		t.notice("%s", t.eng.Status(ctx))
	default:
		t.notice("unknown command %s", fields[0])
	}
	return nil
}

// pulse runs one heartbeat and posts what it produced.
func (t *terminal) pulse(ctx context.Context) {
	resp, err := t.eng.Heartbeat(ctx)
	if err != nil {
		t.log.Error("heartbeat failed", zap.Error(err))
		return
	}
	t.post(ctx, resp)
}

// post prints a response in chunks and feeds each chunk back as a message
// from the bot, so the bot's own words are part of the history.
func (t *terminal) post(ctx context.Context, resp string) {
	if resp == "" {
		return
	}
	if t.delay > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(t.delay)))):
		case <-ctx.Done():
			return
		}
	}
	for _, p := range t.eng.Split(resp) {
		t.mu.Lock()
		fmt.Fprintf(t.out, "<%s> %s\n", t.bot, p)
		t.mu.Unlock()
		if _, err := t.eng.Process(ctx, engine.Message{Name: t.bot, UserID: t.bot, Text: p}); err != nil {
			t.log.Warn("recording own post failed", zap.Error(err))
		}
	}
}

func (t *terminal) notice(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "* "+format+"\n", args...)
}
