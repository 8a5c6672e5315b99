package cli

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/engine"
	"github.com/rcliao/brick/internal/store"
)

func newTestTerminal(t *testing.T) (*terminal, *bytes.Buffer) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "brick.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.New()
	require.NoError(t, cfg.Set("botname", "brick"))

	log := zaptest.NewLogger(t)
	eng, err := engine.New(context.Background(), engine.Options{
		Store:  st,
		Config: cfg,
		Logger: log,
		Rand:   rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &terminal{out: out, eng: eng, log: log, bot: "brick", name: "bob"}, out
}

func TestTerminalLearnsAndAnswers(t *testing.T) {
	term, out := newTestTerminal(t)

	err := term.run(context.Background(), strings.NewReader("brick: sky is blue\n\nbrick: sky\n"))
	require.ErrorIs(t, err, errQuit)

	assert.Equal(t, "<brick> Okay, bob\n<brick> sky is blue\n", out.String())
}

func TestTerminalHostCommands(t *testing.T) {
	term, out := newTestTerminal(t)

	input := "/user carol\n/id c-1\n/user\n/nope\n/quit\nbrick: never read\n"
	err := term.run(context.Background(), strings.NewReader(input))
	require.ErrorIs(t, err, errQuit)

	assert.Equal(t, "carol", term.name)
	assert.Equal(t, "c-1", term.userID())
	assert.Equal(t, strings.Join([]string{
		"* you are now carol",
		"* your id is now c-1",
		"* you are carol (c-1)",
		"* unknown command /nope",
		"",
	}, "\n"), out.String())
}

func TestTerminalStopsOnCancel(t *testing.T) {
	term, _ := newTestTerminal(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()
	assert.NoError(t, term.run(ctx, r))
}

func TestTerminalPulseIsQuietOnEmptyStore(t *testing.T) {
	term, out := newTestTerminal(t)

	require.NoError(t, term.handle(context.Background(), "/pulse"))
	assert.Empty(t, out.String())
}
