package engine

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/plugin"
	"github.com/rcliao/brick/internal/session"
	"github.com/rcliao/brick/internal/store"
)

type harness struct {
	t       *testing.T
	ctx     context.Context
	st      *store.SQLiteStore
	cfg     *config.Config
	plugins []plugin.Plugin
	now     time.Time
	eng     *Engine
}

type harnessOption func(*harness)

func withConfig(key string, value any) harnessOption {
	return func(h *harness) { require.NoError(h.t, h.cfg.Set(key, value)) }
}

func withPlugins(ps ...plugin.Plugin) harnessOption {
	return func(h *harness) { h.plugins = ps }
}

// newBareHarness returns an engine over an empty store.
func newBareHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "brick.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := &harness{
		t:   t,
		ctx: context.Background(),
		st:  st,
		cfg: config.New(),
		now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, h.cfg.Set("botname", "brick"))
	for _, o := range opts {
		o(h)
	}
	h.reopen()
	return h
}

// newHarness adds canned replies and three users: alice (user), olive (op)
// and adam (admin).
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := newBareHarness(t, opts...)
	h.seed(
		model.Factoid{Subject: "[don't know]", SubjectKey: "[don't know]", Relation: model.RelReply, Value: "I don't know, $who.", Cached: true, Protected: true},
		model.Factoid{Subject: "[permission denied]", SubjectKey: "[permission denied]", Relation: model.RelReply, Value: "No way, $who.", Cached: true, Protected: true},
	)
	h.join("alice", "u1", model.RoleUser)
	h.join("olive", "u2", model.RoleOp)
	h.join("adam", "u3", model.RoleAdmin)
	return h
}

// reopen starts a fresh engine over the same store and config.
func (h *harness) reopen() {
	h.t.Helper()
	eng, err := New(h.ctx, Options{
		Store:   h.st,
		Config:  h.cfg,
		Logger:  zaptest.NewLogger(h.t),
		Plugins: h.plugins,
		Rand:    rand.New(rand.NewSource(1)),
		Now:     func() time.Time { return h.now },
	})
	require.NoError(h.t, err)
	h.eng = eng
}

func (h *harness) seed(facts ...model.Factoid) []string {
	h.t.Helper()
	docs := make([]model.Doc, len(facts))
	for i, f := range facts {
		docs[i] = f.Doc()
	}
	res, err := h.st.Post(h.ctx, docs...)
	require.NoError(h.t, err)
	require.NoError(h.t, h.eng.refresh(h.ctx, session.RefreshFacts))

	ids := make([]string, len(res))
	for i, r := range res {
		ids[i] = r.ID
	}
	return ids
}

func (h *harness) join(name, id string, role model.Role) {
	h.t.Helper()
	h.say(name, id, "hi")
	u, found := h.eng.users.Get(id)
	require.True(h.t, found)
	u.Role = role
	require.NoError(h.t, h.eng.saveUser(h.ctx, u))
}

func (h *harness) say(name, id, text string) string {
	h.t.Helper()
	resp, err := h.eng.Process(h.ctx, Message{Name: name, UserID: id, Text: text})
	require.NoError(h.t, err)
	return resp
}

func (h *harness) alice(text string) string { return h.say("alice", "u1", text) }
func (h *harness) olive(text string) string { return h.say("olive", "u2", text) }
func (h *harness) adam(text string) string  { return h.say("adam", "u3", text) }

func TestLearnUnaddressedThenKeyQuery(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "Okay, alice", h.alice("X is a bird"))
	assert.Equal(t, "X is a bird", h.alice("X ~= bird"))
	assert.Equal(t, "I don't know, alice.", h.alice("brick: X ~= fish"))
}

func TestLearnUnaddressedCanBeDisabled(t *testing.T) {
	h := newHarness(t, withConfig("learn_unaddressed", false))

	assert.Empty(t, h.alice("X is a bird"))
	assert.Equal(t, "Okay, alice", h.alice("brick: X is a bird"))
}

func TestForgetThenUndoRestoresSameID(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, "Okay, alice", h.alice("brick: tea <reply> Earl Grey"))
	require.Equal(t, "Earl Grey", h.alice("brick: tea"))
	id := h.eng.state.Trace.IDs[0]

	assert.Equal(t, "Okay, alice, forgot 'tea' <reply> 'Earl Grey'", h.alice("brick: forget that"))
	_, err := h.st.Fetch(h.ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "I don't know, alice.", h.alice("brick: tea"))

	assert.Equal(t, "Okay alice, factoid unforgot.", h.alice("brick: undo last"))
	docs, err := h.st.Fetch(h.ctx, id)
	require.NoError(t, err)
	f, err := model.FactoidFromDoc(docs[0])
	require.NoError(t, err)
	assert.Equal(t, "Earl Grey", f.Value)
	assert.Equal(t, "Earl Grey", h.alice("brick: tea"))
}

func TestForgetFreezesVariables(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: add value band Queen")
	h.alice("brick: music <reply> I like $band")
	require.Equal(t, "I like Queen", h.alice("brick: music"))
	assert.Equal(t, "Okay, alice, forgot 'music' <reply> 'I like [band]'", h.alice("brick: forget that"))
}

func TestForgetOthersFactNeedsOp(t *testing.T) {
	h := newHarness(t)

	h.olive("brick: tea <reply> Earl Grey")
	h.alice("brick: tea")
	resp := h.alice("brick: forget that")
	assert.Contains(t, []string{"No way, alice.", "You can't take away my memories!"}, resp)

	h.olive("brick: tea")
	assert.Equal(t, "Okay, olive, forgot 'tea' <reply> 'Earl Grey'", h.olive("brick: forget that"))
}

func TestProtectVar(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, "Okay, alice, learned new band 'The Beatles'", h.alice("brick: add value band The Beatles"))
	assert.Equal(t, "No way, alice.", h.alice("brick: protect var band"))
	assert.Equal(t, "Okay, olive, protecting var 'band'.", h.olive("brick: protect var band"))
	assert.Equal(t, "olive, that var is already protected.", h.olive("brick: protect var band"))

	assert.Equal(t, "Okay olive, no longer protecting var 'band'.", h.olive("brick: undo"))
	assert.Equal(t, "Okay, olive, protecting var 'band'.", h.olive("brick: protect var band"))

	assert.Equal(t, "No way, alice.", h.alice("brick: add value band Queen"))
	assert.Equal(t, "Okay, olive, learned new band 'Queen'", h.olive("brick: add value band Queen"))
	list := h.olive("brick: list var band")
	assert.True(t, strings.HasPrefix(list, "band:\n(protected)\n"), list)
}

func TestAddValueDuplicateConflict(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "Okay, alice, learned new band 'Queen'", h.alice("brick: add value band Queen"))
	assert.Equal(t, "I already had it that way, alice", h.alice("brick: add value band Queen"))
	assert.Equal(t, "No way, alice.", h.alice("brick: add value who Queen"))
}

func TestAddValueDuplicateSeenAcrossRestartWithoutCaching(t *testing.T) {
	h := newHarness(t, withConfig("caching", false))

	assert.Equal(t, "Okay, alice, learned new band 'Queen'", h.alice("brick: add value band Queen"))
	h.reopen()
	assert.Equal(t, "I already had it that way, alice", h.alice("brick: add value band Queen"))

	rows, err := h.st.Query(h.ctx, store.QueryParams{View: store.ViewVars, Key: "band"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.Equal(t, "Okay, olive, forgot band 'Queen'", h.olive("brick: remove value band Queen"))
}

func TestRemoveValueAndVar(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: add value band Queen")
	h.alice("brick: add value band Abba")
	assert.Equal(t, "No way, alice.", h.alice("brick: remove value band Abba"))
	assert.Equal(t, "Okay, olive, forgot band 'Abba'", h.olive("brick: remove value band Abba"))
	assert.Equal(t, []string{"Queen"}, h.eng.vars.Values("band"))

	assert.Equal(t, "No way, alice.", h.alice("brick: remove var band"))
	assert.Equal(t, "Okay, olive, removed var 'band'", h.olive("brick: remove var band"))
	assert.False(t, h.eng.vars.Has("band"))
	assert.Equal(t, "Okay olive, un-forgot var 'band'", h.olive("brick: undo"))
	assert.Equal(t, []string{"Queen"}, h.eng.vars.Values("band"))
}

func TestUndoIsSingleShot(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, "Okay, alice", h.alice("brick: sky is blue"))
	bob := func(text string) string { return h.say("bob", "u4", text) }
	assert.Equal(t, "No way, bob.", bob("brick: undo"))

	assert.Equal(t, "Okay alice, forgot 'sky' <is> 'blue'.", h.alice("brick: undo"))
	assert.Equal(t, "Sorry, alice, I can't undo that", h.alice("brick: undo"))
	assert.Equal(t, "I don't know, alice.", h.alice("brick: sky"))
}

func TestUndoByOp(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: sky is blue")
	assert.Equal(t, "Okay olive, forgot 'sky' <is> 'blue'.", h.olive("brick: undo"))
}

func TestPromoteRoleBounds(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "Users:\n0) adam  admin\n1) alice user\n2) olive op", h.adam("brick: list users"))

	assert.Equal(t, "Okay, adam", h.adam("brick: promote #1"))
	u, _ := h.eng.users.Get("u1")
	assert.Equal(t, model.RoleOp, u.Role)

	h.adam("brick: list users")
	assert.Equal(t, "No way, adam.", h.adam("brick: promote #1"), "nobody grants their own role")

	h.adam("brick: list users")
	assert.Equal(t, "No way, adam.", h.adam("brick: demote #0"), "nobody changes their own role")

	h.adam("brick: list users")
	assert.Equal(t, "Okay, adam", h.adam("brick: demote #2"))
	h.adam("brick: list users")
	assert.Equal(t, "Sorry, adam, I can't do that.", h.adam("brick: demote #2"))

	assert.Equal(t, "I don't know, adam.", h.adam("brick: promote that"), "no list to point at")
}

func TestPromoteUndoNeedsAdmin(t *testing.T) {
	h := newHarness(t)

	h.adam("brick: list users")
	require.Equal(t, "Okay, adam", h.adam("brick: promote #1"))
	assert.Equal(t, "No way, olive.", h.olive("brick: undo"))
	assert.Equal(t, "Okay adam, alice is user again.", h.adam("brick: undo"))
	u, _ := h.eng.users.Get("u1")
	assert.Equal(t, model.RoleUser, u.Role)
}

func TestGetLastOnList(t *testing.T) {
	h := newBareHarness(t)
	h.eng.state.SetTrace(session.List(session.SourceList, []string{"a", "b", "c"}, []string{"page"}))

	_, err := h.eng.getLast(-1)
	assert.ErrorIs(t, err, session.ErrAmbiguous)

	got, err := h.eng.getLast(1)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	_, err = h.eng.getLast(5)
	assert.ErrorIs(t, err, session.ErrNoTarget)
}

func TestCommonRequiresUniformFacts(t *testing.T) {
	facts := []model.Factoid{
		{SubjectKey: "tea", Relation: model.RelReply, Value: "green", Protected: true},
		{SubjectKey: "tea", Relation: model.RelIs, Value: "hot", Protected: true},
	}
	got, err := common(facts)
	require.NoError(t, err)
	want := properties{SubjectKey: "tea", Protected: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("common() mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name  string
		other model.Factoid
	}{
		{"subject", model.Factoid{SubjectKey: "coffee", Protected: true}},
		{"cached", model.Factoid{SubjectKey: "tea", Protected: true, Cached: true}},
		{"protected", model.Factoid{SubjectKey: "tea"}},
		{"alias", model.Factoid{SubjectKey: "tea", Protected: true, Relation: model.RelAlias}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := common(append([]model.Factoid{facts[0]}, tt.other))
			assert.ErrorIs(t, err, errConflict)
		})
	}

	_, err = common(nil)
	assert.ErrorIs(t, err, errMissing)
}

func TestAliasIsTransitive(t *testing.T) {
	h := newBareHarness(t)
	h.seed(
		model.Factoid{Subject: "a", SubjectKey: "a", Relation: model.RelAlias, Value: "b"},
		model.Factoid{Subject: "b", SubjectKey: "b", Relation: model.RelAlias, Value: "c"},
		model.Factoid{Subject: "c", SubjectKey: "c", Relation: model.RelIs, Value: "the end"},
	)

	facts, err := h.eng.factQuery(h.ctx, "A!", true)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "the end", facts[0].Value)

	facts, err = h.eng.factQuery(h.ctx, "a", false)
	require.NoError(t, err)
	assert.True(t, facts[0].IsAlias())

	_, err = h.eng.factQuery(h.ctx, "nothing", true)
	assert.ErrorIs(t, err, errMissing)
}

func TestAliasCycleIsConflict(t *testing.T) {
	h := newBareHarness(t)
	h.seed(
		model.Factoid{Subject: "ping", SubjectKey: "ping", Relation: model.RelAlias, Value: "pong"},
		model.Factoid{Subject: "pong", SubjectKey: "pong", Relation: model.RelAlias, Value: "ping"},
	)

	_, err := h.eng.factQuery(h.ctx, "ping", true)
	assert.ErrorIs(t, err, errConflict)
}

func TestAliasCommands(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: cat is fluffy")
	assert.Equal(t, "Okay, alice", h.alice("brick: alias kitty => cat"))
	assert.Equal(t, "cat is fluffy", h.alice("brick: kitty"))
	assert.Equal(t, "Sorry, alice, there is already a factoid for 'cat'", h.alice("brick: alias cat => kitty"))
	assert.Equal(t, "I already had it that way, alice", h.alice("brick: alias kitty => cat"))

	// Facts taught to an alias land on its target.
	assert.Equal(t, "Okay, alice", h.alice("brick: kitty is small"))
	facts, err := h.eng.subjectFacts(h.ctx, "cat")
	require.NoError(t, err)
	assert.Len(t, facts, 2)

	assert.Equal(t, "Okay, alice, forgot 'kitty' <alias> 'cat'", h.alice("brick: unalias kitty"))
	assert.Equal(t, "I don't know, alice.", h.alice("brick: kitty"))
}

func TestMergeAndUnmerge(t *testing.T) {
	h := newHarness(t)

	h.olive("brick: kitty is small")
	h.olive("brick: cat is fluffy")
	assert.Equal(t, "No way, alice.", h.alice("brick: merge kitty => cat"))
	assert.Equal(t, "Okay, olive", h.olive("brick: merge kitty => cat"))

	assert.Contains(t, []string{"cat is small", "cat is fluffy"}, h.olive("brick: kitty"))
	assert.True(t, strings.HasPrefix(h.olive("brick: literal kitty"), "'kitty' => 'cat':\n"))
	assert.Equal(t, "Sorry, olive, but 'kitty' is an alias for 'cat'.", h.olive("brick: merge cat => kitty"))

	assert.Equal(t, "Okay olive, factoids unmerged.", h.olive("brick: undo"))
	assert.Equal(t, "kitty is small", h.olive("brick: kitty"))
	assert.Equal(t, "cat is fluffy", h.olive("brick: cat"))
}

func TestEditFact(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: tea <reply> Earl Grey")
	h.alice("brick: tea")
	assert.Equal(t, "Okay, alice. Factoid updated.", h.alice("brick: sub Green => Earl Grey"))
	assert.Equal(t, "Green", h.alice("brick: tea"))

	assert.Equal(t, "Okay alice, factoid reverted.", h.alice("brick: undo"))
	assert.Equal(t, "Earl Grey", h.alice("brick: tea"))
}

func TestProtectAndCache(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: tea <reply> Earl Grey")
	assert.Equal(t, "No way, alice.", h.alice("brick: protect tea"))
	assert.Equal(t, "Okay, olive", h.olive("brick: protect tea"))
	assert.Equal(t, "olive, 'tea' is already protected.", h.olive("brick: protect tea"))
	assert.Equal(t, "No way, alice.", h.alice("brick: tea <reply> Oolong"))
	assert.Equal(t, "Okay, olive", h.olive("brick: tea <reply> Oolong"))

	assert.False(t, h.eng.replies.Has("tea"))
	assert.Equal(t, "Okay, olive", h.olive("brick: cache tea"))
	assert.True(t, h.eng.replies.Has("tea"))
	assert.Equal(t, "Okay olive, factoids reverted.", h.olive("brick: undo"))
	assert.False(t, h.eng.replies.Has("tea"))
}

func TestWhatWasThat(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: add value band Queen")
	h.alice("brick: music <reply> I like $band")
	require.Equal(t, "I like Queen", h.alice("brick: music"))
	assert.Equal(t, "That was 'music' <reply> 'I like $band'\n'$band' => 'Queen'", h.alice("brick: what was that?"))
}

func TestLookup(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: tea <reply> Earl Grey")
	resp := h.alice("brick: lookup grey")
	assert.True(t, strings.HasPrefix(resp, "\"grey\":\n0) tea"), resp)
	assert.Contains(t, resp, "Earl Grey")

	assert.Equal(t, "Okay, alice, forgot 'tea' <reply> 'Earl Grey'", h.alice("brick: forget #0"))
}

func TestOversizedIndexTouchesNothing(t *testing.T) {
	h := newHarness(t)
	huge := "#99999999999999999999"

	h.olive("brick: sea is blue")
	h.olive("brick: sky is blue")

	h.olive("brick: lookup blue")
	assert.Equal(t, "I don't know, olive.", h.olive("brick: forget "+huge))
	h.olive("brick: lookup blue")
	assert.Equal(t, "I don't know, olive.", h.olive("brick: "+huge+" sub red => blue"))

	resp := h.olive("brick: lookup blue")
	assert.Contains(t, resp, "sea")
	assert.Contains(t, resp, "sky")

	h.adam("brick: list users")
	assert.Equal(t, "I don't know, adam.", h.adam("brick: promote "+huge))
	u, _ := h.eng.users.Get("u1")
	assert.Equal(t, model.RoleUser, u.Role)
}

func TestRemember(t *testing.T) {
	h := newHarness(t)

	h.say("bob", "u4", "I love pie")
	assert.Equal(t, `Okay, alice, remembering bob: "I love pie"`, h.alice("brick: remember bob pie"))
	assert.Equal(t, `bob: "I love pie"`, h.alice("brick: bob quote"))
	assert.Equal(t, "alice, please don't quote yourself.", h.alice("brick: remember alice brick"))
	assert.Equal(t, "Sorry, alice, I don't remember what carol said.", h.alice("brick: remember carol pie"))
}

func TestSelfFactsNeedAdmin(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "No way, alice.", h.alice("brick: alice is great"))
	assert.Equal(t, "No way, alice.", h.alice("brick: i am great"), "I am maps to the sender")
	assert.Equal(t, "Okay, adam", h.adam("brick: i am great"))
	assert.Equal(t, "adam is great", h.alice("brick: adam"))

	assert.Equal(t, "Okay, alice", h.alice("brick: you are great"), "you are maps to the bot")
	assert.Equal(t, "I am great", h.alice("brick: brick"))
}

func TestSyllables(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "Okay, alice", h.alice("brick: banana has 4 syllables"))
	assert.Equal(t, `alice, "banana" has 4 syllables`, h.alice("brick: how many syllables does banana have?"))
	assert.Equal(t, "I already had it that way, alice", h.alice("brick: banana has 4 syllables"))
	assert.Equal(t, "Sorry, alice, I can only learn syllables for one word at a time.", h.alice("brick: big cat has 2 syllables"))
	assert.Equal(t, "Okay alice, forgot syllables for 'banana'.", h.alice("brick: undo"))
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "No way, alice.", h.alice("brick: set min_length 3"))
	assert.Equal(t, "Okay olive, configuration updated.", h.olive("brick: set min_length 3"))
	assert.Equal(t, 3, h.eng.cfg.Int("min_length"))
	assert.Equal(t, "min_length: 3", h.alice("brick: get min_length"))
	assert.Equal(t, "Sorry, olive, 'abc' is not a valid int.", h.olive("brick: set min_length abc"))
	assert.Equal(t, "Sorry, olive, Key: 'nope' not found.", h.olive("brick: set nope 1"))
	assert.Equal(t, "Sorry olive, 'get' is not a valid command.", h.olive("brick: get botname"))
	assert.Equal(t, "Sorry, olive, 'min_length' can't be enabled.", h.olive("brick: enable min_length"))
	assert.Equal(t, "Okay olive, configuration updated.", h.olive("brick: disable caching"))
	assert.False(t, h.eng.cfg.Bool("caching"))
	assert.True(t, strings.HasPrefix(h.olive("brick: list keys"), "Keys:\n"))
	assert.Equal(t, "I'm not running any plugins, olive.", h.olive("brick: list plugins"))
}

func TestConfigSurvivesRestart(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, "Okay olive, configuration updated.", h.olive("brick: set min_length 3"))
	require.NoError(t, h.cfg.Set("min_length", 6))
	h.reopen()
	assert.Equal(t, 3, h.eng.cfg.Int("min_length"))
}

func TestMute(t *testing.T) {
	h := newHarness(t)
	h.alice("brick: tea <reply> Earl Grey")

	assert.Equal(t, "Okay, alice, I'll be back later", h.alice("brick: shut up"))
	assert.Empty(t, h.alice("brick: tea"))
	assert.Equal(t, "Earl Grey", h.olive("brick: tea"), "ops talk through a mute")

	h.now = h.now.Add(2 * time.Minute)
	assert.Equal(t, "Earl Grey", h.alice("brick: tea"))

	assert.Equal(t, "No way, alice.", h.alice("brick: shut up for 10m"))
	assert.Equal(t, "Okay, olive, I'll be back later", h.olive("brick: shut up for 10m"))
	assert.Empty(t, h.alice("brick: tea"))
	assert.Equal(t, "Okay, olive", h.olive("brick: come back"))
	assert.Equal(t, "Earl Grey", h.alice("brick: tea"))
}

func TestMuteSurvivesRestart(t *testing.T) {
	h := newHarness(t)
	h.alice("brick: tea <reply> Earl Grey")

	require.Equal(t, "Okay, alice, I'll be back later", h.alice("brick: shut up for a while"))
	h.reopen()
	assert.Empty(t, h.alice("brick: tea"))
	assert.Contains(t, h.eng.Status(h.ctx), "I am being quiet right now")
}

func TestDontKnowOnlyWhenAddressed(t *testing.T) {
	h := newHarness(t)

	assert.Empty(t, h.alice("what a lovely day"))
	assert.Equal(t, "I don't know, alice.", h.alice("brick: what a lovely day"))
}

func TestIgnoresSystemAndOwnMessages(t *testing.T) {
	h := newHarness(t)
	h.alice("brick: tea <reply> Earl Grey")

	resp, err := h.eng.Process(h.ctx, Message{Name: "alice", UserID: "u1", Text: "brick: tea", System: true})
	require.NoError(t, err)
	assert.Empty(t, resp)
	assert.Empty(t, h.say("brick", "bot", "brick: tea"))
	assert.Equal(t, "brick", h.eng.state.History[len(h.eng.state.History)-1].Name)
}

func TestCrashOnlyInDevmode(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "I don't know, adam.", h.adam("brick: crash"))

	h = newHarness(t, withConfig("devmode", true))
	_, err := h.eng.Process(h.ctx, Message{Name: "adam", UserID: "u3", Text: "brick: crash"})
	assert.ErrorIs(t, err, ErrCrash)
	assert.Equal(t, "hello there", h.adam("brick: echo hello there"))
}

func TestVersionAndStatus(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "alice, I am version "+Version, h.alice("brick: version"))
	h.alice("brick: sky is blue")
	h.alice("brick: sky is big")
	status := h.alice("brick: status")
	assert.Contains(t, status, "things about")
	assert.Contains(t, status, "I know of 3 users")
}

func TestFillVar(t *testing.T) {
	first := func(int) int { return 0 }

	got, subs := fillVar("Hi $WHO and $who+, not $whoever", "who", []string{"alice"}, first, nil)
	assert.Equal(t, "Hi ALICE and alice, not $whoever", got)
	want := []session.Sub{{Var: "$WHO", Val: "ALICE"}, {Var: "$who+", Val: "alice"}}
	if diff := cmp.Diff(want, subs); diff != "" {
		t.Errorf("subs mismatch (-want +got):\n%s", diff)
	}

	got, _ = fillVar("$Band rocks", "band", []string{"the who"}, first, nil)
	assert.Equal(t, "The Who rocks", got)

	got, _ = fillVar("$x$x", "x", []string{"$x"}, first, nil)
	assert.Equal(t, "$x$x", got, "inserted values are not filled again")
}

func TestSayFillsPlaceholders(t *testing.T) {
	h := newHarness(t)

	h.alice("brick: greet <reply> Hello $who, meet $someone")
	resp := h.alice("brick: greet")
	assert.True(t, strings.HasPrefix(resp, "Hello alice, meet "), resp)
	assert.Contains(t, []string{"adam", "alice", "olive"}, strings.TrimPrefix(resp, "Hello alice, meet "))

	h.alice("brick: poke <reply> pokes $to")
	resp = h.alice("brick: poke")
	assert.Contains(t, []string{"pokes Somebody", "pokes adam", "pokes olive"}, resp, "$to never picks the sender")
}

type stubPlugin struct {
	name string
	d    *plugin.Directive
	err  error
}

func (p stubPlugin) Name() string { return p.name }

func (p stubPlugin) Respond(plugin.Context) (*plugin.Directive, error) { return p.d, p.err }

type recallPlugin struct{}

func (recallPlugin) Name() string { return "recall" }

func (recallPlugin) Respond(c plugin.Context) (*plugin.Directive, error) {
	if !strings.Contains(c.Msg, "music") {
		return nil, nil
	}
	return &plugin.Directive{Call: &plugin.Call{Source: plugin.SourceVar, Arg: "band"}}, nil
}

func (recallPlugin) Recall(_ plugin.Context, values []string) (*plugin.Directive, error) {
	return plugin.Say("bands: " + strings.Join(values, ",")), nil
}

func TestPluginsContribute(t *testing.T) {
	h := newHarness(t, withPlugins(
		stubPlugin{name: "broken", err: errors.New("boom")},
		recallPlugin{},
	))

	h.alice("brick: add value band Queen")
	assert.Equal(t, "bands: Queen", h.alice("tell me about music please"))
}

func TestPluginLearnDirective(t *testing.T) {
	learn := &plugin.Directive{Learn: &plugin.Learn{
		Subject:  "lesson",
		Relation: model.RelReply,
		Value:    "class",
		Success:  "Learned it, $who",
	}}
	h := newHarness(t, withPlugins(stubPlugin{name: "tutor", d: learn}))

	assert.Equal(t, "class", h.alice("brick: lesson"))
	facts, err := h.eng.subjectFacts(h.ctx, "lesson")
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestDisabledPluginIsSkipped(t *testing.T) {
	h := newHarness(t,
		func(h *harness) { h.cfg = config.New("chatty") },
		withConfig("botname", "brick"),
		withPlugins(stubPlugin{name: "chatty", d: plugin.Say("hello!")}),
	)
	assert.Equal(t, "hello!", h.alice("nothing to see here"))

	require.Equal(t, "Okay olive, configuration updated.", h.olive("brick: disable chatty"))
	assert.Empty(t, h.alice("nothing to see here"))
	assert.True(t, strings.HasPrefix(h.olive("brick: list plugins"), "Plugins:\n"))
}

func TestPluginErrorsSurfaceWhenOfflineInDebug(t *testing.T) {
	h := newBareHarness(t,
		withConfig("offline", true),
		withConfig("debug", true),
		withPlugins(stubPlugin{name: "broken", err: errors.New("boom")}),
	)

	_, err := h.eng.Process(h.ctx, Message{Name: "alice", UserID: "u1", Text: "a message long enough"})
	assert.Error(t, err)
}

func TestHeartbeatOutburst(t *testing.T) {
	h := newBareHarness(t)
	h.seed(model.Factoid{Subject: "sky", SubjectKey: "sky", Relation: model.RelIs, Value: "blue"})

	resp, err := h.eng.Heartbeat(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, resp, "outburst not due yet")

	h.now = h.now.Add(48 * time.Hour)
	resp, err = h.eng.Heartbeat(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "sky is blue", resp)

	resp, err = h.eng.Heartbeat(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestHeartbeatReminder(t *testing.T) {
	h := newBareHarness(t, withConfig("reminder_day", 14))
	h.seed(model.Factoid{Subject: "[reminder]", SubjectKey: "[reminder]", Relation: model.RelReply, Value: "Pay rent, $who"})

	resp, err := h.eng.Heartbeat(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pay rent, Somebody", resp)

	resp, err = h.eng.Heartbeat(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, resp, "reminder is on cooldown")
}

func TestHeartbeatQuietWhileMuted(t *testing.T) {
	h := newBareHarness(t)
	h.seed(model.Factoid{Subject: "sky", SubjectKey: "sky", Relation: model.RelIs, Value: "blue"})
	h.eng.state.Mute = -1

	h.now = h.now.Add(48 * time.Hour)
	resp, err := h.eng.Heartbeat(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestSplit(t *testing.T) {
	h := newBareHarness(t, withConfig("post_limit", 50))

	posts := h.eng.Split(strings.Repeat("word ", 40))
	require.Greater(t, len(posts), 1)
	for _, p := range posts {
		assert.LessOrEqual(t, len(p), 50)
	}
}
