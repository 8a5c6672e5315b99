package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := New("bandname")

	assert.Equal(t, -5, c.Int("timezone"))
	assert.True(t, c.Bool("caching"))
	assert.Equal(t, 6, c.Int("min_length"))
	assert.Equal(t, PluginDefault, c.Int("bandname"))
	assert.Error(t, c.Validate(), "botname is required")
}

func TestSetConvertsAndRejects(t *testing.T) {
	c := New("tla")

	tests := []struct {
		name    string
		key     string
		raw     any
		want    any
		wantErr error
	}{
		{"int from string", "list_limit", "5", 5, nil},
		{"int from float", "outburst", float64(12), 12, nil},
		{"bool from string", "debug", "TRUE", true, nil},
		{"bool from yes", "devmode", "yes", true, nil},
		{"plugin percent", "tla", "50", 50, nil},
		{"string", "reminder_subject", "[party]", "[party]", nil},
		{"int rejects word", "list_limit", "lots", nil, ErrType},
		{"int rejects fraction", "list_limit", 1.5, nil, ErrType},
		{"bool rejects word", "debug", "maybe", nil, ErrType},
		{"string rejects int", "botname", 3, nil, ErrType},
		{"unknown key", "groupme_token", "abc", nil, ErrUnknownKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Set(tt.key, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, _ := c.Get(tt.key)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResetRestoresDefault(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("list_limit", 3))
	require.NoError(t, c.Reset("list_limit"))
	assert.Equal(t, 20, c.Int("list_limit"))
}

func TestVisibleHidesHiddenAndPlugins(t *testing.T) {
	c := New("allcaps")
	for _, e := range c.Visible() {
		assert.NotEqual(t, "botname", e.Key)
		assert.NotEqual(t, "allcaps", e.Key)
	}
	plugins := c.Plugins()
	require.Len(t, plugins, 1)
	assert.Equal(t, "allcaps", plugins[0].Key)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("botname: Brick\nlist_limit: 7\ntla: 10\n"), 0o644))
	t.Setenv("BRICK_DEBUG", "true")

	c, err := Load(path, "tla")
	require.NoError(t, err)
	assert.Equal(t, "Brick", c.String("botname"))
	assert.Equal(t, 7, c.Int("list_limit"))
	assert.Equal(t, 10, c.Int("tla"))
	assert.True(t, c.Bool("debug"))
	assert.NoError(t, c.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("botname: Brick\nsurprise: 1\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestLoadRejectsBadTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("botname: Brick\nlist_limit: many\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrType)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 20, c.Int("list_limit"))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "brick.yaml")
	c := New("bandname")
	require.NoError(t, c.Set("botname", "Brick"))
	require.NoError(t, c.Set("bandname", 25))
	require.NoError(t, c.Save(path))

	loaded, err := Load(path, "bandname")
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Int("bandname"))
	assert.Equal(t, "Brick", loaded.String("botname"))
}

func TestSignatureAndRestore(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("botname", "Brick"))
	assert.Equal(t, "Brick|offline=false", c.Signature())

	other := New()
	err := other.Restore(map[string]any{"botname": "Brick", "list_limit": float64(4), "gone": true})
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, 4, other.Int("list_limit"))
	assert.Equal(t, c.Signature(), other.Signature())
}
