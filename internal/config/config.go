// Package config holds the bot's typed runtime configuration.
//
// Every key is declared in a schema with a type, a default and a visibility
// flag. Loading and runtime changes both go through the schema, so unknown
// keys and values of the wrong type are rejected instead of coerced silently.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownKey is returned for keys missing from the schema.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrType is returned when a value does not fit the key's type.
	ErrType = errors.New("config type mismatch")
)

// Type is the value type of a key.
type Type int

const (
	String Type = iota
	Int
	Bool
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Bool:
		return "bool"
	default:
		return "string"
	}
}

// Key describes one configuration key.
type Key struct {
	Name    string
	Type    Type
	Default any
	Hidden  bool
	Plugin  bool
}

// PluginDefault is the trigger percentage of a plugin with no setting.
const PluginDefault = 100

// Keys is the built-in schema.
var Keys = []Key{
	{Name: "botname", Type: String, Default: "", Hidden: true},
	{Name: "timezone", Type: Int, Default: -5},
	{Name: "debug", Type: Bool, Default: false},
	{Name: "caching", Type: Bool, Default: true},
	{Name: "devmode", Type: Bool, Default: false},
	{Name: "offline", Type: Bool, Default: false, Hidden: true},
	{Name: "min_length", Type: Int, Default: 6},
	{Name: "max_length", Type: Int, Default: 150},
	{Name: "learn_unaddressed", Type: Bool, Default: true},
	{Name: "mutetime", Type: Int, Default: 60, Hidden: true},
	{Name: "post_limit", Type: Int, Default: 400},
	{Name: "list_limit", Type: Int, Default: 20},
	{Name: "post_history", Type: Int, Default: 10},
	{Name: "resp_delay", Type: Int, Default: 5},
	{Name: "outburst", Type: Int, Default: 24},
	{Name: "reminder_day", Type: Int, Default: 0},
	{Name: "reminder_cooldown", Type: Int, Default: 48},
	{Name: "reminder_subject", Type: String, Default: "[reminder]"},
	{Name: "db_path", Type: String, Default: "", Hidden: true},
	{Name: "social_url", Type: String, Default: "", Hidden: true},
}

// Entry is a key with its current value, for listings.
type Entry struct {
	Key   string
	Value any
}

// Config is the live configuration.
type Config struct {
	schema map[string]Key
	order  []string
	values map[string]any
}

// New returns a configuration holding defaults, with one int key per plugin.
func New(plugins ...string) *Config {
	c := &Config{schema: map[string]Key{}, values: map[string]any{}}
	for _, k := range Keys {
		c.add(k)
	}
	for _, p := range plugins {
		c.add(Key{Name: p, Type: Int, Default: PluginDefault, Plugin: true})
	}
	return c
}

func (c *Config) add(k Key) {
	if _, ok := c.schema[k.Name]; !ok {
		c.order = append(c.order, k.Name)
	}
	c.schema[k.Name] = k
	c.values[k.Name] = k.Default
}

// Load reads configuration from an optional YAML file and BRICK_* environment
// variables on top of the defaults.
func Load(path string, plugins ...string) (*Config, error) {
	c := New(plugins...)

	v := viper.New()
	v.SetEnvPrefix("BRICK")
	v.AutomaticEnv()
	for _, name := range c.order {
		v.SetDefault(name, c.schema[name].Default)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	for _, key := range v.AllKeys() {
		if _, ok := c.schema[key]; !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrUnknownKey)
		}
	}
	for _, name := range c.order {
		if err := c.Set(name, v.Get(name)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Validate checks the keys the bot cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.String("botname")) == "" {
		return fmt.Errorf("botname is required (set BRICK_BOTNAME or botname in the config file)")
	}
	return nil
}

// Has reports whether name is a known key.
func (c *Config) Has(name string) bool {
	_, ok := c.schema[name]
	return ok
}

// Schema returns the definition of name.
func (c *Config) Schema(name string) (Key, bool) {
	k, ok := c.schema[name]
	return k, ok
}

// Get returns the value of name.
func (c *Config) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

func (c *Config) Int(name string) int {
	n, _ := c.values[name].(int)
	return n
}

func (c *Config) Bool(name string) bool {
	b, _ := c.values[name].(bool)
	return b
}

func (c *Config) String(name string) string {
	s, _ := c.values[name].(string)
	return s
}

// Set converts raw to the key's type and stores it. A nil raw resets the key.
func (c *Config) Set(name string, raw any) error {
	k, ok := c.schema[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownKey)
	}
	if raw == nil {
		c.values[name] = k.Default
		return nil
	}
	val, err := convert(k.Type, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	c.values[name] = val
	return nil
}

// Reset restores the default of name.
func (c *Config) Reset(name string) error {
	return c.Set(name, nil)
}

func convert(t Type, raw any) (any, error) {
	switch t {
	case Int:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, nil
			}
		}
	case Bool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "on", "1":
				return true, nil
			case "false", "no", "off", "0":
				return false, nil
			}
		}
	case String:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%v is not a %s: %w", raw, t, ErrType)
}

// Visible returns the non-hidden, non-plugin keys sorted by name.
func (c *Config) Visible() []Entry {
	var out []Entry
	for _, name := range c.order {
		k := c.schema[name]
		if k.Hidden || k.Plugin {
			continue
		}
		out = append(out, Entry{Key: name, Value: c.values[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Plugins returns the plugin trigger keys in registration order.
func (c *Config) Plugins() []Entry {
	var out []Entry
	for _, name := range c.order {
		if c.schema[name].Plugin {
			out = append(out, Entry{Key: name, Value: c.values[name]})
		}
	}
	return out
}

// Signature identifies which persisted sessions belong to this configuration.
func (c *Config) Signature() string {
	return c.String("botname") + "|offline=" + strconv.FormatBool(c.Bool("offline"))
}

// Snapshot returns a copy of every value.
func (c *Config) Snapshot() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Restore applies a snapshot. Keys no longer in the schema are skipped and
// reported; keys with bad values keep their current value.
func (c *Config) Restore(snap map[string]any) error {
	var errs []error
	for name, raw := range snap {
		if err := c.Set(name, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Save writes every value to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := yaml.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
