// Package cli implements the brick CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/logging"
	"github.com/rcliao/brick/internal/plugin"
	"github.com/rcliao/brick/internal/store"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	logFormat  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "brick",
	Short: "A factoid chat bot",
	Long:  "Brick learns \"X is Y\" factoids from chat and says them back when asked. SQLite-backed, single binary.",
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&dbPath, "db", "d", "", "Database path (default: $BRICK_DB, db_path from the config file, or ~/.brick/brick.db)")
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: $BRICK_CONFIG or ~/.brick/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	pf.StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func brickHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".brick")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("BRICK_CONFIG"); env != "" {
		return env
	}
	return filepath.Join(brickHome(), "config.yaml")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(getConfigPath(), plugin.Names(plugin.Builtins())...)
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("BRICK_DB"); env != "" {
		return env
	}
	if p := cfg.String("db_path"); p != "" {
		return p
	}
	return filepath.Join(brickHome(), "brick.db")
}

func newLogger() *zap.Logger {
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		exitErr("logger", err)
	}
	return log
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(cfg))
}

// printOut writes v as indented JSON, or text in text format.
func printOut(v any, text string) {
	if formatFlag == "text" {
		fmt.Println(text)
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
