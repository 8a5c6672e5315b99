package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/config"
	"github.com/rcliao/brick/internal/plugin"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Bot configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the defaults",
		Run:   runConfigInit,
	}
	initCmd.Flags().String("botname", "", "Name the bot answers to")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Run:   runConfigShow,
	}

	configCmd.AddCommand(initCmd, showCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	botname, _ := cmd.Flags().GetString("botname")
	force, _ := cmd.Flags().GetBool("force")

	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	cfg := config.New(plugin.Names(plugin.Builtins())...)
	if botname != "" {
		if err := cfg.Set("botname", botname); err != nil {
			exitErr("config init", err)
		}
	}
	if err := cfg.Save(path); err != nil {
		exitErr("config init", err)
	}
	fmt.Printf(`{"ok":true,"path":%q}`+"\n", path)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	snap := cfg.Snapshot()

	names := make([]string, 0, len(snap))
	for k := range snap {
		names = append(names, k)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, k := range names {
		lines[i] = fmt.Sprintf("%s: %v", k, snap[k])
	}
	printOut(snap, strings.Join(lines, "\n"))
}
