package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	lines := []string{fmt.Sprintf("%s: %d live of %d docs, %d bytes", stats.DBPath, stats.ActiveDocs, stats.TotalDocs, stats.DBSizeBytes)}
	for _, k := range stats.Kinds {
		lines = append(lines, fmt.Sprintf("  %s: %d (%d keys)", k.Kind, k.Count, k.Keys))
	}
	printOut(stats, strings.Join(lines, "\n"))
}
