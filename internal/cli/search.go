package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search factoids by text",
		Long:  "Search factoid values, or another field with --field, for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("field", "factoid", "Field to search: factoid, subject, subject_lc or mode")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	factCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	field, _ := cmd.Flags().GetString("field")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	docs, err := s.Search(cmd.Context(), "factoids", field, query)
	if err != nil {
		exitErr("search", err)
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	facts, err := decodeFacts(docs)
	if err != nil {
		exitErr("search", err)
	}
	printOut(facts, factLines(facts))
}
