package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List factoids",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Int("skip", 0, "Results to skip")
	cmd.Flags().Bool("subjects", false, "Only output subjects with their fact counts")

	factCmd.AddCommand(cmd)
}

type subjectCount struct {
	Subject string `json:"subject"`
	Facts   int    `json:"facts"`
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	skip, _ := cmd.Flags().GetInt("skip")
	subjects, _ := cmd.Flags().GetBool("subjects")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if subjects {
		rows, err := s.Query(cmd.Context(), store.QueryParams{View: store.ViewNonAliasCount, Group: true})
		if err != nil {
			exitErr("list", err)
		}
		out := make([]subjectCount, len(rows))
		lines := make([]string, len(rows))
		for i, r := range rows {
			out[i] = subjectCount{Subject: r.Key, Facts: r.Count}
			lines[i] = fmt.Sprintf("%s (%d)", r.Key, r.Count)
		}
		printOut(out, strings.Join(lines, "\n"))
		return
	}

	rows, err := s.Query(cmd.Context(), store.QueryParams{
		View:     store.ViewNonAlias,
		FullDocs: true,
		Limit:    limit,
		Skip:     skip,
	})
	if err != nil {
		exitErr("list", err)
	}
	docs := make([]model.Doc, len(rows))
	for i, r := range rows {
		docs[i] = *r.Doc
	}
	facts, err := decodeFacts(docs)
	if err != nil {
		exitErr("list", err)
	}
	printOut(facts, factLines(facts))
}
