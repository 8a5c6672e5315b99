package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/textfmt"
)

const maxAliasHops = 8

func init() {
	cmd := &cobra.Command{
		Use:   "get [subject]",
		Short: "Show the factoids of a subject",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().Bool("follow", true, "Follow aliases to the subject they point at")

	factCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	follow, _ := cmd.Flags().GetBool("follow")

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	docs, err := subjectDocs(cmd.Context(), s, args[0], follow)
	if err != nil {
		exitErr("get", err)
	}
	facts, err := decodeFacts(docs)
	if err != nil {
		exitErr("get", err)
	}
	printOut(facts, factLines(facts))
}

// subjectDocs returns the fact documents stored under subject, following a
// chain of aliases when follow is set.
func subjectDocs(ctx context.Context, s store.Store, subject string, follow bool) ([]model.Doc, error) {
	key := textfmt.Depunctuate(subject)
	seen := map[string]bool{}
	for hop := 0; ; hop++ {
		rows, err := s.Query(ctx, store.QueryParams{View: store.ViewSubjects, Key: key, FullDocs: true})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("subject %q: %w", key, store.ErrNotFound)
		}
		docs := make([]model.Doc, len(rows))
		for i, r := range rows {
			docs[i] = *r.Doc
		}
		if !follow {
			return docs, nil
		}

		f, err := model.FactoidFromDoc(docs[0])
		if err != nil {
			return nil, err
		}
		if !f.IsAlias() {
			return docs, nil
		}
		seen[key] = true
		key = textfmt.Depunctuate(f.Value)
		if seen[key] || hop >= maxAliasHops {
			return nil, fmt.Errorf("alias loop at %q", key)
		}
	}
}
