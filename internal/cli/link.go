package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/textfmt"
)

func init() {
	cmd := &cobra.Command{
		Use:   "alias [subject] [target]",
		Short: "Make a subject an alias of another",
		Long:  "Make a subject an alias of another. The subject must not have factoids of its own.",
		Args:  cobra.ExactArgs(2),
		Run:   runLink,
	}

	cmd.Flags().String("by", "cli", "User id recorded as the author")

	factCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	by, _ := cmd.Flags().GetString("by")
	src, dst := args[0], textfmt.Depunctuate(args[1])
	if textfmt.Depunctuate(src) == dst {
		exitErr("alias", fmt.Errorf("%q cannot alias itself", src))
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if _, err := subjectDocs(cmd.Context(), s, src, false); err == nil {
		exitErr("alias", fmt.Errorf("there is already a factoid for %q", src))
	} else if !errors.Is(err, store.ErrNotFound) {
		exitErr("alias", err)
	}
	if _, err := subjectDocs(cmd.Context(), s, dst, true); err != nil {
		exitErr("alias", fmt.Errorf("target %q: %w", dst, err))
	}

	f := model.Factoid{
		Subject:    src,
		SubjectKey: textfmt.Depunctuate(src),
		Relation:   model.RelAlias,
		Value:      dst,
		AddedBy:    by,
		Added:      time.Now().UTC(),
	}
	res, err := s.Post(cmd.Context(), f.Doc())
	if err != nil {
		exitErr("alias", err)
	}
	f.ID = res[0].ID

	v := viewOf(f)
	printOut(v, factLines([]factView{v}))
}
