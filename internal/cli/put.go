package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/textfmt"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [subject] [relation] [value]",
		Short: "Store a factoid",
		Long: `Store a factoid. The relation is written in angle brackets, e.g. <reply>,
<is> or <likes>. The value can follow as positional args or be piped via stdin.`,
		Args: cobra.MinimumNArgs(2),
		Run:  runPut,
	}

	cmd.Flags().String("by", "cli", "User id recorded as the author")
	cmd.Flags().Bool("protect", false, "Protect the factoid")
	cmd.Flags().Bool("cache", false, "Cache the factoid as a canned reply")

	factCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	by, _ := cmd.Flags().GetString("by")
	protect, _ := cmd.Flags().GetBool("protect")
	cache, _ := cmd.Flags().GetBool("cache")

	subject, relation := args[0], strings.ToLower(args[1])
	if !strings.HasPrefix(relation, "<") || !strings.HasSuffix(relation, ">") {
		exitErr("add", fmt.Errorf("relation %q must be written as <verb>", relation))
	}

	// Get value: positional args first, then check stdin
	var value string
	if len(args) > 2 {
		value = strings.Join(args[2:], " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			value = string(b)
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		exitErr("add", fmt.Errorf("value is required (positional arg or stdin)"))
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	f := model.Factoid{
		Subject:    subject,
		SubjectKey: textfmt.Depunctuate(subject),
		Relation:   relation,
		Value:      value,
		Cached:     cache,
		Protected:  protect,
		AddedBy:    by,
		Added:      time.Now().UTC(),
	}
	res, err := s.Post(cmd.Context(), f.Doc())
	if err != nil {
		exitErr("add", err)
	}
	f.ID = res[0].ID

	v := viewOf(f)
	printOut(v, factLines([]factView{v}))
}
