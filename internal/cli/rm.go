package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id...]",
		Short: "Forget factoids by id",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRm,
	}

	factCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	docs, err := s.Fetch(cmd.Context(), args...)
	if err != nil {
		exitErr("rm", err)
	}
	for _, d := range docs {
		if d.Kind != model.KindFact {
			exitErr("rm", fmt.Errorf("%s is a %s, not a fact", d.ID, d.Kind))
		}
	}
	old, err := s.Delete(cmd.Context(), docs...)
	if err != nil {
		exitErr("rm", err)
	}
	facts, err := decodeFacts(old)
	if err != nil {
		exitErr("rm", err)
	}
	printOut(facts, "forgot:\n"+factLines(facts))
}
