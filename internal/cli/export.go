package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export documents as JSON",
		Long:  "Export all live documents as a JSON array. Filter by kind (fact, var, user, syllable, state) with -k.",
		Run:   runExport,
	}

	cmd.Flags().StringP("kind", "k", "", "Filter by document kind")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")
	if kind != "" && !model.ValidKinds[model.Kind(kind)] {
		exitErr("export", fmt.Errorf("unknown kind %q", kind))
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	docs, err := s.ExportAll(cmd.Context(), model.Kind(kind))
	if err != nil {
		exitErr("export", err)
	}
	if docs == nil {
		docs = []model.Doc{}
	}

	b, _ := json.MarshalIndent(docs, "", "  ")
	fmt.Println(string(b))
}
