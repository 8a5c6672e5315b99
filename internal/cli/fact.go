package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
)

var factCmd = &cobra.Command{
	Use:   "fact",
	Short: "Inspect and edit stored factoids",
}

func init() {
	RootCmd.AddCommand(factCmd)
}

// factView is a factoid as the CLI prints it.
type factView struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Relation  string `json:"relation"`
	Value     string `json:"value"`
	Cached    bool   `json:"cached,omitempty"`
	Protected bool   `json:"protected,omitempty"`
	AddedBy   string `json:"added_by,omitempty"`
}

func viewOf(f model.Factoid) factView {
	return factView{
		ID:        f.ID,
		Subject:   f.Subject,
		Relation:  f.Relation,
		Value:     f.Value,
		Cached:    f.Cached,
		Protected: f.Protected,
		AddedBy:   f.AddedBy,
	}
}

func decodeFacts(docs []model.Doc) ([]factView, error) {
	out := make([]factView, 0, len(docs))
	for _, d := range docs {
		f, err := model.FactoidFromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, viewOf(f))
	}
	return out, nil
}

func factLines(facts []factView) string {
	lines := make([]string, len(facts))
	for i, f := range facts {
		lines[i] = f.ID + "  " + f.Subject + " " + f.Relation + " " + f.Value
	}
	return strings.Join(lines, "\n")
}
