package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
)

type varValue struct {
	ID    string `json:"id"`
	Var   string `json:"var"`
	Value string `json:"value"`
}

func init() {
	varCmd := &cobra.Command{
		Use:   "var",
		Short: "Variable management",
	}

	listCmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List variable values, optionally for one variable",
		Args:  cobra.MaximumNArgs(1),
		Run:   runVarList,
	}

	addCmd := &cobra.Command{
		Use:   "add [name] [value]",
		Short: "Add a value to a variable",
		Args:  cobra.MinimumNArgs(2),
		Run:   runVarAdd,
	}
	addCmd.Flags().String("by", "cli", "User id recorded as the author")
	addCmd.Flags().Bool("protect", false, "Protect the variable")

	varCmd.AddCommand(listCmd, addCmd)
	RootCmd.AddCommand(varCmd)
}

func runVarList(cmd *cobra.Command, args []string) {
	var name string
	if len(args) == 1 {
		name = strings.ToLower(args[0])
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.Query(cmd.Context(), store.QueryParams{View: store.ViewVars, Key: name})
	if err != nil {
		exitErr("list vars", err)
	}
	out := make([]varValue, len(rows))
	lines := make([]string, len(rows))
	for i, r := range rows {
		out[i] = varValue{ID: r.ID, Var: r.Key, Value: r.Value}
		lines[i] = fmt.Sprintf("$%s: %s", r.Key, r.Value)
	}
	printOut(out, strings.Join(lines, "\n"))
}

func runVarAdd(cmd *cobra.Command, args []string) {
	by, _ := cmd.Flags().GetString("by")
	protect, _ := cmd.Flags().GetBool("protect")
	name := strings.ToLower(strings.TrimPrefix(args[0], "$"))
	value := strings.Join(args[1:], " ")
	if model.ReservedVars[name] {
		exitErr("add var", fmt.Errorf("$%s is reserved", name))
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.Query(cmd.Context(), store.QueryParams{View: store.ViewVars, Key: name})
	if err != nil {
		exitErr("add var", err)
	}
	for _, r := range rows {
		if strings.EqualFold(r.Value, value) {
			exitErr("add var", fmt.Errorf("$%s already has the value %q", name, value))
		}
	}

	v := model.Variable{Name: name, Value: value, Protected: protect, AddedBy: by, Added: time.Now().UTC()}
	res, err := s.Post(cmd.Context(), v.Doc())
	if err != nil {
		exitErr("add var", err)
	}
	printOut(varValue{ID: res[0].ID, Var: name, Value: value}, fmt.Sprintf("$%s: %s", name, value))
}
