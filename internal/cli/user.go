package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
)

type userView struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"user_id"`
	Name       string     `json:"name"`
	Role       model.Role `json:"role"`
}

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Known users and their roles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List known users",
		Run:   runUserList,
	}

	roleCmd := &cobra.Command{
		Use:   "role [user-id] [role]",
		Short: "Set a user's role (user, op or admin)",
		Long: `Set a user's role. The user is created if the bot has not seen them yet,
which is how the first admin is bootstrapped.`,
		Args: cobra.ExactArgs(2),
		Run:  runUserRole,
	}

	userCmd.AddCommand(listCmd, roleCmd)
	RootCmd.AddCommand(userCmd)
}

func runUserList(cmd *cobra.Command, args []string) {
	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	rows, err := s.Query(cmd.Context(), store.QueryParams{View: store.ViewUsers, FullDocs: true})
	if err != nil {
		exitErr("list users", err)
	}
	out := make([]userView, 0, len(rows))
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		u, err := model.UserFromDoc(*r.Doc)
		if err != nil {
			exitErr("list users", err)
		}
		out = append(out, userView{ID: u.ID, ExternalID: u.ExternalID, Name: u.Name, Role: u.Role})
		lines = append(lines, fmt.Sprintf("%s  %s  %s", u.ExternalID, u.Name, u.Role))
	}
	printOut(out, strings.Join(lines, "\n"))
}

func runUserRole(cmd *cobra.Command, args []string) {
	role, err := model.ParseRole(strings.ToLower(args[1]))
	if err != nil {
		exitErr("role", err)
	}

	s, err := openStore(loadConfig())
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	u, err := findUser(cmd, s, args[0])
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		exitErr("role", err)
	}
	u.Role = role

	var res []store.PostResult
	if u.ID == "" {
		res, err = s.Post(cmd.Context(), u.Doc())
	} else {
		res, err = s.Update(cmd.Context(), u.Doc())
	}
	if err != nil {
		exitErr("role", err)
	}
	u.ID = res[0].ID

	printOut(userView{ID: u.ID, ExternalID: u.ExternalID, Name: u.Name, Role: u.Role},
		fmt.Sprintf("%s is now %s", u.ExternalID, u.Role))
}

// findUser returns the stored user for an external id, or a fresh one with
// ErrNotFound.
func findUser(cmd *cobra.Command, s store.Store, externalID string) (model.User, error) {
	rows, err := s.Query(cmd.Context(), store.QueryParams{View: store.ViewUsers, Key: externalID, FullDocs: true})
	if err != nil {
		return model.User{}, err
	}
	if len(rows) == 0 {
		return model.User{ExternalID: externalID, Name: externalID}, store.ErrNotFound
	}
	return model.UserFromDoc(*rows[0].Doc)
}
