package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/brick/internal/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "say [message]",
		Short: "Send one message and print the response",
		Long:  "Send one message to the bot and print what it answers. The message can be a positional arg or piped via stdin.",
		Run:   runSay,
	}

	cmd.Flags().String("name", defaultUser(), "Sender name")
	cmd.Flags().String("id", "", "Sender user id (default: the name)")

	RootCmd.AddCommand(cmd)
}

type sayResult struct {
	Message  string   `json:"message"`
	Response string   `json:"response"`
	Posts    []string `json:"posts"`
}

func runSay(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = name
	}

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = string(b)
		}
	}
	if strings.TrimSpace(text) == "" {
		exitErr("say", fmt.Errorf("message is required (positional arg or stdin)"))
	}

	cfg := loadConfig()
	log := newLogger()
	defer log.Sync()

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	eng, err := newEngine(cmd.Context(), cfg, s, log)
	if err != nil {
		exitErr("start engine", err)
	}

	resp, err := eng.Process(cmd.Context(), engine.Message{Name: name, UserID: id, Text: strings.TrimSpace(text)})
	if errors.Is(err, engine.ErrCrash) {
		fmt.Fprintln(os.Stderr, "crashed on request")
		os.Exit(2)
	}
	if err != nil {
		exitErr("say", err)
	}

	res := sayResult{Message: strings.TrimSpace(text), Response: resp, Posts: eng.Split(resp)}
	bot := cfg.String("botname")
	for _, p := range res.Posts {
		if _, err := eng.Process(cmd.Context(), engine.Message{Name: bot, UserID: bot, Text: p}); err != nil {
			exitErr("record response", err)
		}
	}
	if res.Posts == nil {
		res.Posts = []string{}
	}
	printOut(res, strings.Join(res.Posts, "\n"))
}
