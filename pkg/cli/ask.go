package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/usecase/chat"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg    config
		course string
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "course",
			Aliases:     []string{"c"},
			Usage:       "Course to ask about",
			Destination: &course,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "user-id",
			Aliases:     []string{"u"},
			Usage:       "Owner of the lectures",
			Sources:     cli.EnvVars("COURSEDASH_USER_ID"),
			Destination: &userID,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask questions about a course. Starts an interactive session if no question is given",
		ArgsUsage: "[question]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := uc.Close(); err != nil {
					logging.From(ctx).Warn("failed to close resources", "error", err)
				}
			}()

			asker := &asker{
				chat:   uc.chat,
				course: model.Course(course),
				userID: model.UserID(userID),
				w:      c.Root().Writer,
			}

			if c.Args().Present() {
				return asker.ask(ctx, strings.Join(c.Args().Slice(), " "))
			}
			return asker.loop(ctx)
		},
	}
}

type asker struct {
	chat   *chat.UseCase
	course model.Course
	userID model.UserID
	w      io.Writer
}

func (x *asker) ask(ctx context.Context, query string) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(x.w))
	s.Suffix = " thinking..."
	s.Start()

	answer, err := x.chat.Respond(ctx, chat.RespondInput{
		Query:  query,
		Course: x.course,
		UserID: x.userID,
	})
	s.Stop()
	if err != nil {
		return err
	}

	fmt.Fprintf(x.w, "%s\n\n", answer)
	return nil
}

func (x *asker) loop(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", x.course),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          x.w,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to initialize readline")
	}
	defer rl.Close()

	fmt.Fprintf(x.w, "Ask about %s. Type '/reset' to clear history, 'exit' to quit.\n", x.course)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read line")
		}

		query := strings.TrimSpace(line)
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			x.chat.ResetHistory(string(x.userID))
			fmt.Fprintln(x.w, "History cleared")
			continue
		}

		// A failed question should not end the session
		if err := x.ask(ctx, query); err != nil {
			fmt.Fprintf(x.w, "❌ %s\n", err.Error())
		}
	}
}
