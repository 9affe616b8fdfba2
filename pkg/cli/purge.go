package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func purgeCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "purge",
		Usage:     "Delete every stored lecture of the given users",
		ArgsUsage: "<user-id>...",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			if !c.Args().Present() {
				return goerr.New("at least one user ID is required")
			}

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := uc.Close(); err != nil {
					logging.From(ctx).Warn("failed to close resources", "error", err)
				}
			}()

			for _, id := range c.Args().Slice() {
				if err := uc.lecture.Purge(ctx, model.UserID(id)); err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "🗑️ purged %s\n", id)
			}

			return nil
		},
	}
}
