package cli

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

// version is overwritten at build time
var version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:      "coursedash",
		Usage:     "Question answering over your course lectures",
		Version:   version,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			uploadCommand(),
			askCommand(),
			titleCommand(),
			purgeCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
