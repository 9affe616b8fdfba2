package cli

import (
	"context"

	"github.com/m-mizutani/coursedash/pkg/server"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve course questions as MCP tools over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout is the transport, so logs must go to stderr
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

			if err := server.NewMCP(uc.chat, version).Run(ctx, &mcp.StdioTransport{}); err != nil {
				return goerr.Wrap(err, "MCP server stopped")
			}
			return nil
		},
	}
}
