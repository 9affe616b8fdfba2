package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/coursedash/pkg/server"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg           config
		addr          string
		maxUploadSize int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "localhost:8000",
			Sources:     cli.EnvVars("COURSEDASH_ADDR"),
			Destination: &addr,
		},
		&cli.IntFlag{
			Name:        "max-upload-size",
			Usage:       "Maximum upload size in bytes",
			Value:       32 << 20,
			Sources:     cli.EnvVars("COURSEDASH_MAX_UPLOAD_SIZE"),
			Destination: &maxUploadSize,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, documentFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server for uploads and questions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)
			logger := logging.From(ctx)

			uc, err := cfg.newUseCases(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := uc.Close(); err != nil {
					logging.From(ctx).Warn("failed to close resources", "error", err)
				}
			}()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(uc.chat, uc.lecture, uc.extractor, server.WithMaxUploadSize(maxUploadSize)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return goerr.Wrap(err, "server stopped", goerr.V("addr", addr))
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server")
			}
			return nil
		},
	}
}
