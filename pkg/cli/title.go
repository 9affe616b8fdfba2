package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/coursedash/pkg/repository"
	"github.com/m-mizutani/coursedash/pkg/usecase/lecture"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func titleCommand() *cli.Command {
	var (
		cfg      config
		filePath string
		docType  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Lecture document",
			Destination: &filePath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "MIME type of the document. Inferred from the extension if empty",
			Destination: &docType,
		},
	}
	flags = append(flags, logFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, documentFlags(&cfg)...)

	return &cli.Command{
		Name:  "title",
		Usage: "Suggest a title for a lecture document",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			resolved, err := resolveDocumentType(docType, filePath)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(filePath)
			if err != nil {
				return goerr.Wrap(err, "failed to read lecture file", goerr.V("file", filePath))
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			extractor, err := cfg.newExtractor()
			if err != nil {
				return err
			}

			// Title extraction never reads or writes chunks
			uc := lecture.New(repository.NewMemory(), gemini, extractor)
			title, err := uc.ExtractTitle(ctx, data, resolved)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, title)
			return nil
		},
	}
}
