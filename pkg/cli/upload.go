package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/usecase/lecture"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// manifest describes a batch of lectures to upload
type manifest struct {
	UserID   string            `yaml:"user_id"`
	Lectures []manifestLecture `yaml:"lectures"`
}

type manifestLecture struct {
	File   string `yaml:"file"`
	Type   string `yaml:"type"`
	Course string `yaml:"course"`
	Title  string `yaml:"title"`
}

func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest", goerr.V("path", path))
	}

	// Relative file paths are resolved from the manifest location
	base := filepath.Dir(path)
	for i := range m.Lectures {
		if m.Lectures[i].File != "" && !filepath.IsAbs(m.Lectures[i].File) {
			m.Lectures[i].File = filepath.Join(base, m.Lectures[i].File)
		}
	}

	return &m, nil
}

// resolveDocumentType returns the declared type, or infers it from the file extension
func resolveDocumentType(declared, path string) (model.DocumentType, error) {
	if declared != "" {
		return model.DocumentType(declared), nil
	}

	docType, ok := model.DocumentTypeFromExt(filepath.Ext(path))
	if !ok {
		return "", goerr.Wrap(model.ErrInvalidInput, "cannot infer document type, specify --type", goerr.V("path", path))
	}
	return docType, nil
}

func uploadCommand() *cli.Command {
	var (
		cfg          config
		filePath     string
		docType      string
		course       string
		title        string
		userID       string
		manifestPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Lecture document to upload (PDF, PPTX, DOCX)",
			Destination: &filePath,
		},
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "MIME type of the document. Inferred from the extension if empty",
			Destination: &docType,
		},
		&cli.StringFlag{
			Name:        "course",
			Aliases:     []string{"c"},
			Usage:       "Course name of the lecture",
			Destination: &course,
		},
		&cli.StringFlag{
			Name:        "title",
			Usage:       "Lecture title. Extracted by LLM if empty",
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "user-id",
			Aliases:     []string{"u"},
			Usage:       "Owner of the lecture",
			Sources:     cli.EnvVars("COURSEDASH_USER_ID"),
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "manifest",
			Aliases:     []string{"m"},
			Usage:       "YAML manifest of lectures to upload in batch",
			Destination: &manifestPath,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, documentFlags(&cfg)...)

	return &cli.Command{
		Name:  "upload",
		Usage: "Extract, embed and store lecture documents",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			var m *manifest
			switch {
			case manifestPath != "" && filePath != "":
				return goerr.New("--file and --manifest are exclusive")
			case manifestPath != "":
				loaded, err := loadManifest(manifestPath)
				if err != nil {
					return err
				}
				m = loaded
				if userID != "" {
					m.UserID = userID
				}
			case filePath != "":
				m = &manifest{
					UserID: userID,
					Lectures: []manifestLecture{
						{File: filePath, Type: docType, Course: course, Title: title},
					},
				}
			default:
				return goerr.New("--file or --manifest is required")
			}

			if m.UserID == "" {
				return goerr.New("user-id is required")
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

			for _, lec := range m.Lectures {
				chunk, err := uploadLecture(ctx, c.Root().Writer, uc.lecture, model.UserID(m.UserID), lec)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "✅ %s (%s) stored as %s\n", chunk.Title, chunk.Course, chunk.ID)
			}

			return nil
		},
	}
}

func uploadLecture(ctx context.Context, w io.Writer, uc *lecture.UseCase, userID model.UserID, lec manifestLecture) (*model.Chunk, error) {
	if lec.File == "" {
		return nil, goerr.New("file is required")
	}
	if lec.Course == "" {
		return nil, goerr.New("course is required", goerr.V("file", lec.File))
	}

	docType, err := resolveDocumentType(lec.Type, lec.File)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(lec.File)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read lecture file", goerr.V("file", lec.File))
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Start()
	defer s.Stop()

	title := lec.Title
	if title == "" {
		s.Suffix = " extracting title of " + filepath.Base(lec.File)
		title, err = uc.ExtractTitle(ctx, data, docType)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to extract title", goerr.V("file", lec.File))
		}
		logging.From(ctx).Debug("title extracted", "file", lec.File, "title", title)
	}

	s.Suffix = " storing " + filepath.Base(lec.File)
	chunk, err := uc.Ingest(ctx, lecture.IngestInput{
		Data:   data,
		Type:   docType,
		Course: model.Course(lec.Course),
		Title:  title,
		UserID: userID,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ingest lecture", goerr.V("file", lec.File))
	}

	return chunk, nil
}
