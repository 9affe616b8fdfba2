package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/coursedash/pkg/adapter"
	"github.com/m-mizutani/coursedash/pkg/extract"
	"github.com/m-mizutani/coursedash/pkg/repository"
	"github.com/m-mizutani/coursedash/pkg/usecase/chat"
	"github.com/m-mizutani/coursedash/pkg/usecase/lecture"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const (
	repositoryMemory    = "memory"
	repositoryFirestore = "firestore"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	repository  string
	project     string
	database    string
	credentials string

	// Adapters
	genaiAPIKey        string
	geminiProject      string
	geminiLocation     string
	generativeModel    string
	embeddingModel     string
	embeddingDimension int64
	bucket             string

	// Extraction
	unidocLicenseKey string
}

// logFlags returns logging flags with destination config
func logFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("COURSEDASH_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("COURSEDASH_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	flags := logFlags(cfg)
	return append(flags,
		&cli.StringFlag{
			Name:        "repository",
			Aliases:     []string{"r"},
			Usage:       "Chunk repository backend (firestore, memory)",
			Value:       repositoryFirestore,
			Sources:     cli.EnvVars("COURSEDASH_REPOSITORY"),
			Destination: &cfg.repository,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "credentials",
			Usage:       "Path to Google Cloud service account key file",
			Sources:     cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.credentials,
		},
	)
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "genai-api-key",
			Usage:       "Gemini API key. Vertex AI is used if empty",
			Sources:     cli.EnvVars("GENAI_API_KEY"),
			Destination: &cfg.genaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for answers and titles",
			Value:       "gemini-2.0-flash",
			Sources:     cli.EnvVars("COURSEDASH_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini embedding model",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("COURSEDASH_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding dimension. Must not change after lectures are stored",
			Value:       768,
			Sources:     cli.EnvVars("COURSEDASH_EMBEDDING_DIMENSION"),
			Destination: &cfg.embeddingDimension,
		},
	}
}

// documentFlags returns flags for document processing with destination config
func documentFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket to archive uploaded documents. Archiving is disabled if empty",
			Sources:     cli.EnvVars("COURSEDASH_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "unidoc-license-key",
			Usage:       "UniDoc metered license key for PPTX and DOCX extraction",
			Sources:     cli.EnvVars("UNIDOC_LICENSE_API_KEY"),
			Destination: &cfg.unidocLicenseKey,
		},
	}
}

// setupLogger configures the default logger and attaches it to the context
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(cfg.logLevel, cfg.logFormat, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.credentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.credentials)}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.repository {
	case repositoryMemory:
		logging.From(ctx).Warn("memory repository is used, stored lectures are lost on exit")
		return repository.NewMemory(), nil

	case repositoryFirestore:
		if cfg.project == "" {
			return nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, goerr.New("database is required")
		}

		repo, err := repository.New(ctx, cfg.project, cfg.database, cfg.clientOptions()...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("unknown repository backend", goerr.V("repository", cfg.repository))
	}
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	opts := []adapter.GeminiOption{
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
	}

	if cfg.genaiAPIKey != "" {
		return adapter.NewGeminiWithAPIKey(ctx, cfg.genaiAPIKey, opts...)
	}

	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project or genai-api-key is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// newStorage creates a new Storage adapter instance. It returns nil if no bucket is configured.
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket, cfg.clientOptions()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newExtractor creates the document extractor registry
func (cfg *config) newExtractor() (*extract.Registry, error) {
	if cfg.unidocLicenseKey != "" {
		if err := extract.SetOfficeLicense(cfg.unidocLicenseKey); err != nil {
			return nil, err
		}
	}
	return extract.NewDefault(), nil
}

// usecases bundles dependencies shared by commands
type usecases struct {
	repo      repository.Repository
	extractor *extract.Registry
	chat      *chat.UseCase
	lecture   *lecture.UseCase
}

// Close releases clients held by the repository
func (x *usecases) Close() error {
	if closer, ok := x.repo.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return goerr.Wrap(err, "failed to close repository")
		}
	}
	return nil
}

func (cfg *config) newUseCases(ctx context.Context) (_ *usecases, err error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			closeRepository(ctx, repo)
		}
	}()

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, err
	}

	extractor, err := cfg.newExtractor()
	if err != nil {
		return nil, err
	}

	dim := int(cfg.embeddingDimension)
	lectureOpts := []lecture.Option{lecture.WithEmbeddingDimension(dim)}
	if storage != nil {
		lectureOpts = append(lectureOpts, lecture.WithStorage(storage))
	}

	return &usecases{
		repo:      repo,
		extractor: extractor,
		chat:      chat.New(repo, gemini, chat.WithEmbeddingDimension(dim)),
		lecture:   lecture.New(repo, gemini, extractor, lectureOpts...),
	}, nil
}

func closeRepository(ctx context.Context, repo repository.Repository) {
	if closer, ok := repo.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logging.From(ctx).Warn("failed to close repository", "error", err)
		}
	}
}
