package lecture

import (
	"context"

	"github.com/m-mizutani/coursedash/pkg/adapter"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/repository"
)

// TextExtractor converts a document of the declared type into text
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, docType model.DocumentType) (string, error)
}

// UseCase provides lecture document operations
type UseCase struct {
	repo      repository.Repository
	gemini    adapter.Gemini
	extractor TextExtractor
	storage   adapter.Storage
	dimension int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithStorage enables archiving of uploaded documents
func WithStorage(s adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.storage = s
	}
}

// WithEmbeddingDimension sets the dimensionality of chunk embeddings
func WithEmbeddingDimension(dim int) Option {
	return func(uc *UseCase) {
		uc.dimension = dim
	}
}

// New creates a new lecture UseCase instance
func New(
	repo repository.Repository,
	gemini adapter.Gemini,
	extractor TextExtractor,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:      repo,
		gemini:    gemini,
		extractor: extractor,
		dimension: model.EmbeddingDimension,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
