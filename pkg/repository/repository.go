package repository

import (
	"context"

	"github.com/m-mizutani/coursedash/pkg/model"
)

// DefaultTopK is the number of chunks returned by a similarity query unless specified
const DefaultTopK = 3

// Repository defines the interface for per-user chunk collections
type Repository interface {
	// EnsureCollection creates the user's collection if it does not exist yet. It is idempotent.
	EnsureCollection(ctx context.Context, userID model.UserID) error

	// PutChunk saves a chunk into its user's collection. Identical text is stored again as a new chunk.
	PutChunk(ctx context.Context, chunk *model.Chunk) error

	// QueryChunks returns up to topK chunks of the course nearest to the embedding, best match first
	QueryChunks(ctx context.Context, userID model.UserID, embedding []float32, course model.Course, topK int) ([]*model.Chunk, error)

	// DeleteCollection removes the user's collection and all chunks in it
	DeleteCollection(ctx context.Context, userID model.UserID) error
}
