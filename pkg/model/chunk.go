package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidInput = goerr.New("invalid input")
)

// EmbeddingDimension is the default dimension of chunk embeddings
const EmbeddingDimension = 768

type UserID string

type Course string

type ChunkID string

// NewChunkID generates a new unique ChunkID
func NewChunkID() ChunkID {
	return ChunkID(uuid.New().String())
}

// Chunk is one unit of stored lecture text with its embedding. Course is the only
// field used for filtering; Title and CreatedAt are informational.
type Chunk struct {
	ID        ChunkID
	UserID    UserID
	Course    Course
	Title     string
	Text      string
	Embedding firestore.Vector32

	CreatedAt time.Time
}

// Validate checks required fields of a chunk before it is stored
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return goerr.Wrap(ErrInvalidInput, "chunk ID is empty")
	}
	if c.UserID == "" {
		return goerr.Wrap(ErrInvalidInput, "user ID is empty", goerr.V("chunk_id", c.ID))
	}
	if c.Course == "" {
		return goerr.Wrap(ErrInvalidInput, "course is empty", goerr.V("chunk_id", c.ID))
	}
	if len(c.Embedding) == 0 {
		return goerr.Wrap(ErrInvalidInput, "embedding is empty", goerr.V("chunk_id", c.ID))
	}
	return nil
}
