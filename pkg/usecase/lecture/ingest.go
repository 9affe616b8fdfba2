package lecture

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// IngestInput is an uploaded lecture document
type IngestInput struct {
	Data   []byte
	Type   model.DocumentType
	Course model.Course
	Title  string
	UserID model.UserID
}

// Ingest extracts text of the document, prefixes it with the title, embeds it and stores
// it as a new chunk in the user's collection. Re-uploading a document creates another chunk.
func (u *UseCase) Ingest(ctx context.Context, input IngestInput) (*model.Chunk, error) {
	if input.UserID == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "user ID is empty")
	}
	if input.Course == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "course is empty")
	}

	body, err := u.extractor.Extract(ctx, input.Data, input.Type)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract text", goerr.V("type", input.Type))
	}

	text := fmt.Sprintf("%s:\n\n%s", input.Title, body)

	embedding, err := u.gemini.Embedding(ctx, text, u.dimension)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed lecture text")
	}

	chunk := &model.Chunk{
		ID:        model.NewChunkID(),
		UserID:    input.UserID,
		Course:    input.Course,
		Title:     input.Title,
		Text:      text,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}

	// Archive before storing so that a failed upload leaves no searchable chunk
	if u.storage != nil {
		if err := u.archive(ctx, chunk, input); err != nil {
			return nil, err
		}
	}

	if err := u.repo.PutChunk(ctx, chunk); err != nil {
		return nil, goerr.Wrap(err, "failed to store chunk", goerr.V("chunk_id", chunk.ID))
	}

	logging.From(ctx).Info("lecture stored",
		"user_id", chunk.UserID,
		"course", chunk.Course,
		"chunk_id", chunk.ID,
		"text_len", len(chunk.Text),
	)

	return chunk, nil
}

func archiveKey(chunk *model.Chunk, docType model.DocumentType) string {
	return fmt.Sprintf("lectures/%s/%s/%s%s", chunk.UserID, chunk.Course, chunk.ID, docType.Ext())
}

func (u *UseCase) archive(ctx context.Context, chunk *model.Chunk, input IngestInput) error {
	key := archiveKey(chunk, input.Type)

	w, err := u.storage.Put(ctx, key, string(input.Type))
	if err != nil {
		return goerr.Wrap(err, "failed to create archive writer", goerr.V("key", key))
	}

	if _, err := w.Write(input.Data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive", goerr.V("key", key))
	}

	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close archive writer", goerr.V("key", key))
	}

	return nil
}
