package chat

import (
	"context"

	"github.com/m-mizutani/coursedash/pkg/adapter"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/repository"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// UseCase answers course questions with retrieved lecture chunks and per-session history
type UseCase struct {
	repo      repository.Repository
	gemini    adapter.Gemini
	sessions  *Sessions
	topK      int
	dimension int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTopK sets the number of chunks used as context
func WithTopK(k int) Option {
	return func(uc *UseCase) {
		uc.topK = k
	}
}

// WithEmbeddingDimension sets the dimensionality of query embeddings. It must match stored chunks.
func WithEmbeddingDimension(dim int) Option {
	return func(uc *UseCase) {
		uc.dimension = dim
	}
}

// WithSessions replaces the session manager
func WithSessions(s *Sessions) Option {
	return func(uc *UseCase) {
		uc.sessions = s
	}
}

// New creates a new chat UseCase instance
func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:      repo,
		gemini:    gemini,
		sessions:  NewSessions(DefaultHistoryCapacity),
		topK:      repository.DefaultTopK,
		dimension: model.EmbeddingDimension,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// RespondInput is a question asked by a user about one of their courses
type RespondInput struct {
	Query  string
	Course model.Course
	UserID model.UserID

	// SessionKey selects conversation history. UserID is used if empty.
	SessionKey string
}

func (x RespondInput) sessionKey() string {
	if x.SessionKey != "" {
		return x.SessionKey
	}
	return string(x.UserID)
}

// Respond generates an answer grounded on the user's lecture chunks of the course and
// records the exchange in session history. History is updated only on success.
func (u *UseCase) Respond(ctx context.Context, input RespondInput) (string, error) {
	if input.Query == "" {
		return "", goerr.Wrap(model.ErrInvalidInput, "query is empty")
	}
	if input.UserID == "" {
		return "", goerr.Wrap(model.ErrInvalidInput, "user ID is empty")
	}

	logger := logging.From(ctx).With("user_id", input.UserID, "course", input.Course)

	embedding, err := u.gemini.Embedding(ctx, input.Query, u.dimension)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed query")
	}

	chunks, err := u.repo.QueryChunks(ctx, input.UserID, embedding, input.Course, u.topK)
	if err != nil {
		return "", goerr.Wrap(err, "failed to query chunks")
	}
	logger.Debug("retrieved chunks", "count", len(chunks))

	history := u.sessions.Get(input.sessionKey())
	prompt, err := buildPrompt(history.Snapshot(), input.Query, buildContext(chunks), input.Course)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := u.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate answer")
	}

	answer, err := adapter.ResponseText(resp)
	if err != nil {
		return "", err
	}

	history.Append(model.Exchange{User: input.Query, Bot: answer})
	logger.Info("answered question", "history_len", history.Len())

	return answer, nil
}

// History returns exchanges of the session, most recent last
func (u *UseCase) History(sessionKey string) []model.Exchange {
	return u.sessions.Get(sessionKey).Snapshot()
}

// ResetHistory clears the session. An empty key clears every session.
func (u *UseCase) ResetHistory(sessionKey string) {
	if sessionKey == "" {
		u.sessions.ClearAll()
		return
	}
	u.sessions.Clear(sessionKey)
}

// EvictSession drops the session and its history
func (u *UseCase) EvictSession(sessionKey string) {
	u.sessions.Evict(sessionKey)
}
