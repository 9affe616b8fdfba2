package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/coursedash/pkg/adapter"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/repository"
	"github.com/m-mizutani/coursedash/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

type mockGemini struct {
	adapter.Gemini
	embeddingFunc func(ctx context.Context, text string, dimensionality int) ([]float32, error)
	generateFunc  func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGemini) Embedding(ctx context.Context, text string, dimensionality int) ([]float32, error) {
	return m.embeddingFunc(ctx, text, dimensionality)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.generateFunc(ctx, contents, config)
}

// keywordEmbedding maps texts mentioning the same topic to the same direction
func keywordEmbedding(ctx context.Context, text string, dimensionality int) ([]float32, error) {
	v := make([]float32, dimensionality)
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "recursion"):
		v[0] = 1
	case strings.Contains(lower, "graph"):
		v[1] = 1
	default:
		v[2] = 1
	}
	return v, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  genai.RoleModel,
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

// recordingGemini returns a mock that records every prompt and answers with fixed text
func recordingGemini(answer string, prompts *[]string) *mockGemini {
	return &mockGemini{
		embeddingFunc: keywordEmbedding,
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			*prompts = append(*prompts, contents[0].Parts[0].Text)
			return textResponse(answer), nil
		},
	}
}

func putLecture(t *testing.T, repo repository.Repository, userID model.UserID, course model.Course, text string) {
	t.Helper()
	embedding, err := keywordEmbedding(context.Background(), text, model.EmbeddingDimension)
	gt.NoError(t, err)
	gt.NoError(t, repo.PutChunk(context.Background(), &model.Chunk{
		ID:        model.NewChunkID(),
		UserID:    userID,
		Course:    course,
		Text:      text,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}))
}

func TestRespondUsesRetrievedChunk(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	putLecture(t, repo, "u1", "CS101", "Lecture 1: recursion basics")

	var prompts []string
	uc := chat.New(repo, recordingGemini("Recursion is a function calling itself.", &prompts))

	answer, err := uc.Respond(ctx, chat.RespondInput{
		Query:  "explain recursion",
		Course: "CS101",
		UserID: "u1",
	})
	gt.NoError(t, err)
	gt.Equal(t, answer, "Recursion is a function calling itself.")

	gt.A(t, prompts).Length(1)
	gt.S(t, prompts[0]).Contains("Context:\nLecture 1: recursion basics\n")
	gt.S(t, prompts[0]).Contains("User Query: explain recursion")
	gt.S(t, prompts[0]).Contains("Conversation History:\nNone.")

	gt.Equal(t, uc.History("u1"), []model.Exchange{
		{User: "explain recursion", Bot: "Recursion is a function calling itself."},
	})
}

func TestRespondUnknownCourseRendersEmptyContext(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	putLecture(t, repo, "u1", "CS101", "Lecture 1: recursion basics")

	var prompts []string
	uc := chat.New(repo, recordingGemini("I don't know.", &prompts))

	answer, err := uc.Respond(ctx, chat.RespondInput{
		Query:  "explain recursion",
		Course: "CS999",
		UserID: "u1",
	})
	gt.NoError(t, err)
	gt.Equal(t, answer, "I don't know.")
	gt.S(t, prompts[0]).Contains("Context:\n\n")
	gt.S(t, prompts[0]).NotContains("recursion basics")
}

func TestRespondDoesNotLeakOtherUsersChunks(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	putLecture(t, repo, "u2", "CS101", "secret recursion notes of u2")

	var prompts []string
	uc := chat.New(repo, recordingGemini("answer", &prompts))

	_, err := uc.Respond(ctx, chat.RespondInput{Query: "explain recursion", Course: "CS101", UserID: "u1"})
	gt.NoError(t, err)
	gt.S(t, prompts[0]).NotContains("secret recursion notes")
}

func TestRespondIncludesHistoryOfSameSessionOnly(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	var prompts []string
	uc := chat.New(repo, recordingGemini("answer", &prompts))

	_, err := uc.Respond(ctx, chat.RespondInput{Query: "first from u1", Course: "CS101", UserID: "u1"})
	gt.NoError(t, err)
	_, err = uc.Respond(ctx, chat.RespondInput{Query: "first from u2", Course: "CS101", UserID: "u2"})
	gt.NoError(t, err)
	_, err = uc.Respond(ctx, chat.RespondInput{Query: "second from u1", Course: "CS101", UserID: "u1"})
	gt.NoError(t, err)

	gt.A(t, prompts).Length(3)
	gt.S(t, prompts[1]).Contains("Conversation History:\nNone.")
	gt.S(t, prompts[2]).Contains("User: first from u1\nBot: answer\n")
	gt.S(t, prompts[2]).NotContains("first from u2")
}

func TestRespondHistoryBounded(t *testing.T) {
	ctx := context.Background()
	var prompts []string
	uc := chat.New(repository.NewMemory(), recordingGemini("answer", &prompts))

	for i := 1; i <= 11; i++ {
		_, err := uc.Respond(ctx, chat.RespondInput{
			Query:  "question " + string(rune('a'+i-1)),
			Course: "CS101",
			UserID: "u1",
		})
		gt.NoError(t, err)
	}

	history := uc.History("u1")
	gt.A(t, history).Length(10)
	gt.Equal(t, history[0].User, "question b")
	gt.Equal(t, history[9].User, "question k")
}

func TestRespondFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	errBackend := goerr.New("backend unavailable")

	testCases := map[string]*mockGemini{
		"embedding failure": {
			embeddingFunc: func(ctx context.Context, text string, dimensionality int) ([]float32, error) {
				return nil, errBackend
			},
		},
		"generation failure": {
			embeddingFunc: keywordEmbedding,
			generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return nil, errBackend
			},
		},
	}

	for name, gemini := range testCases {
		t.Run(name, func(t *testing.T) {
			uc := chat.New(repository.NewMemory(), gemini)

			_, err := uc.Respond(ctx, chat.RespondInput{Query: "explain recursion", Course: "CS101", UserID: "u1"})
			gt.Error(t, err)
			gt.True(t, errors.Is(err, errBackend))
			gt.A(t, uc.History("u1")).Length(0)
		})
	}
}

func TestRespondEmptyCandidates(t *testing.T) {
	gemini := &mockGemini{
		embeddingFunc: keywordEmbedding,
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
	}
	uc := chat.New(repository.NewMemory(), gemini)

	_, err := uc.Respond(context.Background(), chat.RespondInput{Query: "hi", Course: "CS101", UserID: "u1"})
	gt.True(t, errors.Is(err, adapter.ErrEmptyResponse))
	gt.A(t, uc.History("u1")).Length(0)
}

func TestRespondValidatesInput(t *testing.T) {
	var prompts []string
	uc := chat.New(repository.NewMemory(), recordingGemini("answer", &prompts))

	_, err := uc.Respond(context.Background(), chat.RespondInput{Course: "CS101", UserID: "u1"})
	gt.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = uc.Respond(context.Background(), chat.RespondInput{Query: "hi", Course: "CS101"})
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
	gt.A(t, prompts).Length(0)
}

func TestResetHistory(t *testing.T) {
	ctx := context.Background()
	var prompts []string
	uc := chat.New(repository.NewMemory(), recordingGemini("answer", &prompts))

	for _, user := range []model.UserID{"u1", "u2"} {
		_, err := uc.Respond(ctx, chat.RespondInput{Query: "hi", Course: "CS101", UserID: user})
		gt.NoError(t, err)
	}

	uc.ResetHistory("u1")
	gt.A(t, uc.History("u1")).Length(0)
	gt.A(t, uc.History("u2")).Length(1)

	uc.ResetHistory("")
	gt.A(t, uc.History("u2")).Length(0)
}

func TestRespondWithTopK(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	for i := 0; i < 5; i++ {
		putLecture(t, repo, "u1", "CS101", "recursion part "+string(rune('1'+i)))
	}

	var prompts []string
	uc := chat.New(repo, recordingGemini("answer", &prompts), chat.WithTopK(2))

	_, err := uc.Respond(ctx, chat.RespondInput{Query: "recursion", Course: "CS101", UserID: "u1"})
	gt.NoError(t, err)
	gt.Equal(t, strings.Count(prompts[0], "recursion part"), 2)
}
