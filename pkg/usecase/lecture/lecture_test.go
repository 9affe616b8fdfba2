package lecture_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m-mizutani/coursedash/pkg/adapter"
	"github.com/m-mizutani/coursedash/pkg/extract"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/repository"
	"github.com/m-mizutani/coursedash/pkg/usecase/lecture"
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

func constantEmbedding(ctx context.Context, text string, dimensionality int) ([]float32, error) {
	v := make([]float32, dimensionality)
	v[0] = 1
	return v, nil
}

// Mock Storage
type mockStorage struct {
	data         map[string][]byte
	contentTypes map[string]string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		data:         make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

type mockWriteCloser struct {
	*bytes.Buffer
	storage *mockStorage
	key     string
}

func (m *mockWriteCloser) Close() error {
	m.storage.data[m.key] = m.Buffer.Bytes()
	return nil
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string) (io.WriteCloser, error) {
	m.contentTypes[key] = contentType
	return &mockWriteCloser{Buffer: &bytes.Buffer{}, storage: m, key: key}, nil
}

type failingStorage struct {
	err error
}

func (m *failingStorage) Put(ctx context.Context, key, contentType string) (io.WriteCloser, error) {
	return nil, m.err
}

func newExtractor(text string) *extract.Registry {
	r := extract.New()
	r.Register(model.DocumentTypePDF, extract.ExtractorFunc(func(ctx context.Context, data []byte) (string, error) {
		return text, nil
	}))
	return r
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	var embedded string
	gemini := &mockGemini{
		embeddingFunc: func(ctx context.Context, text string, dimensionality int) ([]float32, error) {
			embedded = text
			gt.Equal(t, dimensionality, model.EmbeddingDimension)
			return constantEmbedding(ctx, text, dimensionality)
		},
	}

	uc := lecture.New(repo, gemini, newExtractor("recursion basics"))
	chunk, err := uc.Ingest(ctx, lecture.IngestInput{
		Data:   []byte("%PDF"),
		Type:   model.DocumentTypePDF,
		Course: "CS101",
		Title:  "Lecture 1",
		UserID: "u1",
	})
	gt.NoError(t, err)
	gt.Equal(t, chunk.Text, "Lecture 1:\n\nrecursion basics")
	gt.Equal(t, embedded, chunk.Text)
	gt.Equal(t, chunk.Course, model.Course("CS101"))
	gt.Equal(t, chunk.Title, "Lecture 1")

	results, err := repo.QueryChunks(ctx, "u1", chunk.Embedding, "CS101", repository.DefaultTopK)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].ID, chunk.ID)
}

func TestIngestTwiceCreatesTwoChunks(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := lecture.New(repo, &mockGemini{embeddingFunc: constantEmbedding}, newExtractor("same text"))

	input := lecture.IngestInput{Type: model.DocumentTypePDF, Course: "CS101", Title: "L1", UserID: "u1"}
	c1, err := uc.Ingest(ctx, input)
	gt.NoError(t, err)
	c2, err := uc.Ingest(ctx, input)
	gt.NoError(t, err)
	gt.NotEqual(t, c1.ID, c2.ID)

	results, err := repo.QueryChunks(ctx, "u1", c1.Embedding, "CS101", repository.DefaultTopK)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
}

func TestIngestUnknownTypeStoresTitleOnly(t *testing.T) {
	ctx := context.Background()
	uc := lecture.New(repository.NewMemory(), &mockGemini{embeddingFunc: constantEmbedding}, extract.NewDefault())

	chunk, err := uc.Ingest(ctx, lecture.IngestInput{
		Data:   []byte("plain"),
		Type:   "text/plain",
		Course: "CS101",
		Title:  "Notes",
		UserID: "u1",
	})
	gt.NoError(t, err)
	gt.Equal(t, chunk.Text, "Notes:\n\n")
}

func TestIngestArchivesDocument(t *testing.T) {
	ctx := context.Background()
	storage := newMockStorage()
	uc := lecture.New(repository.NewMemory(), &mockGemini{embeddingFunc: constantEmbedding}, newExtractor("text"),
		lecture.WithStorage(storage))

	chunk, err := uc.Ingest(ctx, lecture.IngestInput{
		Data:   []byte("%PDF-raw"),
		Type:   model.DocumentTypePDF,
		Course: "CS101",
		Title:  "L1",
		UserID: "u1",
	})
	gt.NoError(t, err)

	key := "lectures/u1/CS101/" + string(chunk.ID) + ".pdf"
	gt.Equal(t, string(storage.data[key]), "%PDF-raw")
	gt.Equal(t, storage.contentTypes[key], string(model.DocumentTypePDF))
}

func TestIngestFailures(t *testing.T) {
	ctx := context.Background()
	errBackend := goerr.New("backend unavailable")

	t.Run("extraction failure", func(t *testing.T) {
		repo := repository.NewMemory()
		r := extract.New()
		r.Register(model.DocumentTypePDF, extract.ExtractorFunc(func(ctx context.Context, data []byte) (string, error) {
			return "", errBackend
		}))
		uc := lecture.New(repo, &mockGemini{embeddingFunc: constantEmbedding}, r)

		_, err := uc.Ingest(ctx, lecture.IngestInput{Type: model.DocumentTypePDF, Course: "CS101", UserID: "u1"})
		gt.True(t, errors.Is(err, errBackend))
	})

	t.Run("embedding failure", func(t *testing.T) {
		repo := repository.NewMemory()
		gemini := &mockGemini{
			embeddingFunc: func(ctx context.Context, text string, dimensionality int) ([]float32, error) {
				return nil, errBackend
			},
		}
		uc := lecture.New(repo, gemini, newExtractor("text"))

		_, err := uc.Ingest(ctx, lecture.IngestInput{Type: model.DocumentTypePDF, Course: "CS101", UserID: "u1"})
		gt.True(t, errors.Is(err, errBackend))

		results, err := repo.QueryChunks(ctx, "u1", make([]float32, model.EmbeddingDimension), "CS101", repository.DefaultTopK)
		gt.NoError(t, err)
		gt.A(t, results).Length(0)
	})

	t.Run("archive failure stores nothing", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := lecture.New(repo, &mockGemini{embeddingFunc: constantEmbedding}, newExtractor("text"),
			lecture.WithStorage(&failingStorage{err: errBackend}))

		_, err := uc.Ingest(ctx, lecture.IngestInput{Type: model.DocumentTypePDF, Course: "CS101", Title: "L1", UserID: "u1"})
		gt.True(t, errors.Is(err, errBackend))

		query, err := constantEmbedding(ctx, "", model.EmbeddingDimension)
		gt.NoError(t, err)
		results, err := repo.QueryChunks(ctx, "u1", query, "CS101", repository.DefaultTopK)
		gt.NoError(t, err)
		gt.A(t, results).Length(0)
	})

	t.Run("missing course", func(t *testing.T) {
		uc := lecture.New(repository.NewMemory(), &mockGemini{embeddingFunc: constantEmbedding}, newExtractor("text"))
		_, err := uc.Ingest(ctx, lecture.IngestInput{Type: model.DocumentTypePDF, UserID: "u1"})
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
	})
}

func TestExtractTitle(t *testing.T) {
	ctx := context.Background()

	var prompt string
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			prompt = contents[0].Parts[0].Text
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{
					{Content: genai.NewContentFromText("Introduction to Recursion\n", genai.RoleModel)},
				},
			}, nil
		},
	}

	uc := lecture.New(repository.NewMemory(), gemini, newExtractor("CS101 Lecture 1 - Introduction to Recursion"))
	title, err := uc.ExtractTitle(ctx, []byte("%PDF"), model.DocumentTypePDF)
	gt.NoError(t, err)
	gt.Equal(t, title, "Introduction to Recursion\n")
	gt.S(t, prompt).Contains("Extract the lecture title")
	gt.S(t, prompt).Contains("Document:\nCS101 Lecture 1 - Introduction to Recursion")
}

func TestExtractTitleFailure(t *testing.T) {
	errBackend := goerr.New("backend unavailable")
	gemini := &mockGemini{
		generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errBackend
		},
	}

	uc := lecture.New(repository.NewMemory(), gemini, newExtractor("text"))
	_, err := uc.ExtractTitle(context.Background(), nil, model.DocumentTypePDF)
	gt.True(t, errors.Is(err, errBackend))
}
