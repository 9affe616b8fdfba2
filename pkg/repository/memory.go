package repository

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is an in-process Repository. Similarity is cosine, computed by brute force.
type Memory struct {
	mu          sync.RWMutex
	collections map[model.UserID][]*model.Chunk
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[model.UserID][]*model.Chunk),
	}
}

func (m *Memory) EnsureCollection(ctx context.Context, userID model.UserID) error {
	if userID == "" {
		return goerr.Wrap(model.ErrInvalidInput, "user ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[userID]; !ok {
		m.collections[userID] = nil
	}
	return nil
}

func (m *Memory) PutChunk(ctx context.Context, chunk *model.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	copied := *chunk
	copied.Embedding = slices.Clone(chunk.Embedding)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[chunk.UserID] = append(m.collections[chunk.UserID], &copied)
	return nil
}

func (m *Memory) QueryChunks(ctx context.Context, userID model.UserID, embedding []float32, course model.Course, topK int) ([]*model.Chunk, error) {
	if err := m.EnsureCollection(ctx, userID); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "topK must be positive", goerr.V("top_k", topK))
	}

	type scored struct {
		chunk      *model.Chunk
		similarity float64
	}

	m.mu.RLock()
	var candidates []scored
	for _, c := range m.collections[userID] {
		if c.Course != course {
			continue
		}
		candidates = append(candidates, scored{chunk: c, similarity: cosineSimilarity(embedding, c.Embedding)})
	}
	m.mu.RUnlock()

	slices.SortStableFunc(candidates, func(a, b scored) int {
		switch {
		case a.similarity > b.similarity:
			return -1
		case a.similarity < b.similarity:
			return 1
		default:
			return 0
		}
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]*model.Chunk, 0, len(candidates))
	for _, c := range candidates {
		copied := *c.chunk
		copied.Embedding = slices.Clone(c.chunk.Embedding)
		results = append(results, &copied)
	}
	return results, nil
}

func (m *Memory) DeleteCollection(ctx context.Context, userID model.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, userID)
	return nil
}

// cosineSimilarity returns 0 for vectors of different length or zero norm
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
