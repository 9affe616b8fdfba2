package extract

import (
	"context"
	"sync"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
)

// Extractor converts raw document bytes into plain text
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// Registry dispatches documents to an Extractor by declared MIME type
type Registry struct {
	mu         sync.RWMutex
	extractors map[model.DocumentType]Extractor
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		extractors: make(map[model.DocumentType]Extractor),
	}
}

// NewDefault creates a registry with PDF, PPTX and DOCX extractors
func NewDefault() *Registry {
	r := New()
	r.Register(model.DocumentTypePDF, &PDF{})
	r.Register(model.DocumentTypePPTX, &PPTX{})
	r.Register(model.DocumentTypeDOCX, &DOCX{})
	return r
}

// Register adds or replaces the extractor for the document type
func (r *Registry) Register(docType model.DocumentType, extractor Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[docType] = extractor
}

// Supports reports whether an extractor is registered for the document type
func (r *Registry) Supports(docType model.DocumentType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[docType]
	return ok
}

// Types returns registered document types
func (r *Registry) Types() []model.DocumentType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]model.DocumentType, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	return types
}

// Extract returns text of the document. An unregistered type yields empty text and no
// error; callers are expected to reject unsupported types with Supports beforehand.
func (r *Registry) Extract(ctx context.Context, data []byte, docType model.DocumentType) (string, error) {
	r.mu.RLock()
	extractor, ok := r.extractors[docType]
	r.mu.RUnlock()

	if !ok {
		logging.From(ctx).Warn("no extractor for document type", "type", docType)
		return "", nil
	}

	return extractor.Extract(ctx, data)
}
