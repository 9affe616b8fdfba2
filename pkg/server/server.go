package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/usecase/chat"
	"github.com/m-mizutani/coursedash/pkg/usecase/lecture"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const defaultMaxUploadSize = 32 << 20

// TypeChecker reports whether a declared document type can be processed
type TypeChecker interface {
	Supports(docType model.DocumentType) bool
}

// Server is the HTTP boundary of upload, chat and title extraction
type Server struct {
	chat          *chat.UseCase
	lecture       *lecture.UseCase
	types         TypeChecker
	maxUploadSize int64
	mux           *http.ServeMux
}

// Option is a functional option for Server
type Option func(*Server)

// WithMaxUploadSize limits the size of a multipart upload in bytes
func WithMaxUploadSize(size int64) Option {
	return func(s *Server) {
		s.maxUploadSize = size
	}
}

func New(chatUC *chat.UseCase, lectureUC *lecture.UseCase, types TypeChecker, opts ...Option) *Server {
	s := &Server{
		chat:          chatUC,
		lecture:       lectureUC,
		types:         types,
		maxUploadSize: defaultMaxUploadSize,
		mux:           http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("DELETE /history", s.handleResetHistory)
	s.mux.HandleFunc("POST /lecture-title", s.handleLectureTitle)
	s.mux.HandleFunc("DELETE /users/{user_id}", s.handlePurgeUser)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.From(r.Context()).With("method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r.WithContext(logging.With(r.Context(), logger)))
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(ctx).Error("failed to write response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidInput) {
		logging.From(ctx).Warn("bad request", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	logging.From(ctx).Error("request failed", "error", err)
	writeJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"message": "Welcome to the Course Dash API.",
	})
}

// readDocument reads the "file" part of a multipart form with its declared type
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, model.DocumentType, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		return nil, "", goerr.Wrap(model.ErrInvalidInput, "invalid multipart form", goerr.V("cause", err.Error()))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", goerr.Wrap(model.ErrInvalidInput, "No file provided")
	}
	defer file.Close()

	docType := model.DocumentType(header.Header.Get("Content-Type"))
	if !s.types.Supports(docType) {
		return nil, "", goerr.Wrap(model.ErrInvalidInput, "Unsupported file type", goerr.V("type", docType))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to read uploaded file")
	}

	return data, docType, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, docType, err := s.readDocument(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	chunk, err := s.lecture.Ingest(ctx, lecture.IngestInput{
		Data:   data,
		Type:   docType,
		Course: model.Course(r.FormValue("course")),
		Title:  r.FormValue("title"),
		UserID: model.UserID(r.FormValue("user_id")),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{
		"message":  "File uploaded & processed successfully.",
		"chunk_id": string(chunk.ID),
	})
}

type chatRequest struct {
	Query  string `json:"query"`
	Course string `json:"course"`
	UserID string `json:"user_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, goerr.Wrap(model.ErrInvalidInput, "invalid JSON body", goerr.V("cause", err.Error())))
		return
	}
	if req.Query == "" {
		writeError(ctx, w, goerr.Wrap(model.ErrInvalidInput, "No query provided"))
		return
	}

	answer, err := s.chat.Respond(ctx, chat.RespondInput{
		Query:  req.Query,
		Course: model.Course(req.Course),
		UserID: model.UserID(req.UserID),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{"response": answer})
}

func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	s.chat.ResetHistory(r.URL.Query().Get("user_id"))
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"message": "History cleared."})
}

func (s *Server) handleLectureTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, docType, err := s.readDocument(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	title, err := s.lecture.ExtractTitle(ctx, data, docType)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, map[string]string{"title": title})
}

// handlePurgeUser deletes the user's lectures and drops their session
func (s *Server) handlePurgeUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("user_id")

	if err := s.lecture.Purge(ctx, model.UserID(userID)); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.chat.EvictSession(userID)

	writeJSON(ctx, w, http.StatusOK, map[string]string{"message": "User data deleted."})
}
