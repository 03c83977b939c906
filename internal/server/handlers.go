package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// RootMessage is the liveness text served at GET /.
const RootMessage = "RAG chatbot API is running!"

// MaxRequestBodyBytes bounds the JSON body of question requests.
const MaxRequestBodyBytes = 1 << 20

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RootMessage))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	result, ok := s.answer(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{Answer: result.Text})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	result, ok := s.answer(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// answer decodes a QueryRequest and runs it. On failure it writes the error response.
func (s *Server) answer(w http.ResponseWriter, r *http.Request) (*models.Answer, bool) {
	var req models.QueryRequest
	body := http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	s.logger.Debug("query request", zap.String("question", req.Question))

	result, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("query failed", zap.Int("status", status), zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return nil, false
	}
	return result, true
}

func statusFor(err error) int {
	var upstream *answer.UpstreamError
	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, answer.ErrNoCatalog):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	catalog := s.catalogs.Load()
	if catalog == nil {
		s.respondError(w, http.StatusServiceUnavailable, answer.ErrNoCatalog.Error())
		return
	}
	st := catalog.Status()
	diskBytes, err := storage.DiskUsageBytes(s.config.ArtifactPaths()...)
	if err != nil {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	} else {
		st.DiskUsageBytes = diskBytes
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
