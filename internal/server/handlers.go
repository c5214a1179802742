package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mindshear/mindshear-api/apimodels"
	"github.com/mindshear/mindshear-api/internal/apperr"
)

const (
	maxJSONBody = 4 << 20

	// multipartOverhead leaves room for form fields next to the upload.
	multipartOverhead = 1 << 20
)

var errCustomizeNotImplemented = fmt.Errorf("notes customization is %w", apperr.ErrNotImplemented)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Welcome to %s API", s.cfg.Server.AppName),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateNotes(w http.ResponseWriter, r *http.Request) {
	req := apimodels.NewGenerationRequest()
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Debug("Received notes request", "request", req)

	result, err := s.notes.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCustomizeNotes validates the upload, then reports that
// customization is unavailable.
func (s *Server) handleCustomizeNotes(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Storage.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		writeError(w, r, apperr.Invalid("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("pdf_file")
	if err != nil {
		writeError(w, r, apperr.Invalid("pdf_file is required"))
		return
	}
	defer file.Close()

	if header.Size > limit {
		writeError(w, r, apperr.Invalid("pdf_file exceeds %d bytes", limit))
		return
	}
	contentType, err := uploadType(file, header)
	if err != nil {
		writeError(w, r, apperr.Invalid("reading pdf_file: %v", err))
		return
	}
	if !slices.Contains(s.cfg.Storage.AllowedUploadTypes, contentType) {
		writeError(w, r, apperr.Invalid("pdf_file type %q is not allowed", contentType))
		return
	}
	if r.FormValue("modifications") == "" {
		writeError(w, r, apperr.Invalid("modifications is required"))
		return
	}

	writeError(w, r, errCustomizeNotImplemented)
}

// uploadType returns the declared media type of an upload, sniffing the
// content when the client sent none.
func uploadType(file multipart.File, header *multipart.FileHeader) (string, error) {
	declared := header.Header.Get("Content-Type")
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return mt, nil
		}
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(buf[:n]))
	return mt, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := apimodels.NewResearchQuery()
	if err := decodeJSON(w, r, &q); err != nil {
		writeError(w, r, err)
		return
	}

	papers, err := s.research.Search(r.Context(), q.Query, q.MaxResults)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apimodels.SearchResponse{Papers: papers})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req apimodels.AnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	analysis, err := s.research.Analyze(r.Context(), req.PaperContent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleLiteratureReview(w http.ResponseWriter, r *http.Request) {
	var req apimodels.LiteratureReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	review, err := s.research.LiteratureReview(r.Context(), req.Topic, req.Papers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apimodels.LiteratureReview{Review: review})
}

// decodeJSON decodes the request body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("invalid request body: %v", err)
	}
	return apimodels.Validate(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		err = fmt.Errorf("request deadline exceeded: %w", err)
	}
	attrs := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"kind", apperr.Kind(err),
		"error", err,
	}
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		slog.Error("Request failed", attrs...)
	} else {
		slog.Warn("Request rejected", attrs...)
	}
	writeJSON(w, status, apimodels.ErrorResponse{Detail: err.Error()})
}
