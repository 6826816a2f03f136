package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/toridasu/internal/catalog"
	"github.com/hyperjump/toridasu/internal/extract"
	"github.com/hyperjump/toridasu/internal/keyword"
	"github.com/hyperjump/toridasu/internal/serialize"
)

type extractRequest struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
}

type extractResponse struct {
	FileHash   string `json:"file_hash"`
	OutputPath string `json:"output_path"`
	PageCount  int    `json:"page_count"`
	TotalWords int    `json:"total_words"`
	Duplicate  bool   `json:"duplicate"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	format := serialize.FormatFull
	if req.Format != "" {
		parsed, err := serialize.ParseFormat(req.Format)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = parsed
	}
	s.logger.Debug("extract request", zap.String("path", req.Path), zap.String("format", string(format)))

	record, err := s.extractor.Extract(r.Context(), req.Path)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrDocumentNotFound):
			s.respondError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, extract.ErrDuplicateDocument):
			s.respondError(w, http.StatusConflict, "duplicate document")
		default:
			s.logger.Error("extraction failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	outputPath, err := s.serializer.Serialize(record, format)
	if err != nil {
		s.logger.Error("serialization failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.catalog != nil {
		if err := s.catalog.SaveRecord(r.Context(), record, outputPath, ""); err != nil {
			s.logger.Warn("catalog save failed", zap.Error(err))
		}
	}
	if s.index != nil {
		if err := s.index.Add(record.FileHash, keyword.FromRecord(record)); err != nil {
			s.logger.Warn("keyword indexing failed", zap.Error(err))
		}
	}

	s.respondJSON(w, http.StatusCreated, extractResponse{
		FileHash:   record.FileHash,
		OutputPath: outputPath,
		PageCount:  record.PageCount,
		TotalWords: record.TotalWords,
		Duplicate:  record.Duplicate,
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := s.catalog.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*catalog.Entry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"records": entries})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	entry, err := s.catalog.GetByHash(r.Context(), hash)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("limit", limit))
	hits, err := s.index.Search(query, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hits == nil {
		hits = []*keyword.Hit{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": query, "hits": hits})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]any{}

	if s.catalog != nil {
		records, err := s.catalog.CountRecords(ctx)
		if err != nil {
			s.logger.Error("status: count records failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		runs, err := s.catalog.CountRuns(ctx)
		if err != nil {
			s.logger.Error("status: count runs failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["records"] = records
		resp["runs"] = runs
	}
	if s.index != nil {
		if n, err := s.index.Count(); err == nil {
			resp["indexed_documents"] = n
		}
	}
	stats := s.extractor.Stats()
	resp["files_processed"] = stats.FilesProcessed
	resp["images_enabled"] = stats.ImagesEnabled

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
