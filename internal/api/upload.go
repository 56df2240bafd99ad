package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nbhq/notabene/internal/auth"
)

type uploadResponse struct {
	Success        bool   `json:"success"`
	FileName       string `json:"fileName"`
	ChunksInserted int    `json:"chunksInserted"`
	Message        string `json:"message"`
}

// handleUpload accepts one markdown file as multipart form data and
// replaces any previously stored version of it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(fileName), ".md") {
		writeError(w, http.StatusBadRequest, "only .md files are supported")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.logger.Error("reading upload", "fileName", fileName, "error", err)
		writeError(w, http.StatusInternalServerError, "reading upload")
		return
	}
	if !utf8.Valid(raw) {
		writeError(w, http.StatusBadRequest, "file must be valid UTF-8 text")
		return
	}

	inserted, err := s.ingestor.Replace(r.Context(), fileName, string(raw), tenantID)
	if err != nil {
		s.logger.Error("ingesting upload", "fileName", fileName, "error", err)
		writeError(w, http.StatusInternalServerError, "ingesting file")
		return
	}

	s.logger.Info("file ingested", "fileName", fileName, "chunks", inserted)
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:        true,
		FileName:       fileName,
		ChunksInserted: inserted,
		Message:        fmt.Sprintf("ingested %d chunks from %s", inserted, fileName),
	})
}
