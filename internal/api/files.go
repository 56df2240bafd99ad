package api

import (
	"net/http"

	"github.com/nbhq/notabene/internal/auth"
	"github.com/nbhq/notabene/internal/knowledge"
)

type listFilesResponse struct {
	Files []knowledge.SourceInfo `json:"files"`
	Count int                    `json:"count"`
}

type deleteFileResponse struct {
	Success      bool   `json:"success"`
	Source       string `json:"source"`
	DeletedCount int64  `json:"deletedCount"`
}

// handleListFiles returns per-source aggregates for the caller's tenant.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	files, err := s.sources.ListSources(r.Context(), tenantID)
	if err != nil {
		s.logger.Error("listing sources", "error", err)
		writeError(w, http.StatusInternalServerError, "listing files")
		return
	}
	if files == nil {
		files = []knowledge.SourceInfo{}
	}

	writeJSON(w, http.StatusOK, listFilesResponse{Files: files, Count: len(files)})
}

// handleDeleteFile removes every chunk of the source named by the ?source=
// query parameter.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}

	deleted, err := s.sources.DeleteBySource(r.Context(), source, tenantID)
	if err != nil {
		s.logger.Error("deleting source", "source", source, "error", err)
		writeError(w, http.StatusInternalServerError, "deleting file")
		return
	}

	s.logger.Info("source deleted", "source", source, "chunks", deleted)
	writeJSON(w, http.StatusOK, deleteFileResponse{
		Success:      true,
		Source:       source,
		DeletedCount: deleted,
	})
}
