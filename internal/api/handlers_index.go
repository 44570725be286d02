package api

import (
	"net/http"
	"strings"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/jobs"
)

// IndexRequest is the body of POST /index/project
type IndexRequest struct {
	ProjectPath string `json:"project_path"`
	ProjectID   string `json:"project_id,omitempty"`
	Force       bool   `json:"force"`
}

// IndexResponse acknowledges an index or delete request
type IndexResponse struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// handleIndexProject starts a background indexing run
func (s *Server) handleIndexProject(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.ProjectPath) == "" {
		BadRequest(w, "project_path is required")
		return
	}

	job, err := s.deps.Runner.Start(r.Context(), jobs.StartRequest{
		ProjectPath: req.ProjectPath,
		ProjectID:   req.ProjectID,
		Force:       req.Force,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, IndexResponse{
		ProjectID: job.ProjectID,
		Status:    "started",
		Message:   "Indexing started",
	}, http.StatusAccepted)
}

// handleIndexStatus returns one job, or every job when project_id is absent
func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	tracker := s.deps.Runner.Tracker()

	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		job, err := tracker.Get(projectID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, job, http.StatusOK)
		return
	}

	WriteJSON(w, map[string]any{"projects": tracker.List()}, http.StatusOK)
}

// DeleteResponse reports what a delete removed
type DeleteResponse struct {
	IndexResponse
	VectorsDeleted int   `json:"vectors_deleted"`
	FilesForgotten int64 `json:"files_forgotten"`
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	result, err := s.deps.Runner.Delete(r.Context(), projectID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, DeleteResponse{
		IndexResponse: IndexResponse{
			ProjectID: projectID,
			Status:    "deleted",
			Message:   "Index deleted successfully",
		},
		VectorsDeleted: result.VectorsDeleted,
		FilesForgotten: result.FilesForgotten,
	}, http.StatusOK)
}

func (s *Server) handleCancelIndex(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	if err := s.deps.Runner.Cancel(projectID); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, IndexResponse{
		ProjectID: projectID,
		Status:    "cancelling",
		Message:   "Cancellation requested",
	}, http.StatusAccepted)
}
