package http

import (
	"net/http"
	"strconv"

	"github.com/Strob0t/StackForge/internal/domain/pipeline"
	"github.com/Strob0t/StackForge/internal/middleware"
)

// TriggerPipeline returns the handler for POST /api/v1/projects/{id}/{build,deploy,sonar}.
func (h *Handlers) TriggerPipeline(kind pipeline.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.Pipelines.Trigger(r.Context(), urlParam(r, "id"), middleware.UserIDFromContext(r.Context()), kind)
		if err != nil {
			writeDomainError(w, err, "project not found")
			return
		}
		writeJSON(w, http.StatusAccepted, res)
	}
}

// PipelineJobs handles GET /api/v1/projects/{id}/remote/pipelines/{pipelineID}/jobs
func (h *Handlers) PipelineJobs(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseInt(urlParam(r, "pipelineID"), 10, 64)
	if err != nil || pid <= 0 {
		writeError(w, http.StatusBadRequest, "invalid pipeline id")
		return
	}
	jobs, err := h.Pipelines.Jobs(r.Context(), urlParam(r, "id"), middleware.UserIDFromContext(r.Context()), pid)
	if err != nil {
		writeDomainError(w, err, "project has no remote repository")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}
