package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/StackForge/internal/domain/pipeline"
)

// Version is reported by GET /api/v1/.
const Version = "0.1.0"

// MountRoutes registers the health endpoints and all API routes on the given
// chi router. Authentication, rate limiting and idempotency are applied by
// the caller around the router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		// Accounts
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.GetMe)
		r.Put("/auth/me", h.UpdateMe)
		r.Post("/auth/password", h.ChangePassword)

		// Projects
		r.Get("/projects", handleOwnedList(h.Projects.List))
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/stats", h.ProjectStats)
		r.Get("/projects/{id}", handleOwnedGet(h.Projects.Get, "project not found"))
		r.Delete("/projects/{id}", h.DeleteProject)
		r.Put("/projects/{id}/status", handleOwnedUpdate(h.Projects.SetStatus, "project not found"))
		r.Put("/projects/{id}/deploy-url", handleOwnedUpdate(h.Projects.SetDeployURL, "project not found"))
		r.Get("/projects/{id}/remote", handleOwnedGet(h.Projects.RemoteInfo, "project has no remote repository"))

		// Pipelines (nested under projects)
		r.Post("/projects/{id}/build", h.TriggerPipeline(pipeline.KindBuild))
		r.Post("/projects/{id}/deploy", h.TriggerPipeline(pipeline.KindDeploy))
		r.Post("/projects/{id}/sonar", h.TriggerPipeline(pipeline.KindSonar))
		r.Get("/projects/{id}/pipelines", handleOwnedListByID(h.Pipelines.History, "project not found"))
		r.Get("/projects/{id}/pipelines/latest", handleOwnedGet(h.Pipelines.Latest, "no pipelines for project"))
		r.Get("/projects/{id}/remote/pipelines", handleOwnedListByID(h.Pipelines.RemotePipelines, "project has no remote repository"))
		r.Get("/projects/{id}/remote/pipelines/{pipelineID}/jobs", h.PipelineJobs)
	})
}
