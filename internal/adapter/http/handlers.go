package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/StackForge/internal/domain/pipeline"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/domain/user"
	"github.com/Strob0t/StackForge/internal/middleware"
	"github.com/Strob0t/StackForge/internal/port/scm"
	"github.com/Strob0t/StackForge/internal/service"
)

// ProjectAPI is the project provisioning surface used by the handlers.
type ProjectAPI interface {
	Create(ctx context.Context, ownerID string, req project.CreateRequest) (*service.CreateResult, error)
	Get(ctx context.Context, id, ownerID string) (*project.Project, error)
	List(ctx context.Context, ownerID string) ([]project.Project, error)
	Stats(ctx context.Context, ownerID string) (project.Stats, error)
	RemoteInfo(ctx context.Context, id, ownerID string) (*project.RemoteInfo, error)
	SetStatus(ctx context.Context, id, ownerID string, req project.StatusRequest) (*project.Project, error)
	SetDeployURL(ctx context.Context, id, ownerID string, req project.DeployURLRequest) (*project.Project, error)
	Delete(ctx context.Context, id, ownerID string) (*service.DeleteResult, error)
}

// PipelineAPI is the pipeline tracking surface used by the handlers.
type PipelineAPI interface {
	Trigger(ctx context.Context, projectID, ownerID string, kind pipeline.Kind) (*service.TriggerResult, error)
	Latest(ctx context.Context, projectID, ownerID string) (*pipeline.Pipeline, error)
	History(ctx context.Context, projectID, ownerID string) ([]pipeline.Pipeline, error)
	RemotePipelines(ctx context.Context, projectID, ownerID string) ([]scm.Pipeline, error)
	Jobs(ctx context.Context, projectID, ownerID string, remotePipelineID int64) ([]scm.Job, error)
}

// AuthAPI is the account surface used by the handlers.
type AuthAPI interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.RegisterResult, error)
	Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error)
	Me(ctx context.Context, userID string) (*user.User, error)
	UpdateProfile(ctx context.Context, userID string, req user.UpdateProfileRequest) (*user.User, error)
	ChangePassword(ctx context.Context, userID string, req user.ChangePasswordRequest) error
}

// Compile-time interface checks.
var (
	_ ProjectAPI  = (*service.ProjectService)(nil)
	_ PipelineAPI = (*service.PipelineService)(nil)
	_ AuthAPI     = (*service.AuthService)(nil)
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Projects  ProjectAPI
	Pipelines PipelineAPI
	Auth      AuthAPI
	Health    []HealthCheck
}

// CreateProject handles POST /api/v1/projects
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[project.CreateRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Projects.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ProjectStats handles GET /api/v1/projects/stats
func (h *Handlers) ProjectStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Projects.Stats(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteProject handles DELETE /api/v1/projects/{id}
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	res, err := h.Projects.Delete(r.Context(), urlParam(r, "id"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	if len(res.Warnings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
