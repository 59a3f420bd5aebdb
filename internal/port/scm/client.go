// Package scm defines the port for the remote source-control and CI platform:
// accounts, group membership, projects, commits, pipelines and CI variables.
package scm

import (
	"context"
	"time"

	"github.com/Strob0t/StackForge/internal/domain"
)

// Account is a user account on the remote platform.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// AccountRequest describes an account to create.
type AccountRequest struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}

// Project is a repository on the remote platform.
type Project struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Path              string `json:"path"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	HTTPCloneURL      string `json:"http_url_to_repo"`
	SSHCloneURL       string `json:"ssh_url_to_repo"`
	DefaultBranch     string `json:"default_branch"`
}

// ProjectResult is a created project plus any non-fatal sub-step failures.
type ProjectResult struct {
	Project  Project
	Warnings []domain.Warning
}

// Pipeline is a CI pipeline run on the remote platform.
type Pipeline struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Ref       string    `json:"ref"`
	SHA       string    `json:"sha"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job is a single job of a remote pipeline.
type Job struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   float64    `json:"duration"`
	WebURL     string     `json:"web_url"`
}

// Variable is a group-level CI variable.
type Variable struct {
	Key       string
	Value     string
	Masked    bool
	Protected bool
}

// Client is the port interface for the remote platform. Failures other than
// the documented idempotent cases are returned as *domain.UpstreamError.
type Client interface {
	// CreateAccount creates an account, or returns the existing one when the
	// username or email is already registered.
	CreateAccount(ctx context.Context, req AccountRequest) (Account, error)

	// FindAccountByEmail looks up an account by exact email match.
	FindAccountByEmail(ctx context.Context, email string) (Account, error)

	// AddAccountToGroup grants the configured member role in the provisioning
	// group. An existing membership is success.
	AddAccountToGroup(ctx context.Context, accountID int64) error

	// CreateProjectInNamespace creates a private project in the provisioning
	// group and grants the owner an elevated role. A failed grant is reported
	// as a warning, not an error.
	CreateProjectInNamespace(ctx context.Context, name, ownerUsername string, ownerAccountID int64) (ProjectResult, error)

	// CommitFiles creates every file in a single commit on the default branch.
	CommitFiles(ctx context.Context, projectID int64, files map[string]string, message string) error

	TriggerPipeline(ctx context.Context, projectID int64, ref string) (Pipeline, error)
	GetPipeline(ctx context.Context, projectID, pipelineID int64) (Pipeline, error)
	ListPipelines(ctx context.Context, projectID int64) ([]Pipeline, error)
	PipelineJobs(ctx context.Context, projectID, pipelineID int64) ([]Job, error)

	// DeleteProject removes a project. A missing project is success.
	DeleteProject(ctx context.Context, projectID int64) error

	// UpsertGroupVariable creates or updates a CI variable on the provisioning group.
	UpsertGroupVariable(ctx context.Context, v Variable) error

	// DefaultBranch is the branch used for commits and pipeline triggers.
	DefaultBranch() string
}
