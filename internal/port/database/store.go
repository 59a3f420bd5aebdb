// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/StackForge/internal/domain/pipeline"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/domain/user"
)

// Store is the port interface for database operations. Lookups that miss
// return an error wrapping domain.ErrNotFound. Owner-scoped lookups do not
// distinguish "not yours" from "does not exist".
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByLogin(ctx context.Context, login string) (*user.User, error)
	UserTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	UpdateUser(ctx context.Context, u *user.User) error

	// Projects. (owner_id, name) is unique; a duplicate insert wraps domain.ErrValidation.
	CreateProject(ctx context.Context, p *project.Project) error
	GetProject(ctx context.Context, id, ownerID string) (*project.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]project.Project, error)
	ProjectNameExists(ctx context.Context, ownerID, name string) (bool, error)
	UpdateProject(ctx context.Context, p *project.Project) error
	DeleteProject(ctx context.Context, id, ownerID string) error
	ProjectStats(ctx context.Context, ownerID string) (project.Stats, error)

	// Pipelines are written together with their stages.
	CreatePipeline(ctx context.Context, p *pipeline.Pipeline) error
	UpdatePipeline(ctx context.Context, p *pipeline.Pipeline) error
	LatestPipeline(ctx context.Context, projectID string) (*pipeline.Pipeline, error)
	ListPipelines(ctx context.Context, projectID string) ([]pipeline.Pipeline, error)
}
