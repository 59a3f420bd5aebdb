// Package project defines the Project domain entity.
package project

import (
	"fmt"
	"time"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/stack"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusActive    Status = "ACTIVE"
	StatusBuilding  Status = "BUILDING"
	StatusDeploying Status = "DEPLOYING"
	StatusDeployed  Status = "DEPLOYED"
	StatusFailed    Status = "FAILED"
)

var validStatuses = map[Status]bool{
	StatusCreated:   true,
	StatusActive:    true,
	StatusBuilding:  true,
	StatusDeploying: true,
	StatusDeployed:  true,
	StatusFailed:    true,
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", fmt.Errorf("unknown project status %q: %w", s, domain.ErrValidation)
	}
	return st, nil
}

// Project is a provisioned repository owned by a single user.
// Names are unique per owner, not globally.
type Project struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Status          Status          `json:"status"`
	Stack           stack.TechStack `json:"stack"`
	RemoteProjectID int64           `json:"remote_project_id,omitempty"`
	RemoteURL       string          `json:"remote_url,omitempty"`
	CloneURL        string          `json:"clone_url,omitempty"`
	DeployURL       string          `json:"deploy_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasRemote reports whether the project is linked to a remote repository.
func (p *Project) HasRemote() bool {
	return p.RemoteProjectID > 0
}

// Names returns the normalized name variants of the project.
func (p *Project) Names() stack.Names {
	return stack.DeriveNames(p.Name)
}

// CreateRequest holds the fields needed to create a new project.
type CreateRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Stack       stack.Spec `json:"stack"`
}

// StatusRequest changes the lifecycle status of a project.
type StatusRequest struct {
	Status string `json:"status"`
}

// DeployURLRequest sets the deploy URL of a project.
type DeployURLRequest struct {
	DeployURL string `json:"deploy_url"`
}

// Stats summarizes the projects of one owner.
type Stats struct {
	Total    int `json:"total"`
	Deployed int `json:"deployed"`
}

// RemoteInfo describes the remote repository backing a project.
type RemoteInfo struct {
	RemoteProjectID int64  `json:"remote_project_id"`
	RemoteURL       string `json:"remote_url"`
	CloneURL        string `json:"clone_url"`
	DefaultBranch   string `json:"default_branch"`
}
