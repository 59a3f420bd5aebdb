package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	cfotel "github.com/Strob0t/StackForge/internal/adapter/otel"
	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/domain/stack"
	"github.com/Strob0t/StackForge/internal/port/database"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

// finalizeTimeout bounds the status write that follows provisioning. It runs
// detached from the request so a dropped client cannot leave a project CREATED.
const finalizeTimeout = 10 * time.Second

// FileGenerator renders the repository file set for a project.
type FileGenerator interface {
	Generate(ctx context.Context, projectName string, ts stack.TechStack) (map[string]string, error)
}

// CreateResult is a provisioned project with the committed paths and any
// non-fatal sub-step failures.
type CreateResult struct {
	Project  *project.Project `json:"project"`
	Files    []string         `json:"files"`
	Warnings []domain.Warning `json:"warnings,omitempty"`
}

// DeleteResult reports non-fatal failures of a project deletion.
type DeleteResult struct {
	Warnings []domain.Warning `json:"warnings,omitempty"`
}

// ProjectService provisions projects on the remote platform and keeps the
// local record in step with the outcome.
type ProjectService struct {
	store   database.Store
	remote  scm.Client
	gen     FileGenerator
	events  *Events
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewProjectService creates a new ProjectService. events and metrics may be nil.
func NewProjectService(store database.Store, remote scm.Client, gen FileGenerator, events *Events, metrics *cfotel.Metrics) *ProjectService {
	return &ProjectService{
		store:   store,
		remote:  remote,
		gen:     gen,
		events:  events,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create provisions a project: validate, persist CREATED, create the remote
// repository, generate files, commit them and finalize as ACTIVE. A failure
// after the initial insert marks the project FAILED and is returned; remote
// side effects already applied are left in place.
func (s *ProjectService) Create(ctx context.Context, ownerID string, req project.CreateRequest) (*CreateResult, error) {
	ts, err := project.ValidateCreateRequest(req)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)

	exists, err := s.store.ProjectNameExists(ctx, ownerID, req.Name)
	if err != nil {
		return nil, fmt.Errorf("check project name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("project %q already exists: %w", req.Name, domain.ErrValidation)
	}

	owner, err := s.store.GetUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get owner: %w", err)
	}
	if !owner.HasRemote() {
		return nil, domain.ErrRemoteAccountMissing
	}

	ctx, span := cfotel.StartProvisionSpan(ctx, ownerID, req.Name, ts.String())
	defer span.End()
	started := time.Now()

	p := &project.Project{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Status:      project.StatusCreated,
		Stack:       ts,
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	result := &CreateResult{Project: p}
	files, provErr := s.provision(ctx, p, owner.RemoteUsername, owner.RemoteAccountID, result)

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	ok := provErr == nil
	if ok {
		p.Status = project.StatusActive
	} else {
		p.Status = project.StatusFailed
		span.RecordError(provErr)
	}
	if err := s.store.UpdateProject(fctx, p); err != nil {
		if ok {
			return nil, fmt.Errorf("finalize project: %w", err)
		}
		slog.Error("persist failed project", "project_id", p.ID, "error", err)
	}
	s.metrics.RecordProvision(fctx, ts.Backend.ID(), ts.Frontend.ID(), ok, time.Since(started).Seconds())

	if !ok {
		slog.Error("project provisioning failed", "project_id", p.ID, "owner_id", ownerID, "error", provErr)
		s.events.project(fctx, messagequeue.SubjectProjectFailed, p, provErr, result.Warnings)
		return nil, fmt.Errorf("provision project %q: %w", p.Name, provErr)
	}

	result.Files = files
	slog.Info("project provisioned", "project_id", p.ID, "remote_project_id", p.RemoteProjectID,
		"files", len(files), "warnings", len(result.Warnings))
	s.events.project(fctx, messagequeue.SubjectProjectCreated, p, nil, result.Warnings)
	return result, nil
}

// provision runs the remote steps and returns the sorted committed paths.
func (s *ProjectService) provision(ctx context.Context, p *project.Project, ownerUsername string, ownerAccountID int64, result *CreateResult) ([]string, error) {
	created, err := s.remote.CreateProjectInNamespace(ctx, p.Name, ownerUsername, ownerAccountID)
	if err != nil {
		return nil, err
	}
	p.RemoteProjectID = created.Project.ID
	p.RemoteURL = created.Project.WebURL
	p.CloneURL = created.Project.HTTPCloneURL
	for _, w := range created.Warnings {
		s.metrics.RecordWarning(ctx, w.Step)
		slog.WarnContext(ctx, "non-fatal step failed", "step", w.Step, "error", w.Message, "project_id", p.ID)
	}
	result.Warnings = append(result.Warnings, created.Warnings...)

	files, err := s.gen.Generate(ctx, p.Name, p.Stack)
	if err != nil {
		return nil, fmt.Errorf("generate files: %w", err)
	}

	if err := s.remote.CommitFiles(ctx, p.RemoteProjectID, files, CommitMessage(p.Stack)); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths, nil
}

// CommitMessage summarizes the stack for the initial commit.
func CommitMessage(ts stack.TechStack) string {
	docker := "disabled"
	if ts.UseDocker {
		docker = "enabled"
	}
	return fmt.Sprintf("Initial commit: %s + %s (%s), docker %s",
		ts.Backend.Label(), ts.Frontend.Label(), ts.Database, docker)
}

// Get returns a project owned by ownerID.
func (s *ProjectService) Get(ctx context.Context, id, ownerID string) (*project.Project, error) {
	return s.store.GetProject(ctx, id, ownerID)
}

// List returns all projects of ownerID, newest first.
func (s *ProjectService) List(ctx context.Context, ownerID string) ([]project.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}

// Stats counts the projects of ownerID.
func (s *ProjectService) Stats(ctx context.Context, ownerID string) (project.Stats, error) {
	return s.store.ProjectStats(ctx, ownerID)
}

// RemoteInfo describes the remote repository of a project.
func (s *ProjectService) RemoteInfo(ctx context.Context, id, ownerID string) (*project.RemoteInfo, error) {
	p, err := s.store.GetProject(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !p.HasRemote() {
		return nil, fmt.Errorf("project %s has no remote repository: %w", id, domain.ErrNotFound)
	}
	return &project.RemoteInfo{
		RemoteProjectID: p.RemoteProjectID,
		RemoteURL:       p.RemoteURL,
		CloneURL:        p.CloneURL,
		DefaultBranch:   s.remote.DefaultBranch(),
	}, nil
}

// SetStatus changes the lifecycle status of a project.
func (s *ProjectService) SetStatus(ctx context.Context, id, ownerID string, req project.StatusRequest) (*project.Project, error) {
	st, err := project.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	p.Status = st
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("update project status: %w", err)
	}
	s.events.project(ctx, messagequeue.SubjectProjectStatus, p, nil, nil)
	return p, nil
}

// SetDeployURL sets or clears the deploy URL of a project.
func (s *ProjectService) SetDeployURL(ctx context.Context, id, ownerID string, req project.DeployURLRequest) (*project.Project, error) {
	if err := project.ValidateDeployURL(req.DeployURL); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	p.DeployURL = req.DeployURL
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("update deploy url: %w", err)
	}
	return p, nil
}

// Delete removes a project. The remote repository is deleted best-effort;
// the local rows (and their pipelines) are always removed.
func (s *ProjectService) Delete(ctx context.Context, id, ownerID string) (*DeleteResult, error) {
	p, err := s.store.GetProject(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	if p.HasRemote() {
		if err := s.remote.DeleteProject(ctx, p.RemoteProjectID); err != nil {
			s.metrics.RecordWarning(ctx, "remote_delete")
			result.Warnings = append(result.Warnings,
				warn(ctx, "remote_delete", err, "project_id", p.ID, "remote_project_id", p.RemoteProjectID))
		}
	}

	if err := s.store.DeleteProject(ctx, id, ownerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete project: %w", err)
	}

	slog.Info("project deleted", "project_id", id, "owner_id", ownerID)
	s.events.project(ctx, messagequeue.SubjectProjectDeleted, p, nil, result.Warnings)
	return result, nil
}
