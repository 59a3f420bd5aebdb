package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/stack"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

// pathPrefix keeps generated paths clear of GitLab's reserved project names.
const pathPrefix = "prj"

// ProjectPath derives the remote project path from the owner and project name.
// Including the owner keeps paths unique inside the shared group.
func ProjectPath(ownerUsername, projectName string) string {
	owner := stack.DeriveNames(ownerUsername).Slug
	name := stack.DeriveNames(projectName).Slug
	return pathPrefix + "-" + owner + "-" + name
}

type createProjectRequest struct {
	Name                 string `json:"name"`
	Path                 string `json:"path"`
	NamespaceID          int64  `json:"namespace_id"`
	Description          string `json:"description,omitempty"`
	Visibility           string `json:"visibility"`
	DefaultBranch        string `json:"default_branch,omitempty"`
	InitializeWithReadme bool   `json:"initialize_with_readme"`
}

// CreateProjectInNamespace creates a private, empty project in the provisioning
// group, then grants the owner the configured elevated role.
func (c *Client) CreateProjectInNamespace(ctx context.Context, name, ownerUsername string, ownerAccountID int64) (scm.ProjectResult, error) {
	if c.cfg.GroupID == 0 {
		return scm.ProjectResult{}, domain.ErrNamespaceNotConfigured
	}

	path := ProjectPath(ownerUsername, name)
	var p scm.Project
	err := c.call(ctx, http.MethodPost, "/projects", nil, createProjectRequest{
		Name:          path,
		Path:          path,
		NamespaceID:   c.cfg.GroupID,
		Description:   fmt.Sprintf("%s (owner: %s)", name, ownerUsername),
		Visibility:    "private",
		DefaultBranch: c.cfg.DefaultBranch,
	}, &p)
	if err != nil {
		return scm.ProjectResult{}, upstream(domain.UpstreamCreateFailed, "create project", err)
	}
	slog.Info("gitlab project created", "id", p.ID, "path", p.PathWithNamespace)

	res := scm.ProjectResult{Project: p}
	if ownerAccountID > 0 {
		if werr := c.addProjectMember(ctx, p.ID, ownerAccountID); werr != nil {
			slog.Warn("granting project access failed", "project_id", p.ID, "account_id", ownerAccountID, "error", werr)
			res.Warnings = append(res.Warnings, domain.NewWarning("grant_owner_access", werr))
		}
	}
	return res, nil
}

func (c *Client) addProjectMember(ctx context.Context, projectID, accountID int64) error {
	err := c.call(ctx, http.MethodPost, projectPath(projectID, "/members"), nil,
		memberRequest{UserID: accountID, AccessLevel: c.cfg.OwnerAccess}, nil)
	if err == nil || statusOf(err) == http.StatusConflict {
		return nil
	}
	return upstream(domain.UpstreamRequestFailed, "add project member", err)
}

type commitAction struct {
	Action   string `json:"action"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

type commitRequest struct {
	Branch        string         `json:"branch"`
	CommitMessage string         `json:"commit_message"`
	Actions       []commitAction `json:"actions"`
}

// CommitFiles pushes every file as one multi-action commit. Actions are
// ordered by path so identical inputs produce identical requests.
func (c *Client) CommitFiles(ctx context.Context, projectID int64, files map[string]string, message string) error {
	if len(files) == 0 {
		return fmt.Errorf("commit to project %d: no files: %w", projectID, domain.ErrValidation)
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	actions := make([]commitAction, 0, len(paths))
	for _, p := range paths {
		actions = append(actions, commitAction{Action: "create", FilePath: p, Content: files[p]})
	}

	err := c.call(ctx, http.MethodPost, projectPath(projectID, "/repository/commits"), nil, commitRequest{
		Branch:        c.cfg.DefaultBranch,
		CommitMessage: message,
		Actions:       actions,
	}, nil)
	if err != nil {
		return upstream(domain.UpstreamCommitFailed, "commit files", err)
	}
	slog.Info("gitlab files committed", "project_id", projectID, "files", len(actions))
	return nil
}

// DeleteProject removes a project. A project that no longer exists is success.
func (c *Client) DeleteProject(ctx context.Context, projectID int64) error {
	err := c.call(ctx, http.MethodDelete, projectPath(projectID, ""), nil, nil, nil)
	if err == nil || statusOf(err) == http.StatusNotFound {
		return nil
	}
	return upstream(domain.UpstreamRequestFailed, "delete project", err)
}
