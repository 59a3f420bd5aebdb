// Package scaffold builds the initial file tree of a provisioned repository
// from the project name and its technology stack.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/stack"
	"github.com/Strob0t/StackForge/internal/port/templatestore"
)

// Renderer renders a keyed template with placeholder variables.
type Renderer interface {
	Render(ctx context.Context, key string, vars map[string]string) (string, error)
}

// Generator maps a project name and stack to repository files.
// It performs no network or persistence calls.
type Generator struct {
	renderer Renderer
}

// NewGenerator creates a Generator that renders through r.
func NewGenerator(r Renderer) *Generator {
	return &Generator{renderer: r}
}

// Generate returns repository-relative paths mapped to file contents.
// Files whose template is missing are omitted and logged; any other
// storage failure aborts generation.
func (g *Generator) Generate(ctx context.Context, projectName string, ts stack.TechStack) (map[string]string, error) {
	if !ts.Valid() {
		return nil, fmt.Errorf("generate %q: incomplete stack: %w", projectName, domain.ErrValidation)
	}
	names := stack.DeriveNames(projectName)
	vars := Variables(names, ts)

	files := make(map[string]string)
	for _, f := range Plan(names, ts) {
		content, err := g.renderer.Render(ctx, f.Template, vars)
		if errors.Is(err, templatestore.ErrNotFound) {
			slog.Warn("template missing, skipping file", "template", f.Template, "path", f.Path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", f.Path, err)
		}
		files[f.Path] = content
	}
	slog.Debug("project files generated", "project", projectName, "stack", ts.String(), "files", len(files))
	return files, nil
}

// Variables builds the placeholder set shared by every template of a project.
func Variables(n stack.Names, ts stack.TechStack) map[string]string {
	return map[string]string{
		"PROJECT_NAME":            n.Raw,
		"PROJECT_NAME_SAFE":       n.Safe,
		"PROJECT_NAME_SLUG":       n.Slug,
		"PROJECT_NAME_UNDERSCORE": n.Underscore,
		"PACKAGE_NAME":            n.Safe,
		"PACKAGE_PATH":            n.PackagePath(),
		"BACKEND":                 ts.Backend.ID(),
		"BACKEND_LABEL":           ts.Backend.Label(),
		"BACKEND_PORT":            strconv.Itoa(ts.Backend.DefaultPort()),
		"FRONTEND":                ts.Frontend.ID(),
		"FRONTEND_LABEL":          ts.Frontend.Label(),
		"DATABASE":                ts.Database,
		"DB_NAME":                 n.DatabaseName(),
		"USE_DOCKER":              strconv.FormatBool(ts.UseDocker),
	}
}

// Plan lists every file the stack calls for, with its template key.
func Plan(n stack.Names, ts stack.TechStack) []stack.File {
	combo := ts.Backend.ID() + "-" + ts.Frontend.ID()
	files := []stack.File{
		{Path: "README.md", Template: "project/common/README.md"},
		{Path: ".gitignore", Template: "project/common/gitignore.txt"},
		{Path: ".gitlab-ci.yml", Template: "gitlab-ci/" + combo + "-" + ts.DockerMode() + "/.gitlab-ci.yml"},
	}
	if ts.UseDocker {
		files = append(files, stack.File{Path: "docker-compose.yml", Template: "docker-compose/" + combo + "/docker-compose.yml"})
	}
	files = append(files,
		stack.File{Path: "database/init.sql", Template: "database/common/init.sql"},
		stack.File{Path: "database/README.md", Template: "database/common/README.md"},
	)
	files = append(files, ts.Backend.Files(n, ts.UseDocker)...)
	return append(files, ts.Frontend.Files(n, ts.UseDocker)...)
}
