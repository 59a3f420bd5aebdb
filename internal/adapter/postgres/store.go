package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/domain/stack"
	"github.com/Strob0t/StackForge/internal/port/database"
)

// Compile-time interface check.
var _ database.Store = (*Store)(nil)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks connectivity for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Projects ---

const projectColumns = `id, owner_id, name, description, status, backend, frontend, database_tech, use_docker,
	remote_project_id, remote_url, clone_url, deploy_url, created_at, updated_at`

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	spec := p.Stack.Spec()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.OwnerID, p.Name, p.Description, p.Status, spec.Backend, spec.Frontend, spec.Database, spec.UseDocker,
		nullIfZero(p.RemoteProjectID), nullIfEmpty(p.RemoteURL), nullIfEmpty(p.CloneURL), nullIfEmpty(p.DeployURL),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return uniqueWrap(err, "create project %q", p.Name)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id, ownerID string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	p, err := scanProject(row)
	if err != nil {
		return nil, notFoundWrap(err, "get project %s", id)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return orEmpty(projects), rows.Err()
}

func (s *Store) ProjectNameExists(ctx context.Context, ownerID, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE owner_id = $1 AND name = $2)`, ownerID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("project name exists: %w", err)
	}
	return exists, nil
}

// UpdateProject persists the mutable fields. Name, owner and stack are fixed.
func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE projects
		SET description = $3, status = $4, remote_project_id = $5, remote_url = $6, clone_url = $7,
		    deploy_url = $8, updated_at = $9
		WHERE id = $1 AND owner_id = $2`,
		p.ID, p.OwnerID, p.Description, p.Status, nullIfZero(p.RemoteProjectID),
		nullIfEmpty(p.RemoteURL), nullIfEmpty(p.CloneURL), nullIfEmpty(p.DeployURL), p.UpdatedAt,
	)
	return execExpectOne(tag, err, "update project %s", p.ID)
}

// DeleteProject removes the project; pipelines and stages cascade.
func (s *Store) DeleteProject(ctx context.Context, id, ownerID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return execExpectOne(tag, err, "delete project %s", id)
}

func (s *Store) ProjectStats(ctx context.Context, ownerID string) (project.Stats, error) {
	var st project.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = $2)
		FROM projects WHERE owner_id = $1`, ownerID, project.StatusDeployed,
	).Scan(&st.Total, &st.Deployed)
	if err != nil {
		return project.Stats{}, fmt.Errorf("project stats: %w", err)
	}
	return st, nil
}

func scanProject(row scannable) (project.Project, error) {
	var (
		p                              project.Project
		spec                           stack.Spec
		remoteID                       *int64
		remoteURL, cloneURL, deployURL *string
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Status,
		&spec.Backend, &spec.Frontend, &spec.Database, &spec.UseDocker,
		&remoteID, &remoteURL, &cloneURL, &deployURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return project.Project{}, err
	}
	ts, err := stack.Parse(spec)
	if err != nil {
		return project.Project{}, fmt.Errorf("project %s has invalid stack: %w", p.ID, err)
	}
	p.Stack = ts
	p.RemoteProjectID = derefInt64(remoteID)
	p.RemoteURL = derefString(remoteURL)
	p.CloneURL = derefString(cloneURL)
	p.DeployURL = derefString(deployURL)
	return p, nil
}
