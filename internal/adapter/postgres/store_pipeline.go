package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/StackForge/internal/domain/pipeline"
)

const pipelineColumns = `id, project_id, kind, remote_pipeline_id, status, deploy_url, started_at, finished_at`

// CreatePipeline inserts the pipeline and its stages in one transaction.
func (s *Store) CreatePipeline(ctx context.Context, p *pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.Stages {
		if p.Stages[i].ID == "" {
			p.Stages[i].ID = uuid.NewString()
		}
		p.Stages[i].PipelineID = p.ID
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO pipelines (`+pipelineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.ProjectID, p.Kind, nullIfZero(p.RemotePipelineID), p.Status,
			nullIfEmpty(p.DeployURL), p.StartedAt, p.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("create pipeline: %w", err)
		}

		batch := &pgx.Batch{}
		for _, st := range p.Stages {
			batch.Queue(`INSERT INTO pipeline_stages (id, pipeline_id, name, position, status) VALUES ($1, $2, $3, $4, $5)`,
				st.ID, st.PipelineID, st.Name, st.Position, st.Status)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("create pipeline stages: %w", err)
		}
		return nil
	})
}

// UpdatePipeline persists status, remote link and finish time of the pipeline
// and the status of each stage.
func (s *Store) UpdatePipeline(ctx context.Context, p *pipeline.Pipeline) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE pipelines
			SET remote_pipeline_id = $2, status = $3, deploy_url = $4, finished_at = $5
			WHERE id = $1`,
			p.ID, nullIfZero(p.RemotePipelineID), p.Status, nullIfEmpty(p.DeployURL), p.FinishedAt,
		)
		if err := execExpectOne(tag, err, "update pipeline %s", p.ID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, st := range p.Stages {
			batch.Queue(`UPDATE pipeline_stages SET status = $2 WHERE id = $1`, st.ID, st.Status)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("update pipeline stages: %w", err)
		}
		return nil
	})
}

func (s *Store) LatestPipeline(ctx context.Context, projectID string) (*pipeline.Pipeline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+pipelineColumns+` FROM pipelines
		WHERE project_id = $1 ORDER BY started_at DESC, id DESC LIMIT 1`, projectID)
	p, err := scanPipeline(row)
	if err != nil {
		return nil, notFoundWrap(err, "latest pipeline for project %s", projectID)
	}
	if err := s.loadStages(ctx, []*pipeline.Pipeline{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPipelines returns every pipeline of the project with stages, newest first.
func (s *Store) ListPipelines(ctx context.Context, projectID string) ([]pipeline.Pipeline, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pipelineColumns+` FROM pipelines
		WHERE project_id = $1 ORDER BY started_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*pipeline.Pipeline, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := s.loadStages(ctx, ptrs); err != nil {
		return nil, err
	}
	return orEmpty(out), nil
}

func (s *Store) loadStages(ctx context.Context, ps []*pipeline.Pipeline) error {
	if len(ps) == 0 {
		return nil
	}
	byID := make(map[string]*pipeline.Pipeline, len(ps))
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, pipeline_id, name, position, status FROM pipeline_stages
		WHERE pipeline_id::text = ANY($1) ORDER BY pipeline_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load stages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st pipeline.Stage
		if err := rows.Scan(&st.ID, &st.PipelineID, &st.Name, &st.Position, &st.Status); err != nil {
			return fmt.Errorf("scan stage: %w", err)
		}
		if p := byID[st.PipelineID]; p != nil {
			p.Stages = append(p.Stages, st)
		}
	}
	return rows.Err()
}

func scanPipeline(row scannable) (pipeline.Pipeline, error) {
	var (
		p         pipeline.Pipeline
		remoteID  *int64
		deployURL *string
	)
	err := row.Scan(&p.ID, &p.ProjectID, &p.Kind, &remoteID, &p.Status, &deployURL, &p.StartedAt, &p.FinishedAt)
	if err != nil {
		return pipeline.Pipeline{}, err
	}
	p.RemotePipelineID = derefInt64(remoteID)
	p.DeployURL = derefString(deployURL)
	p.Stages = []pipeline.Stage{}
	return p, nil
}
