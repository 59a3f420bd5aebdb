package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

// TriggerPipeline starts a pipeline on ref.
func (c *Client) TriggerPipeline(ctx context.Context, projectID int64, ref string) (scm.Pipeline, error) {
	var p scm.Pipeline
	err := c.call(ctx, http.MethodPost, projectPath(projectID, "/pipeline"), nil, map[string]string{"ref": ref}, &p)
	if err != nil {
		return scm.Pipeline{}, upstream(domain.UpstreamRequestFailed, "trigger pipeline", err)
	}
	return p, nil
}

// GetPipeline fetches a single pipeline.
func (c *Client) GetPipeline(ctx context.Context, projectID, pipelineID int64) (scm.Pipeline, error) {
	var p scm.Pipeline
	path := projectPath(projectID, fmt.Sprintf("/pipelines/%d", pipelineID))
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &p); err != nil {
		return scm.Pipeline{}, upstream(domain.UpstreamRequestFailed, "get pipeline", err)
	}
	return p, nil
}

// ListPipelines returns the most recent pipelines, newest first.
func (c *Client) ListPipelines(ctx context.Context, projectID int64) ([]scm.Pipeline, error) {
	var ps []scm.Pipeline
	q := url.Values{"per_page": {"20"}, "order_by": {"id"}, "sort": {"desc"}}
	if err := c.call(ctx, http.MethodGet, projectPath(projectID, "/pipelines"), q, nil, &ps); err != nil {
		return nil, upstream(domain.UpstreamRequestFailed, "list pipelines", err)
	}
	return ps, nil
}

// PipelineJobs returns the jobs of a pipeline.
func (c *Client) PipelineJobs(ctx context.Context, projectID, pipelineID int64) ([]scm.Job, error) {
	var jobs []scm.Job
	path := projectPath(projectID, fmt.Sprintf("/pipelines/%d/jobs", pipelineID))
	if err := c.call(ctx, http.MethodGet, path, url.Values{"per_page": {"100"}}, nil, &jobs); err != nil {
		return nil, upstream(domain.UpstreamRequestFailed, "pipeline jobs", err)
	}
	return jobs, nil
}
