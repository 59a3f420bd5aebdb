package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/StackForge/internal/adapter/otel"
	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/pipeline"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/port/database"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

// TriggerResult is a newly recorded pipeline plus any swallowed failures.
type TriggerResult struct {
	Pipeline *pipeline.Pipeline `json:"pipeline"`
	Warnings []domain.Warning   `json:"warnings,omitempty"`
}

// PipelineService records pipeline runs and reconciles them with the remote platform.
type PipelineService struct {
	store        database.Store
	remote       scm.Client
	deployDomain string
	events       *Events
	metrics      *cfotel.Metrics
	now          func() time.Time
}

// NewPipelineService creates a new PipelineService. Deploys of projects
// without a remote repository get a URL under deployDomain.
func NewPipelineService(store database.Store, remote scm.Client, deployDomain string, events *Events, metrics *cfotel.Metrics) *PipelineService {
	return &PipelineService{
		store:        store,
		remote:       remote,
		deployDomain: deployDomain,
		events:       events,
		metrics:      metrics,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// TriggerBuild records a [build, test] pipeline and moves the project to BUILDING.
func (s *PipelineService) TriggerBuild(ctx context.Context, projectID, ownerID string) (*TriggerResult, error) {
	return s.Trigger(ctx, projectID, ownerID, pipeline.KindBuild)
}

// TriggerDeploy records a [build, test, deploy] pipeline.
func (s *PipelineService) TriggerDeploy(ctx context.Context, projectID, ownerID string) (*TriggerResult, error) {
	return s.Trigger(ctx, projectID, ownerID, pipeline.KindDeploy)
}

// TriggerSonar records a [build, sonar] pipeline.
func (s *PipelineService) TriggerSonar(ctx context.Context, projectID, ownerID string) (*TriggerResult, error) {
	return s.Trigger(ctx, projectID, ownerID, pipeline.KindSonar)
}

// Trigger creates a new pipeline of the given kind. Projects with a remote
// repository start a remote pipeline on the default branch; a failed start
// is recorded as a FAILED pipeline and reported as a warning. Projects
// without one complete immediately.
func (s *PipelineService) Trigger(ctx context.Context, projectID, ownerID string, kind pipeline.Kind) (*TriggerResult, error) {
	p, err := s.store.GetProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}

	ctx, span := cfotel.StartPipelineSpan(ctx, p.ID, string(kind))
	defer span.End()

	now := s.now()
	pl, err := pipeline.New(p.ID, kind, now)
	if err != nil {
		return nil, err
	}

	result := &TriggerResult{Pipeline: &pl}
	if p.HasRemote() {
		remote, err := s.remote.TriggerPipeline(ctx, p.RemoteProjectID, s.remote.DefaultBranch())
		if err != nil {
			pl.SetStatus(pipeline.StatusFailed, now)
			s.metrics.RecordWarning(ctx, "trigger_pipeline")
			result.Warnings = append(result.Warnings,
				warn(ctx, "trigger_pipeline", err, "project_id", p.ID, "kind", kind))
		} else {
			pl.RemotePipelineID = remote.ID
			pl.SetStatus(pipeline.StatusRunning, now)
		}
	} else {
		pl.Complete(now)
		if kind == pipeline.KindDeploy {
			pl.DeployURL = s.DeployURL(p)
		}
	}

	if err := s.store.CreatePipeline(ctx, &pl); err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	if nudged := s.nudgeProject(p, &pl); nudged {
		if err := s.store.UpdateProject(ctx, p); err != nil {
			return nil, fmt.Errorf("update project after %s: %w", kind, err)
		}
		s.events.project(ctx, messagequeue.SubjectProjectStatus, p, nil, nil)
	}

	s.metrics.RecordPipeline(ctx, string(kind), string(pl.Status))
	slog.Info("pipeline triggered", "project_id", p.ID, "pipeline_id", pl.ID, "kind", kind,
		"status", pl.Status, "remote_pipeline_id", pl.RemotePipelineID)
	s.events.pipeline(ctx, messagequeue.SubjectPipelineTriggered, ownerID, &pl)
	return result, nil
}

// nudgeProject applies the project side effects of a trigger and reports
// whether the project changed.
func (s *PipelineService) nudgeProject(p *project.Project, pl *pipeline.Pipeline) bool {
	switch {
	case pl.Kind == pipeline.KindBuild:
		p.Status = project.StatusBuilding
		return true
	case pl.Kind == pipeline.KindDeploy && pl.DeployURL != "":
		p.DeployURL = pl.DeployURL
		p.Status = project.StatusDeployed
		return true
	}
	return false
}

// DeployURL is the synthesized address of a locally simulated deploy.
func (s *PipelineService) DeployURL(p *project.Project) string {
	return fmt.Sprintf("http://%s.%s", p.Names().Slug, s.deployDomain)
}

// Latest returns the most recently started pipeline of a project. A remote
// pipeline's status is refreshed first; refresh failures keep the stored status.
func (s *PipelineService) Latest(ctx context.Context, projectID, ownerID string) (*pipeline.Pipeline, error) {
	p, err := s.store.GetProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	pl, err := s.store.LatestPipeline(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if pl.RemotePipelineID == 0 || !p.HasRemote() {
		return pl, nil
	}

	remote, err := s.remote.GetPipeline(ctx, p.RemoteProjectID, pl.RemotePipelineID)
	if err != nil {
		s.metrics.RecordWarning(ctx, "refresh_pipeline")
		warn(ctx, "refresh_pipeline", err, "pipeline_id", pl.ID)
		return pl, nil
	}
	st, ok := pipeline.ParseStatus(remote.Status)
	if !ok {
		slog.Warn("unknown remote pipeline status", "pipeline_id", pl.ID, "status", remote.Status)
		return pl, nil
	}
	if st == pl.Status {
		return pl, nil
	}

	pl.SetStatus(st, s.now())
	if err := s.store.UpdatePipeline(ctx, pl); err != nil {
		slog.Warn("persist reconciled pipeline", "pipeline_id", pl.ID, "error", err)
	}
	s.events.pipeline(ctx, messagequeue.SubjectPipelineReconciled, ownerID, pl)
	return pl, nil
}

// History returns every pipeline of a project with stages, newest first,
// from local records only.
func (s *PipelineService) History(ctx context.Context, projectID, ownerID string) ([]pipeline.Pipeline, error) {
	p, err := s.store.GetProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.store.ListPipelines(ctx, p.ID)
}

// RemotePipelines lists the pipelines of the project's remote repository.
func (s *PipelineService) RemotePipelines(ctx context.Context, projectID, ownerID string) ([]scm.Pipeline, error) {
	p, err := s.remoteProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.remote.ListPipelines(ctx, p.RemoteProjectID)
}

// Jobs lists the jobs of one remote pipeline of the project.
func (s *PipelineService) Jobs(ctx context.Context, projectID, ownerID string, remotePipelineID int64) ([]scm.Job, error) {
	p, err := s.remoteProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.remote.PipelineJobs(ctx, p.RemoteProjectID, remotePipelineID)
}

func (s *PipelineService) remoteProject(ctx context.Context, projectID, ownerID string) (*project.Project, error) {
	p, err := s.store.GetProject(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	if !p.HasRemote() {
		return nil, fmt.Errorf("project %s has no remote repository: %w", projectID, domain.ErrNotFound)
	}
	return p, nil
}

