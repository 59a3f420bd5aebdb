// Package pipeline defines build, deploy and analysis pipeline runs and their
// ordered stages. A pipeline is never reused: every trigger creates a new run.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/StackForge/internal/domain"
)

// Status is shared by pipelines and their stages.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusCanceled Status = "CANCELED"
	StatusSkipped  Status = "SKIPPED"
	StatusManual   Status = "MANUAL"
)

var knownStatuses = map[string]Status{
	"PENDING":  StatusPending,
	"RUNNING":  StatusRunning,
	"SUCCESS":  StatusSuccess,
	"FAILED":   StatusFailed,
	"CANCELED": StatusCanceled,
	"SKIPPED":  StatusSkipped,
	"MANUAL":   StatusManual,
	// remote-only states that have not started yet
	"CREATED":              StatusPending,
	"PREPARING":            StatusPending,
	"SCHEDULED":            StatusPending,
	"WAITING_FOR_RESOURCE": StatusPending,
	"CANCELLED":            StatusCanceled,
}

// ParseStatus maps a status string onto the local enum, case-insensitively.
// The boolean is false when the status is unknown.
func ParseStatus(s string) (Status, bool) {
	st, ok := knownStatuses[strings.ToUpper(strings.TrimSpace(s))]
	return st, ok
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCanceled, StatusSkipped:
		return true
	}
	return false
}

// Pipeline is one triggered run with its fixed, ordered stage list.
type Pipeline struct {
	ID               string     `json:"id"`
	ProjectID        string     `json:"project_id"`
	Kind             Kind       `json:"kind"`
	RemotePipelineID int64      `json:"remote_pipeline_id,omitempty"`
	Status           Status     `json:"status"`
	DeployURL        string     `json:"deploy_url,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	Stages           []Stage    `json:"stages"`
}

// Stage belongs to exactly one pipeline and has no lifecycle of its own.
type Stage struct {
	ID         string `json:"id"`
	PipelineID string `json:"pipeline_id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Status     Status `json:"status"`
}

// New creates a pending pipeline whose stages are determined by kind.
func New(projectID string, kind Kind, now time.Time) (Pipeline, error) {
	names, err := kind.Stages()
	if err != nil {
		return Pipeline{}, err
	}
	p := Pipeline{
		ProjectID: projectID,
		Kind:      kind,
		Status:    StatusPending,
		StartedAt: now,
		Stages:    make([]Stage, len(names)),
	}
	for i, name := range names {
		p.Stages[i] = Stage{Name: name, Position: i, Status: StatusPending}
	}
	return p, nil
}

// SetStatus updates the pipeline status and stamps the finish time the first
// time a terminal status is reached.
func (p *Pipeline) SetStatus(s Status, now time.Time) {
	p.Status = s
	if s.Terminal() && p.FinishedAt == nil {
		t := now
		p.FinishedAt = &t
	}
}

// Complete marks the pipeline and every stage as successful.
func (p *Pipeline) Complete(now time.Time) {
	for i := range p.Stages {
		p.Stages[i].Status = StatusSuccess
	}
	p.SetStatus(StatusSuccess, now)
}

// StageNames returns the stage names in order.
func (p *Pipeline) StageNames() []string {
	out := make([]string, len(p.Stages))
	for i := range p.Stages {
		out[i] = p.Stages[i].Name
	}
	return out
}

// Validate checks the structural invariants of a pipeline before persistence.
func (p *Pipeline) Validate() error {
	if p.ProjectID == "" {
		return fmt.Errorf("pipeline project_id is required: %w", domain.ErrValidation)
	}
	want, err := p.Kind.Stages()
	if err != nil {
		return err
	}
	if len(want) != len(p.Stages) {
		return fmt.Errorf("pipeline %s has %d stages, want %d: %w", p.Kind, len(p.Stages), len(want), domain.ErrValidation)
	}
	for i, name := range want {
		if p.Stages[i].Name != name {
			return fmt.Errorf("stage %d is %q, want %q: %w", i, p.Stages[i].Name, name, domain.ErrValidation)
		}
	}
	return nil
}
