// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/pipeline"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/port/broadcast"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
)

// Events fans lifecycle events out to the message queue and the owner's
// live connections. Either sink may be nil; a nil *Events drops everything.
type Events struct {
	queue messagequeue.Publisher
	hub   broadcast.Broadcaster
}

// NewEvents creates an event sink.
func NewEvents(queue messagequeue.Publisher, hub broadcast.Broadcaster) *Events {
	return &Events{queue: queue, hub: hub}
}

func (e *Events) emit(ctx context.Context, ownerID, subject string, payload any) {
	if e == nil {
		return
	}
	if e.hub != nil && ownerID != "" {
		e.hub.BroadcastEvent(ctx, ownerID, subject, payload)
	}
	if e.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := e.queue.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish event failed", "subject", subject, "error", err)
	}
}

func (e *Events) project(ctx context.Context, subject string, p *project.Project, cause error, warnings []domain.Warning) {
	payload := messagequeue.ProjectEventPayload{
		ProjectID:       p.ID,
		OwnerID:         p.OwnerID,
		Name:            p.Name,
		Status:          string(p.Status),
		Stack:           p.Stack.String(),
		RemoteProjectID: p.RemoteProjectID,
		Warnings:        warningMessages(warnings),
	}
	if cause != nil {
		payload.Error = errorSummary(cause)
	}
	e.emit(ctx, p.OwnerID, subject, payload)
}

func (e *Events) pipeline(ctx context.Context, subject, ownerID string, pl *pipeline.Pipeline) {
	e.emit(ctx, ownerID, subject, messagequeue.PipelineEventPayload{
		PipelineID:       pl.ID,
		ProjectID:        pl.ProjectID,
		OwnerID:          ownerID,
		Kind:             string(pl.Kind),
		Status:           string(pl.Status),
		RemotePipelineID: pl.RemotePipelineID,
		DeployURL:        pl.DeployURL,
	})
}

func warningMessages(ws []domain.Warning) []string {
	if len(ws) == 0 {
		return nil
	}
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Step + ": " + w.Message
	}
	return out
}

// errorSummary renders err without any raw upstream body.
func errorSummary(err error) string {
	if ue := asUpstream(err); ue != nil {
		return ue.Summary()
	}
	return err.Error()
}
