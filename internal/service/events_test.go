package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/domain/stack"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
)

func TestEvents_FanOut(t *testing.T) {
	q := &fakeQueue{err: errBoom}
	hub := &fakeHub{}
	ev := NewEvents(q, hub)

	p := &project.Project{
		ID:      "p1",
		OwnerID: "o",
		Name:    "Demo App",
		Status:  project.StatusFailed,
		Stack:   stack.TechStack{Backend: stack.Python, Frontend: stack.React, Database: "postgres"},
	}
	cause := upstream(domain.UpstreamCreateFailed, "create project", 500)
	ev.project(context.Background(), messagequeue.SubjectProjectFailed, p, cause,
		[]domain.Warning{{Step: "grant_maintainer", Message: "status 403"}})

	if len(hub.events) != 1 || hub.events[0].ownerID != "o" {
		t.Fatalf("hub events = %+v", hub.events)
	}
	if len(q.subjects) != 1 || q.subjects[0] != messagequeue.SubjectProjectFailed {
		t.Fatalf("queue subjects = %v", q.subjects)
	}
	if err := messagequeue.Validate(q.subjects[0], q.data[0]); err != nil {
		t.Errorf("published payload invalid: %v", err)
	}

	var got messagequeue.ProjectEventPayload
	if err := json.Unmarshal(q.data[0], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Error != cause.(*domain.UpstreamError).Summary() {
		t.Errorf("error = %q, want upstream summary", got.Error)
	}
	if len(got.Warnings) != 1 || got.Warnings[0] != "grant_maintainer: status 403" {
		t.Errorf("warnings = %v", got.Warnings)
	}
}

func TestEvents_NilSafe(t *testing.T) {
	var ev *Events
	ev.emit(context.Background(), "o", messagequeue.SubjectProjectCreated, struct{}{})

	ev = NewEvents(nil, nil)
	ev.emit(context.Background(), "o", messagequeue.SubjectProjectCreated, struct{}{})
}
