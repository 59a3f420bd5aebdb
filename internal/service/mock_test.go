package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/pipeline"
	"github.com/Strob0t/StackForge/internal/domain/project"
	"github.com/Strob0t/StackForge/internal/domain/user"
	"github.com/Strob0t/StackForge/internal/port/broadcast"
	"github.com/Strob0t/StackForge/internal/port/database"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is a minimal in-memory implementation of database.Store for testing.
type mockStore struct {
	users     []user.User
	projects  []project.Project
	pipelines []pipeline.Pipeline
	seq       int

	// Error hooks: set these to inject failures.
	createProjectErr  error
	updateProjectErr  error
	deleteProjectErr  error
	updatePipelineErr error

	// honorCtx makes writes fail once ctx is done, like the pgx driver.
	honorCtx bool
}

func (m *mockStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) CreateUser(_ context.Context, u *user.User) error {
	u.ID = m.nextID("user")
	m.users = append(m.users, *u)
	return nil
}

func (m *mockStore) GetUser(_ context.Context, id string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) GetUserByLogin(_ context.Context, login string) (*user.User, error) {
	for i := range m.users {
		if m.users[i].Username == login || strings.EqualFold(m.users[i].Email, login) {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", login, domain.ErrNotFound)
}

func (m *mockStore) UserTaken(_ context.Context, username, email string) (bool, bool, error) {
	var nameTaken, emailTaken bool
	for i := range m.users {
		if username != "" && m.users[i].Username == username {
			nameTaken = true
		}
		if email != "" && strings.EqualFold(m.users[i].Email, email) {
			emailTaken = true
		}
	}
	return nameTaken, emailTaken, nil
}

func (m *mockStore) UpdateUser(_ context.Context, u *user.User) error {
	for i := range m.users {
		if m.users[i].ID == u.ID {
			m.users[i] = *u
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) CreateProject(_ context.Context, p *project.Project) error {
	if m.createProjectErr != nil {
		return m.createProjectErr
	}
	p.ID = m.nextID("proj")
	m.projects = append(m.projects, *p)
	return nil
}

func (m *mockStore) GetProject(_ context.Context, id, ownerID string) (*project.Project, error) {
	for i := range m.projects {
		if m.projects[i].ID == id && m.projects[i].OwnerID == ownerID {
			p := m.projects[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
}

func (m *mockStore) ListProjects(_ context.Context, ownerID string) ([]project.Project, error) {
	out := []project.Project{}
	for i := len(m.projects) - 1; i >= 0; i-- {
		if m.projects[i].OwnerID == ownerID {
			out = append(out, m.projects[i])
		}
	}
	return out, nil
}

func (m *mockStore) ProjectNameExists(_ context.Context, ownerID, name string) (bool, error) {
	for i := range m.projects {
		if m.projects[i].OwnerID == ownerID && m.projects[i].Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) UpdateProject(ctx context.Context, p *project.Project) error {
	if m.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if m.updateProjectErr != nil {
		return m.updateProjectErr
	}
	for i := range m.projects {
		if m.projects[i].ID == p.ID {
			m.projects[i] = *p
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) DeleteProject(_ context.Context, id, ownerID string) error {
	if m.deleteProjectErr != nil {
		return m.deleteProjectErr
	}
	for i := range m.projects {
		if m.projects[i].ID == id && m.projects[i].OwnerID == ownerID {
			m.projects = slices.Delete(m.projects, i, i+1)
			m.pipelines = slices.DeleteFunc(m.pipelines, func(pl pipeline.Pipeline) bool {
				return pl.ProjectID == id
			})
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ProjectStats(_ context.Context, ownerID string) (project.Stats, error) {
	var st project.Stats
	for i := range m.projects {
		if m.projects[i].OwnerID != ownerID {
			continue
		}
		st.Total++
		if m.projects[i].Status == project.StatusDeployed {
			st.Deployed++
		}
	}
	return st, nil
}

func (m *mockStore) CreatePipeline(_ context.Context, p *pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.ID = m.nextID("pl")
	for i := range p.Stages {
		p.Stages[i].ID = m.nextID("stage")
		p.Stages[i].PipelineID = p.ID
	}
	cp := *p
	cp.Stages = slices.Clone(p.Stages)
	m.pipelines = append(m.pipelines, cp)
	return nil
}

func (m *mockStore) UpdatePipeline(_ context.Context, p *pipeline.Pipeline) error {
	if m.updatePipelineErr != nil {
		return m.updatePipelineErr
	}
	for i := range m.pipelines {
		if m.pipelines[i].ID == p.ID {
			m.pipelines[i] = *p
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) LatestPipeline(ctx context.Context, projectID string) (*pipeline.Pipeline, error) {
	list, _ := m.ListPipelines(ctx, projectID)
	if len(list) == 0 {
		return nil, fmt.Errorf("no pipelines for project %s: %w", projectID, domain.ErrNotFound)
	}
	return &list[0], nil
}

func (m *mockStore) ListPipelines(_ context.Context, projectID string) ([]pipeline.Pipeline, error) {
	out := []pipeline.Pipeline{}
	for i := len(m.pipelines) - 1; i >= 0; i-- {
		if m.pipelines[i].ProjectID == projectID {
			out = append(out, m.pipelines[i])
		}
	}
	return out, nil
}

func (m *mockStore) pipelinesFor(projectID string) int {
	n := 0
	for i := range m.pipelines {
		if m.pipelines[i].ProjectID == projectID {
			n++
		}
	}
	return n
}

// Ensure fakeSCM implements scm.Client at compile time.
var _ scm.Client = (*fakeSCM)(nil)

// fakeSCM records every call and returns canned results.
type fakeSCM struct {
	calls map[string]int

	account         scm.Account
	project         scm.Project
	projectWarnings []domain.Warning
	pipeline        scm.Pipeline
	committed       map[string]string
	commitMessage   string
	triggeredRef    string

	createAccountErr error
	addGroupErr      error
	createProjectErr error
	commitErr        error
	triggerErr       error
	getPipelineErr   error
	deleteErr        error

	onCreateProject func()
}

func newFakeSCM() *fakeSCM {
	return &fakeSCM{
		calls:    map[string]int{},
		account:  scm.Account{ID: 42, Username: "alice"},
		project:  scm.Project{ID: 77, WebURL: "https://gitlab.test/devops/alice-demo-app", HTTPCloneURL: "https://gitlab.test/devops/alice-demo-app.git"},
		pipeline: scm.Pipeline{ID: 900, Status: "running"},
	}
}

func (f *fakeSCM) total() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeSCM) CreateAccount(_ context.Context, _ scm.AccountRequest) (scm.Account, error) {
	f.calls["CreateAccount"]++
	return f.account, f.createAccountErr
}

func (f *fakeSCM) FindAccountByEmail(_ context.Context, _ string) (scm.Account, error) {
	f.calls["FindAccountByEmail"]++
	return f.account, nil
}

func (f *fakeSCM) AddAccountToGroup(_ context.Context, _ int64) error {
	f.calls["AddAccountToGroup"]++
	return f.addGroupErr
}

func (f *fakeSCM) CreateProjectInNamespace(_ context.Context, _, _ string, _ int64) (scm.ProjectResult, error) {
	f.calls["CreateProjectInNamespace"]++
	if f.onCreateProject != nil {
		f.onCreateProject()
	}
	if f.createProjectErr != nil {
		return scm.ProjectResult{}, f.createProjectErr
	}
	return scm.ProjectResult{Project: f.project, Warnings: f.projectWarnings}, nil
}

func (f *fakeSCM) CommitFiles(_ context.Context, _ int64, files map[string]string, message string) error {
	f.calls["CommitFiles"]++
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = files
	f.commitMessage = message
	return nil
}

func (f *fakeSCM) TriggerPipeline(_ context.Context, _ int64, ref string) (scm.Pipeline, error) {
	f.calls["TriggerPipeline"]++
	f.triggeredRef = ref
	return f.pipeline, f.triggerErr
}

func (f *fakeSCM) GetPipeline(_ context.Context, _, _ int64) (scm.Pipeline, error) {
	f.calls["GetPipeline"]++
	return f.pipeline, f.getPipelineErr
}

func (f *fakeSCM) ListPipelines(_ context.Context, _ int64) ([]scm.Pipeline, error) {
	f.calls["ListPipelines"]++
	return []scm.Pipeline{f.pipeline}, nil
}

func (f *fakeSCM) PipelineJobs(_ context.Context, _, _ int64) ([]scm.Job, error) {
	f.calls["PipelineJobs"]++
	return []scm.Job{{ID: 1, Name: "build", Stage: "build", Status: "success"}}, nil
}

func (f *fakeSCM) DeleteProject(_ context.Context, _ int64) error {
	f.calls["DeleteProject"]++
	return f.deleteErr
}

func (f *fakeSCM) UpsertGroupVariable(_ context.Context, _ scm.Variable) error {
	f.calls["UpsertGroupVariable"]++
	return nil
}

func (f *fakeSCM) DefaultBranch() string { return "main" }

// upstream builds an error as the remote adapter would return it.
func upstream(kind, op string, status int) error {
	return &domain.UpstreamError{Kind: kind, Op: op, StatusCode: status, Body: `{"message":"secret internals"}`}
}

var errBoom = errors.New("boom")

// recordedEvent is one fan-out observed by fakeHub or fakeQueue.
type recordedEvent struct {
	ownerID string
	subject string
	payload any
}

var (
	_ broadcast.Broadcaster   = (*fakeHub)(nil)
	_ messagequeue.Publisher = (*fakeQueue)(nil)
)

// newTestEvents wraps hub in an event sink, keeping a nil *fakeHub from
// becoming a non-nil broadcast.Broadcaster interface value.
func newTestEvents(hub *fakeHub) *Events {
	if hub == nil {
		return NewEvents(nil, nil)
	}
	return NewEvents(nil, hub)
}

type fakeHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (h *fakeHub) BroadcastEvent(_ context.Context, ownerID, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, recordedEvent{ownerID: ownerID, subject: eventType, payload: payload})
}

func (h *fakeHub) subjects() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.subject
	}
	return out
}

type fakeQueue struct {
	mu       sync.Mutex
	subjects []string
	data     [][]byte
	err      error
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subjects = append(q.subjects, subject)
	q.data = append(q.data, data)
	return q.err
}
