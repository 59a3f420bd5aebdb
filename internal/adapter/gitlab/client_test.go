package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/StackForge/internal/config"
	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/port/scm"
	"github.com/Strob0t/StackForge/internal/resilience"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("PRIVATE-TOKEN") != "test-token" {
			t.Errorf("expected PRIVATE-TOKEN header, got %q", r.Header.Get("PRIVATE-TOKEN"))
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults().GitLab
	cfg.URL = srv.URL
	cfg.Token = "test-token"
	cfg.GroupID = 7
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSanitizeUsername(t *testing.T) {
	tests := []struct{ in, want string }{
		{"alice", "alice"},
		{"alice smith", "alice_smith"},
		{"_bob", "u_bob"},
		{".x", "u.x"},
		{"élan", "u_lan"},
		{"", "user"},
		{"!!!", "user"},
		{"a.b-c_d", "a.b-c_d"},
	}
	for _, tt := range tests {
		if got := SanitizeUsername(tt.in); got != tt.want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProjectPath(t *testing.T) {
	if got := ProjectPath("Alice.B", "Demo App"); got != "prj-alice-b-demo-app" {
		t.Fatalf("ProjectPath = %q", got)
	}
}

func TestCreateAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/users", func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.SkipConfirmation {
			t.Error("expected skip_confirmation")
		}
		if req.Username != "alice_w" {
			t.Errorf("username not sanitized: %q", req.Username)
		}
		writeJSON(w, http.StatusCreated, scm.Account{ID: 42, Username: req.Username, Email: req.Email})
	})
	c := newTestClient(t, mux)

	acc, err := c.CreateAccount(context.Background(), scm.AccountRequest{Email: "alice@example.com", Username: "alice w", Password: "secret123"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.ID != 42 {
		t.Fatalf("expected id 42, got %d", acc.ID)
	}
}

func TestCreateAccount_ConflictFallsBackToLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email has already been taken"})
	})
	mux.HandleFunc("GET /api/v4/users", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "alice@example.com" {
			t.Errorf("unexpected search %q", r.URL.Query().Get("search"))
		}
		writeJSON(w, http.StatusOK, []scm.Account{
			{ID: 1, Email: "alice@example.org"},
			{ID: 42, Email: "ALICE@example.com", Username: "alice"},
		})
	})
	c := newTestClient(t, mux)

	acc, err := c.CreateAccount(context.Background(), scm.AccountRequest{Email: "alice@example.com", Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.ID != 42 {
		t.Fatalf("expected existing account 42, got %d", acc.ID)
	}
}

func TestCreateAccount_UpstreamFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "403 Forbidden"})
	})
	c := newTestClient(t, mux)

	_, err := c.CreateAccount(context.Background(), scm.AccountRequest{Email: "a@b.c", Username: "abc", Password: "secret123"})
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Kind != domain.UpstreamCreateFailed || ue.StatusCode != http.StatusForbidden || !strings.Contains(ue.Body, "Forbidden") {
		t.Fatalf("unexpected upstream error %+v", ue)
	}
}

func TestAddAccountToGroup(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/groups/7/members", func(w http.ResponseWriter, r *http.Request) {
		var req memberRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.AccessLevel != 30 {
			t.Errorf("expected developer access, got %d", req.AccessLevel)
		}
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusCreated, map[string]any{"id": req.UserID})
			return
		}
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Member already exists"})
	})
	c := newTestClient(t, mux)

	for range 2 {
		if err := c.AddAccountToGroup(context.Background(), 42); err != nil {
			t.Fatalf("AddAccountToGroup: %v", err)
		}
	}
}

func TestCreateProjectInNamespace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/projects", func(w http.ResponseWriter, r *http.Request) {
		var req createProjectRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.NamespaceID != 7 || req.Path != "prj-alice-demo-app" || req.Visibility != "private" || req.InitializeWithReadme {
			t.Errorf("unexpected create request %+v", req)
		}
		writeJSON(w, http.StatusCreated, scm.Project{
			ID:                99,
			Path:              req.Path,
			PathWithNamespace: "stackforge/" + req.Path,
			WebURL:            "http://gitlab.local/stackforge/" + req.Path,
			HTTPCloneURL:      "http://gitlab.local/stackforge/" + req.Path + ".git",
		})
	})
	mux.HandleFunc("POST /api/v4/projects/99/members", func(w http.ResponseWriter, r *http.Request) {
		var req memberRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.UserID != 42 || req.AccessLevel != 40 {
			t.Errorf("unexpected member request %+v", req)
		}
		writeJSON(w, http.StatusCreated, map[string]any{})
	})
	c := newTestClient(t, mux)

	res, err := c.CreateProjectInNamespace(context.Background(), "Demo App", "alice", 42)
	if err != nil {
		t.Fatalf("CreateProjectInNamespace: %v", err)
	}
	if res.Project.ID != 99 || !strings.HasSuffix(res.Project.HTTPCloneURL, ".git") {
		t.Fatalf("unexpected project %+v", res.Project)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}
}

func TestCreateProjectInNamespace_GrantFailureIsWarning(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/projects", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, scm.Project{ID: 5})
	})
	mux.HandleFunc("POST /api/v4/projects/5/members", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	c := newTestClient(t, mux)

	res, err := c.CreateProjectInNamespace(context.Background(), "x", "alice", 42)
	if err != nil {
		t.Fatalf("grant failure must not fail creation: %v", err)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Step != "grant_owner_access" {
		t.Fatalf("expected one grant warning, got %v", res.Warnings)
	}
}

func TestCreateProjectInNamespace_NoGroup(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(http.ResponseWriter, *http.Request) { hits.Add(1) })
	c := newTestClient(t, mux)
	c.cfg.GroupID = 0

	_, err := c.CreateProjectInNamespace(context.Background(), "x", "alice", 42)
	if !errors.Is(err, domain.ErrNamespaceNotConfigured) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrNamespaceNotConfigured, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("no request may be sent without a namespace")
	}
}

func TestCommitFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/projects/99/repository/commits", func(w http.ResponseWriter, r *http.Request) {
		var req commitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Branch != "main" || req.CommitMessage != "Initial commit" {
			t.Errorf("unexpected commit %+v", req)
		}
		var paths []string
		for _, a := range req.Actions {
			if a.Action != "create" {
				t.Errorf("unexpected action %q", a.Action)
			}
			paths = append(paths, a.FilePath)
		}
		if !slices.Equal(paths, []string{".gitlab-ci.yml", "README.md", "backend/app.py"}) {
			t.Errorf("actions not sorted: %v", paths)
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": "abc"})
	})
	c := newTestClient(t, mux)

	files := map[string]string{"README.md": "# x", "backend/app.py": "", ".gitlab-ci.yml": "stages: []"}
	if err := c.CommitFiles(context.Background(), 99, files, "Initial commit"); err != nil {
		t.Fatalf("CommitFiles: %v", err)
	}
}

func TestCommitFiles_Failure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/projects/99/repository/commits", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "A file with this name already exists"})
	})
	c := newTestClient(t, mux)

	err := c.CommitFiles(context.Background(), 99, map[string]string{"a": "b"}, "m")
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) || ue.Kind != domain.UpstreamCommitFailed {
		t.Fatalf("expected UpstreamCommitFailed, got %v", err)
	}

	if err := c.CommitFiles(context.Background(), 99, nil, "m"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty commit, got %v", err)
	}
}

func TestPipelines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/projects/99/pipeline", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, scm.Pipeline{ID: 501, Status: "created", Ref: body["ref"]})
	})
	mux.HandleFunc("GET /api/v4/projects/99/pipelines/501", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, scm.Pipeline{ID: 501, Status: "running"})
	})
	mux.HandleFunc("GET /api/v4/projects/99/pipelines", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") != "desc" {
			t.Error("expected newest-first ordering")
		}
		writeJSON(w, http.StatusOK, []scm.Pipeline{{ID: 501}, {ID: 500}})
	})
	mux.HandleFunc("GET /api/v4/projects/99/pipelines/501/jobs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []scm.Job{{ID: 1, Name: "backend-build", Stage: "build", Status: "success"}})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	p, err := c.TriggerPipeline(ctx, 99, "main")
	if err != nil || p.ID != 501 || p.Ref != "main" {
		t.Fatalf("TriggerPipeline = %+v, %v", p, err)
	}
	p, err = c.GetPipeline(ctx, 99, 501)
	if err != nil || p.Status != "running" {
		t.Fatalf("GetPipeline = %+v, %v", p, err)
	}
	list, err := c.ListPipelines(ctx, 99)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListPipelines = %v, %v", list, err)
	}
	jobs, err := c.PipelineJobs(ctx, 99, 501)
	if err != nil || len(jobs) != 1 || jobs[0].Stage != "build" {
		t.Fatalf("PipelineJobs = %v, %v", jobs, err)
	}
}

func TestDeleteProject_NotFoundIsSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v4/projects/1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("DELETE /api/v4/projects/2", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "404 Project Not Found"})
	})
	mux.HandleFunc("DELETE /api/v4/projects/3", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "403"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	if err := c.DeleteProject(ctx, 1); err != nil {
		t.Fatalf("delete 1: %v", err)
	}
	if err := c.DeleteProject(ctx, 2); err != nil {
		t.Fatalf("delete of missing project must succeed: %v", err)
	}
	if err := c.DeleteProject(ctx, 3); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestUpsertGroupVariable(t *testing.T) {
	var updated atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/groups/7/variables", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": map[string][]string{"key": {"(SONAR_TOKEN) has already been taken"}}})
	})
	mux.HandleFunc("PUT /api/v4/groups/7/variables/SONAR_TOKEN", func(w http.ResponseWriter, r *http.Request) {
		var req variableRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Value != "s3cret" || !req.Masked {
			t.Errorf("unexpected update %+v", req)
		}
		updated.Store(true)
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c := newTestClient(t, mux)

	err := c.UpsertGroupVariable(context.Background(), scm.Variable{Key: "SONAR_TOKEN", Value: "s3cret", Masked: true})
	if err != nil {
		t.Fatalf("UpsertGroupVariable: %v", err)
	}
	if !updated.Load() {
		t.Fatal("expected update after duplicate key")
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v4/projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.PathValue("id") == "500" {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "bad gateway"})
			return
		}
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
	})
	c := newTestClient(t, mux)
	c.breaker = resilience.NewBreaker(2, time.Minute).TripOn(trips)
	ctx := context.Background()

	for range 3 {
		_ = c.DeleteProject(ctx, 403)
	}
	if c.breaker.State() != "closed" {
		t.Fatalf("4xx must not open the breaker, state %s", c.breaker.State())
	}

	for range 2 {
		_ = c.DeleteProject(ctx, 500)
	}
	before := hits.Load()
	err := c.DeleteProject(ctx, 500)
	if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open-circuit upstream error, got %v", err)
	}
	if hits.Load() != before {
		t.Fatal("open breaker must not reach the server")
	}
}
