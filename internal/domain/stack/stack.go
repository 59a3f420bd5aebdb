// Package stack defines the technology stack attached to a project: a closed
// set of backend and frontend variants, the database choice and the
// containerization flag.
//
// Backend and Frontend are sealed interfaces. Each variant owns its label,
// default port and repository layout, so adding a technology means adding a
// type that satisfies the whole interface.
package stack

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Strob0t/StackForge/internal/domain"
)

// File maps a repository-relative path to the template key that renders it.
type File struct {
	Path     string
	Template string
}

// Backend is one of the supported server-side technologies.
type Backend interface {
	ID() string
	Label() string
	DefaultPort() int
	Files(n Names, docker bool) []File
	sealedBackend()
}

// Frontend is one of the supported client-side technologies.
type Frontend interface {
	ID() string
	Label() string
	Files(n Names, docker bool) []File
	sealedFrontend()
}

// Supported variants.
var (
	Java   Backend = javaBackend{}
	Python Backend = pythonBackend{}
	CSharp Backend = csharpBackend{}

	React   Frontend = reactFrontend{}
	Vue     Frontend = vueFrontend{}
	Angular Frontend = angularFrontend{}
)

// Backends lists every backend variant.
func Backends() []Backend { return []Backend{Java, Python, CSharp} }

// Frontends lists every frontend variant.
func Frontends() []Frontend { return []Frontend{React, Vue, Angular} }

// ParseBackend resolves a backend by id, case-insensitively.
func ParseBackend(s string) (Backend, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	for _, b := range Backends() {
		if b.ID() == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown backend technology %q: %w", s, domain.ErrValidation)
}

// ParseFrontend resolves a frontend by id, case-insensitively.
func ParseFrontend(s string) (Frontend, error) {
	id := strings.ToLower(strings.TrimSpace(s))
	for _, f := range Frontends() {
		if f.ID() == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unknown frontend technology %q: %w", s, domain.ErrValidation)
}

var databasePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// ParseDatabase normalizes a free-form database technology name.
func ParseDatabase(s string) (string, error) {
	db := strings.ToLower(strings.TrimSpace(s))
	if !databasePattern.MatchString(db) {
		return "", fmt.Errorf("invalid database technology %q: %w", s, domain.ErrValidation)
	}
	return db, nil
}

// TechStack is immutable once a project has been created.
type TechStack struct {
	Backend   Backend
	Frontend  Frontend
	Database  string
	UseDocker bool
}

// Spec is the wire form of a TechStack.
type Spec struct {
	Backend   string `json:"backend"`
	Frontend  string `json:"frontend"`
	Database  string `json:"database"`
	UseDocker bool   `json:"use_docker"`
}

// Parse validates a Spec and returns the corresponding TechStack.
func Parse(s Spec) (TechStack, error) {
	b, err := ParseBackend(s.Backend)
	if err != nil {
		return TechStack{}, err
	}
	f, err := ParseFrontend(s.Frontend)
	if err != nil {
		return TechStack{}, err
	}
	db, err := ParseDatabase(s.Database)
	if err != nil {
		return TechStack{}, err
	}
	return TechStack{Backend: b, Frontend: f, Database: db, UseDocker: s.UseDocker}, nil
}

// Spec returns the wire form of the stack.
func (t TechStack) Spec() Spec {
	s := Spec{Database: t.Database, UseDocker: t.UseDocker}
	if t.Backend != nil {
		s.Backend = t.Backend.ID()
	}
	if t.Frontend != nil {
		s.Frontend = t.Frontend.ID()
	}
	return s
}

// Valid reports whether both technology variants are set.
func (t TechStack) Valid() bool {
	return t.Backend != nil && t.Frontend != nil && t.Database != ""
}

// DockerMode returns "docker" or "no-docker".
func (t TechStack) DockerMode() string {
	if t.UseDocker {
		return "docker"
	}
	return "no-docker"
}

// String renders the stack for logs and commit messages.
func (t TechStack) String() string {
	if !t.Valid() {
		return "invalid stack"
	}
	return fmt.Sprintf("%s + %s (%s, %s)", t.Backend.Label(), t.Frontend.Label(), t.Database, t.DockerMode())
}

func (t TechStack) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Spec())
}

func (t *TechStack) UnmarshalJSON(data []byte) error {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
