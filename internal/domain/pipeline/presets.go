package pipeline

import (
	"fmt"

	"github.com/Strob0t/StackForge/internal/domain"
)

// Kind is the action that triggered a pipeline.
type Kind string

const (
	KindBuild  Kind = "build"
	KindDeploy Kind = "deploy"
	KindSonar  Kind = "sonar"
)

// Stages returns the fixed stage list for the kind.
func (k Kind) Stages() ([]string, error) {
	switch k {
	case KindBuild:
		return []string{"build", "test"}, nil
	case KindDeploy:
		return []string{"build", "test", "deploy"}, nil
	case KindSonar:
		return []string{"build", "sonar"}, nil
	}
	return nil, fmt.Errorf("unknown pipeline kind %q: %w", k, domain.ErrValidation)
}
