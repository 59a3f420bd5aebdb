package project

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/stack"
)

// ValidateCreateRequest validates a project creation request and returns the
// parsed technology stack.
func ValidateCreateRequest(req CreateRequest) (stack.TechStack, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return stack.TechStack{}, fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(name) > 100 {
		return stack.TechStack{}, fmt.Errorf("name exceeds 100 characters: %w", domain.ErrValidation)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return stack.TechStack{}, fmt.Errorf("name contains control characters: %w", domain.ErrValidation)
		}
	}
	if len(req.Description) > 2000 {
		return stack.TechStack{}, fmt.Errorf("description exceeds 2000 characters: %w", domain.ErrValidation)
	}
	return stack.Parse(req.Stack)
}

// ValidateDeployURL accepts an empty URL or an http(s) URL.
func ValidateDeployURL(u string) error {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return nil
	}
	return fmt.Errorf("deploy_url must start with http:// or https://: %w", domain.ErrValidation)
}
