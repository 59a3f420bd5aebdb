package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var missing string
	switch {
	case strings.HasPrefix(subject, "provisioning.project."):
		var p ProjectEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.ProjectID == "" {
			missing = "project_id"
		}
	case strings.HasPrefix(subject, "provisioning.pipeline."):
		var p PipelineEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.PipelineID == "" {
			missing = "pipeline_id"
		}
	case subject == SubjectAccountRegistered:
		var p AccountEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.UserID == "" {
			missing = "user_id"
		}
	}

	if missing != "" {
		return fmt.Errorf("schema validation failed for %s: missing %s", subject, missing)
	}
	return nil
}
