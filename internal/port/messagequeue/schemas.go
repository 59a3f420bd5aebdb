package messagequeue

// ProjectEventPayload is the schema for provisioning.project.* messages.
type ProjectEventPayload struct {
	ProjectID       string   `json:"project_id"`
	OwnerID         string   `json:"owner_id"`
	Name            string   `json:"name"`
	Status          string   `json:"status"`
	Stack           string   `json:"stack,omitempty"`
	RemoteProjectID int64    `json:"remote_project_id,omitempty"`
	Error           string   `json:"error,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// PipelineEventPayload is the schema for provisioning.pipeline.* messages.
type PipelineEventPayload struct {
	PipelineID       string `json:"pipeline_id"`
	ProjectID        string `json:"project_id"`
	OwnerID          string `json:"owner_id"`
	Kind             string `json:"kind"`
	Status           string `json:"status"`
	RemotePipelineID int64  `json:"remote_pipeline_id,omitempty"`
	DeployURL        string `json:"deploy_url,omitempty"`
}

// AccountEventPayload is the schema for provisioning.account.registered messages.
type AccountEventPayload struct {
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	RemoteAccountID int64  `json:"remote_account_id,omitempty"`
}
