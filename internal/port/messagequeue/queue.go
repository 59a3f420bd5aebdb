// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Publisher sends provisioning events to the queue.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	Publisher

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects for provisioning lifecycle events.
const (
	SubjectProjectCreated     = "provisioning.project.created"
	SubjectProjectFailed      = "provisioning.project.failed"
	SubjectProjectDeleted     = "provisioning.project.deleted"
	SubjectProjectStatus      = "provisioning.project.status"
	SubjectPipelineTriggered  = "provisioning.pipeline.triggered"
	SubjectPipelineReconciled = "provisioning.pipeline.reconciled"
	SubjectAccountRegistered  = "provisioning.account.registered"

	// SubjectAll matches every provisioning subject.
	SubjectAll = "provisioning.>"
)
