package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Strob0t/StackForge/internal/domain"
)

func asUpstream(err error) *domain.UpstreamError {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return ue
	}
	return nil
}

// warn logs a swallowed sub-step failure and returns it as a Warning.
func warn(ctx context.Context, step string, err error, attrs ...any) domain.Warning {
	args := append([]any{"step", step, "error", errorSummary(err)}, attrs...)
	slog.WarnContext(ctx, "non-fatal step failed", args...)
	return domain.NewWarning(step, err)
}
