package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/StackForge/internal/middleware"
)

// ---------------------------------------------------------------------------
// Generic owner-scoped handler factories
// ---------------------------------------------------------------------------

// handleOwnedList creates a handler that lists the caller's resources.
func handleOwnedList[T any](listFn func(ctx context.Context, ownerID string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			writeInternalError(w, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleOwnedListByID creates a handler that lists resources below the
// caller's resource identified by URL param "id".
func handleOwnedListByID[T any](listFn func(ctx context.Context, id, ownerID string) ([]T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context(), urlParam(r, "id"), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err, notFoundMsg)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleOwnedGet creates a handler that retrieves one of the caller's
// resources by URL param "id".
func handleOwnedGet[T any](getFn func(ctx context.Context, id, ownerID string) (*T, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := getFn(r.Context(), urlParam(r, "id"), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// handleOwnedUpdate creates a handler that decodes a JSON body and applies it
// to the caller's resource identified by URL param "id".
func handleOwnedUpdate[Req any, Res any](updateFn func(ctx context.Context, id, ownerID string, req Req) (*Res, error), notFoundMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readJSON[Req](w, r)
		if !ok {
			return
		}
		item, err := updateFn(r.Context(), urlParam(r, "id"), middleware.UserIDFromContext(r.Context()), req)
		if err != nil {
			writeDomainError(w, err, notFoundMsg)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}
