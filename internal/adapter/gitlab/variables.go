package gitlab

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

type variableRequest struct {
	Key       string `json:"key,omitempty"`
	Value     string `json:"value"`
	Masked    bool   `json:"masked"`
	Protected bool   `json:"protected"`
}

// UpsertGroupVariable creates the variable, or updates it when the key exists.
func (c *Client) UpsertGroupVariable(ctx context.Context, v scm.Variable) error {
	if c.cfg.GroupID == 0 {
		return domain.ErrNamespaceNotConfigured
	}
	req := variableRequest{Key: v.Key, Value: v.Value, Masked: v.Masked, Protected: v.Protected}
	err := c.call(ctx, http.MethodPost, groupPath(c.cfg.GroupID, "/variables"), nil, req, nil)
	if err == nil {
		return nil
	}
	if !keyTaken(err) {
		return upstream(domain.UpstreamRequestFailed, "create group variable", err)
	}

	req.Key = ""
	path := groupPath(c.cfg.GroupID, "/variables/"+url.PathEscape(v.Key))
	if err := c.call(ctx, http.MethodPut, path, nil, req, nil); err != nil {
		return upstream(domain.UpstreamRequestFailed, "update group variable", err)
	}
	return nil
}

// keyTaken matches GitLab's duplicate-key answer, which is a 400 rather than 409.
func keyTaken(err error) bool {
	switch statusOf(err) {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		return strings.Contains(err.Error(), "has already been taken")
	}
	return false
}
