package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

// SanitizeUsername maps a local username onto GitLab's allowed set:
// letters, digits, '_', '.' and '-', starting with a letter or digit.
func SanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, "_.-") == "" {
		return "user"
	}
	if c := out[0]; !isAlnum(c) {
		out = "u" + out
	}
	return out
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type createUserRequest struct {
	Email            string `json:"email"`
	Username         string `json:"username"`
	Name             string `json:"name"`
	Password         string `json:"password"` //nolint:gosec // request field
	SkipConfirmation bool   `json:"skip_confirmation"`
}

// CreateAccount creates a GitLab user. When the username or email is already
// taken the existing user is looked up by email and returned.
func (c *Client) CreateAccount(ctx context.Context, req scm.AccountRequest) (scm.Account, error) {
	username := SanitizeUsername(req.Username)
	name := req.DisplayName
	if name == "" {
		name = req.Username
	}

	var acc scm.Account
	err := c.call(ctx, http.MethodPost, "/users", nil, createUserRequest{
		Email:            req.Email,
		Username:         username,
		Name:             name,
		Password:         req.Password,
		SkipConfirmation: true,
	}, &acc)
	if err == nil {
		slog.Info("gitlab account created", "username", acc.Username, "id", acc.ID)
		return acc, nil
	}
	if statusOf(err) != http.StatusConflict {
		return scm.Account{}, upstream(domain.UpstreamCreateFailed, "create account", err)
	}

	slog.Info("gitlab account exists, looking up by email", "username", username)
	existing, lerr := c.FindAccountByEmail(ctx, req.Email)
	if lerr != nil {
		return scm.Account{}, upstream(domain.UpstreamCreateFailed, "create account", err)
	}
	return existing, nil
}

// FindAccountByEmail searches users and returns the exact email match.
func (c *Client) FindAccountByEmail(ctx context.Context, email string) (scm.Account, error) {
	var accounts []scm.Account
	q := url.Values{"search": {email}}
	if err := c.call(ctx, http.MethodGet, "/users", q, nil, &accounts); err != nil {
		return scm.Account{}, upstream(domain.UpstreamRequestFailed, "find account", err)
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	// Without admin scope GitLab omits emails; a single search hit is the match.
	if len(accounts) == 1 && accounts[0].Email == "" {
		return accounts[0], nil
	}
	return scm.Account{}, fmt.Errorf("gitlab account %s: %w", email, domain.ErrNotFound)
}

type memberRequest struct {
	UserID      int64 `json:"user_id"`
	AccessLevel int   `json:"access_level"`
}

// AddAccountToGroup grants the configured member role in the provisioning group.
func (c *Client) AddAccountToGroup(ctx context.Context, accountID int64) error {
	if c.cfg.GroupID == 0 {
		return domain.ErrNamespaceNotConfigured
	}
	err := c.call(ctx, http.MethodPost, groupPath(c.cfg.GroupID, "/members"), nil,
		memberRequest{UserID: accountID, AccessLevel: c.cfg.MemberAccess}, nil)
	if err == nil {
		return nil
	}
	if statusOf(err) == http.StatusConflict {
		slog.Debug("gitlab account already in group", "account_id", accountID, "group_id", c.cfg.GroupID)
		return nil
	}
	return upstream(domain.UpstreamRequestFailed, "add group member", err)
}
