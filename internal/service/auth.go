package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	cfotel "github.com/Strob0t/StackForge/internal/adapter/otel"
	"github.com/Strob0t/StackForge/internal/config"
	"github.com/Strob0t/StackForge/internal/domain"
	"github.com/Strob0t/StackForge/internal/domain/user"
	"github.com/Strob0t/StackForge/internal/port/database"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
	"github.com/Strob0t/StackForge/internal/port/scm"
)

const tokenIssuer = "stackforge"

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// tokenClaims is the JWT payload.
type tokenClaims struct {
	Username string `json:"username"`
	jwtlib.RegisteredClaims
}

// AuthService handles registration, login and JWT access tokens.
type AuthService struct {
	store   database.Store
	remote  scm.Client
	cfg     config.Auth
	events  *Events
	metrics *cfotel.Metrics
	secret  []byte
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, remote scm.Client, cfg config.Auth, events *Events, metrics *cfotel.Metrics) *AuthService {
	return &AuthService{
		store:   store,
		remote:  remote,
		cfg:     cfg,
		events:  events,
		metrics: metrics,
		secret:  []byte(cfg.JWTSecret),
	}
}

// Register creates a local account and links it to a remote account.
// Duplicate usernames or emails are rejected before any remote call. Remote
// account creation and group membership are best-effort: failures leave the
// user unlinked and are returned as warnings.
func (s *AuthService) Register(ctx context.Context, req user.RegisterRequest) (*user.RegisterResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	nameTaken, emailTaken, err := s.store.UserTaken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if emailTaken {
		return nil, fmt.Errorf("email already in use: %w", domain.ErrValidation)
	}
	if nameTaken {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ctx, span := cfotel.StartRegisterSpan(ctx, req.Username)
	defer span.End()

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	u := &user.User{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}

	var warnings []domain.Warning
	account, err := s.remote.CreateAccount(ctx, scm.AccountRequest{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: displayName,
	})
	if err != nil {
		s.metrics.RecordWarning(ctx, "create_remote_account")
		warnings = append(warnings, warn(ctx, "create_remote_account", err, "username", req.Username))
	} else {
		u.RemoteAccountID = account.ID
		u.RemoteUsername = account.Username
		if err := s.remote.AddAccountToGroup(ctx, account.ID); err != nil {
			s.metrics.RecordWarning(ctx, "add_to_group")
			warnings = append(warnings, warn(ctx, "add_to_group", err, "remote_account_id", account.ID))
		}
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, expiresIn, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", u.ID, "remote_account_id", u.RemoteAccountID, "warnings", len(warnings))
	s.events.emit(ctx, u.ID, messagequeue.SubjectAccountRegistered, messagequeue.AccountEventPayload{
		UserID:          u.ID,
		Username:        u.Username,
		RemoteAccountID: u.RemoteAccountID,
	})
	return &user.RegisterResult{AccessToken: token, ExpiresIn: expiresIn, User: *u, Warnings: warnings}, nil
}

// Login authenticates by username or email.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByLogin(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresIn, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &user.LoginResponse{AccessToken: token, ExpiresIn: expiresIn, User: *u}, nil
}

// Me returns the user behind an access token.
func (s *AuthService) Me(ctx context.Context, userID string) (*user.User, error) {
	return s.store.GetUser(ctx, userID)
}

// UpdateProfile changes the display name and email. A new email must not
// belong to another user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req user.UpdateProfileRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != "" && !strings.EqualFold(req.Email, u.Email) {
		_, emailTaken, err := s.store.UserTaken(ctx, "", req.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if emailTaken {
			return nil, fmt.Errorf("email already in use: %w", domain.ErrValidation)
		}
		u.Email = req.Email
	}
	if req.DisplayName != "" {
		u.DisplayName = req.DisplayName
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req user.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrValidation)
	}
	return s.setPassword(ctx, u, req.NewPassword)
}

// ResetPassword sets a new password without the current one. Admin use only.
func (s *AuthService) ResetPassword(ctx context.Context, login, newPassword string) error {
	u, err := s.store.GetUserByLogin(ctx, login)
	if err != nil {
		return err
	}
	probe := user.ChangePasswordRequest{CurrentPassword: "-", NewPassword: newPassword}
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return s.setPassword(ctx, u, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, u *user.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.Info("password changed", "user_id", u.ID)
	return nil
}

// ValidateAccessToken verifies an HS256 token and returns its claims.
func (s *AuthService) ValidateAccessToken(tokenStr string) (*user.TokenClaims, error) {
	parsed, err := jwtlib.ParseWithClaims(tokenStr, &tokenClaims{}, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithIssuer(tokenIssuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return &user.TokenClaims{
		UserID:    claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) issueToken(u *user.User) (string, int, error) {
	now := time.Now()
	claims := tokenClaims{
		Username: u.Username,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.cfg.AccessTokenExpiry)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign jwt: %w", err)
	}
	return token, int(s.cfg.AccessTokenExpiry.Seconds()), nil
}
