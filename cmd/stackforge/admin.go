package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/StackForge/internal/adapter/gitlab"
	"github.com/Strob0t/StackForge/internal/adapter/postgres"
	"github.com/Strob0t/StackForge/internal/config"
	"github.com/Strob0t/StackForge/internal/domain/user"
	"github.com/Strob0t/StackForge/internal/port/scm"
	"github.com/Strob0t/StackForge/internal/service"
)

// GitLab rejects masked variables shorter than this.
const minMaskedLength = 8

// runAdmin dispatches admin subcommands (reset-password, create-user, sync-variables).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "reset-password":
		return runAdminResetPassword(args[1:])
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "sync-variables":
		return runAdminSyncVariables(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: stackforge admin <command> [options]

Commands:
  reset-password   Reset a user's password
  create-user      Register a user and link a GitLab account
  sync-variables   Push gitlab.group_variables to the provisioning group
  help             Show this help message

Examples:
  stackforge admin reset-password --login alice
  stackforge admin create-user --username alice --email alice@example.com
  stackforge admin sync-variables
`)
}

type adminDeps struct {
	cfg    *config.Config
	auth   *service.AuthService
	remote scm.Client
}

func loadAdminDeps() (*adminDeps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	remote := gitlab.NewClient(cfg.GitLab, nil)
	deps := &adminDeps{
		cfg:    cfg,
		auth:   service.NewAuthService(store, remote, cfg.Auth, nil, nil),
		remote: remote,
	}
	return deps, pool.Close, nil
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	login := fs.String("login", "", "username or email (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *login == "" {
		return fmt.Errorf("--login is required")
	}

	newPass, err := passwordOrPrompt(*password, "New password: ")
	if err != nil {
		return err
	}

	deps, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := deps.auth.ResetPassword(context.Background(), *login, newPass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", *login)
	return nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "username (required)")
	email := fs.String("email", "", "email address (required)")
	name := fs.String("name", "", "display name (defaults to username)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		return fmt.Errorf("--username is required")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	pass, err := passwordOrPrompt(*password, "Password: ")
	if err != nil {
		return err
	}

	deps, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := deps.auth.Register(context.Background(), user.RegisterRequest{
		Username:    *username,
		Email:       *email,
		DisplayName: *name,
		Password:    pass,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id %s, gitlab account %d)\n",
		res.User.Username, res.User.ID, res.User.RemoteAccountID)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Step, w.Message)
	}
	return nil
}

func runAdminSyncVariables(args []string) error {
	fs := flag.NewFlagSet("sync-variables", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "list the variables without pushing them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.GitLab.GroupVariables) == 0 {
		fmt.Fprintln(os.Stderr, "No gitlab.group_variables configured.")
		return nil
	}
	remote := gitlab.NewClient(cfg.GitLab, nil)

	keys := make([]string, 0, len(cfg.GitLab.GroupVariables))
	for k := range cfg.GitLab.GroupVariables {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tMASKED\tRESULT")
	var failed int
	for _, k := range keys {
		v := scm.Variable{Key: k, Value: cfg.GitLab.GroupVariables[k]}
		v.Masked = len(v.Value) >= minMaskedLength

		result := "skipped"
		if !*dryRun {
			result = "ok"
			if err := remote.UpsertGroupVariable(context.Background(), v); err != nil {
				result = err.Error()
				failed++
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%t\t%s\n", k, v.Masked, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d variables failed", failed, len(keys))
	}
	return nil
}

// passwordOrPrompt returns flagValue, or prompts twice when it is empty.
func passwordOrPrompt(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	pass, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
