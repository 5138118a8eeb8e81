package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/Strob0t/agentbridge/internal/adapter/postgres"
	"github.com/Strob0t/agentbridge/internal/config"
	"github.com/Strob0t/agentbridge/internal/middleware"
	"github.com/Strob0t/agentbridge/internal/secrets"
)

// runAdmin dispatches admin subcommands (migrate, rollback, version, sign).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "rollback":
		return runAdminRollback(args[1:])
	case "version":
		return runAdminVersion(args[1:])
	case "sign":
		return runAdminSign(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: agentbridge admin <command> [options]

Commands:
  migrate    Apply all pending database migrations
  rollback   Roll back database migrations
  version    Print the current migration version
  sign       Compute the webhook signature of a request body
  help       Show this help message

Examples:
  agentbridge admin migrate
  agentbridge admin rollback --steps 2
  agentbridge admin sign --file payload.json
  echo '{"action":"test_n8n_connection"}' | agentbridge admin sign
`)
}

func loadAdminConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Migrations applied, version %d\n", v)
	return nil
}

func runAdminRollback(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be >= 1")
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s), version %d\n", *steps, v)
	return nil
}

func runAdminVersion(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAdminConfig()
	if err != nil {
		return err
	}
	v, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Println(v)
	return nil
}

// runAdminSign prints the signature header value for a body read from a
// file or stdin. The secret comes from the environment or, when stdin is a
// terminal, a prompt.
func runAdminSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	file := fs.String("file", "", "file containing the exact request body (default stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := os.Getenv(secrets.KeyBridgeWebhookSecret)
	if secret == "" {
		if !term.IsTerminal(int(syscall.Stdin)) { //nolint:unconvert // int conversion needed on some platforms
			return fmt.Errorf("%s is not set and stdin is not a terminal", secrets.KeyBridgeWebhookSecret)
		}
		var err error
		secret, err = promptSecret("Webhook secret: ")
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		if secret == "" {
			return fmt.Errorf("secret must not be empty")
		}
	}

	var body []byte
	var err error
	if *file != "" {
		body, err = os.ReadFile(*file)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	fmt.Println(middleware.Sign(body, secret))
	return nil
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after secret input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
