// Package cli implements the papertrade operator commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/simaogato/papertrade-backend/internal/app"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Env is what every command needs from the outside world.
type Env struct {
	// Open builds the application from the loaded configuration.
	Open func(ctx context.Context) (*app.App, error)
	// Migrate prepares the database schema.
	Migrate func(ctx context.Context) error

	Out io.Writer
	Err io.Writer
	// Plain prints raw markdown instead of rendering it for the terminal.
	Plain bool
}

// Register the subcommands.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(&migrateCmd{env: env}, "admin")
	c.Register(&reconcileCmd{env: env}, "admin")

	c.Register(&registerCmd{env: env}, "accounts")
	c.Register(&resetPasswordCmd{env: env}, "accounts")

	c.Register(&quoteCmd{env: env}, "trading")
	c.Register(&buyCmd{env: env}, "trading")
	c.Register(&sellCmd{env: env}, "trading")

	c.Register(&portfolioCmd{env: env}, "reports")
	c.Register(&historyCmd{env: env}, "reports")
	c.Register(&exportCmd{env: env}, "reports")
}

func (e *Env) failf(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, format+"\n", args...)
	return subcommands.ExitFailure
}

// render prints a markdown report, styled unless Plain is set.
func (e *Env) render(md string) error {
	if e.Plain {
		_, err := io.WriteString(e.Out, md)
		return err
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return err
	}
	_, err = io.WriteString(e.Out, out)
	return err
}

// withAccount opens the application, resolves username and runs fn.
func (e *Env) withAccount(ctx context.Context, username string, fn func(a *app.App, acc *domain.Account) error) subcommands.ExitStatus {
	if username == "" {
		fmt.Fprintln(e.Err, "-u <username> is required")
		return subcommands.ExitUsageError
	}

	a, err := e.Open(ctx)
	if err != nil {
		return e.failf("Error opening application: %v", err)
	}
	defer a.Close()

	acc, err := a.Accounts.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return e.failf("No account named %q", username)
	}
	if err != nil {
		return e.failf("Error loading account: %v", err)
	}

	if err := fn(a, acc); err != nil {
		return e.failf("Error: %v", err)
	}
	return subcommands.ExitSuccess
}

func usernameFlag(f *flag.FlagSet, dst *string) {
	f.StringVar(dst, "u", "", "username of the account")
}
