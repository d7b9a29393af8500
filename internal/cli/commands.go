package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/simaogato/papertrade-backend/internal/adapter/export"
	"github.com/simaogato/papertrade-backend/internal/app"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

type migrateCmd struct {
	env *Env
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the ledger schema" }
func (*migrateCmd) Usage() string {
	return `migrate

  Creates the database (Postgres) and the ledger tables if they are missing.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.env.Migrate(ctx); err != nil {
		return c.env.failf("Error migrating: %v", err)
	}
	fmt.Fprintln(c.env.Out, "schema is up to date")
	return subcommands.ExitSuccess
}

type registerCmd struct {
	env      *Env
	username string
	password string
	keyword  string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "open a new account" }
func (*registerCmd) Usage() string {
	return `register -u <username> -p <password> -k <keyword>

  Opens an account funded with the configured starting cash. The keyword is
  needed to reset a forgotten password.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	usernameFlag(f, &c.username)
	f.StringVar(&c.password, "p", "", "password")
	f.StringVar(&c.keyword, "k", "", "recovery keyword")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.Open(ctx)
	if err != nil {
		return c.env.failf("Error opening application: %v", err)
	}
	defer a.Close()

	acc, err := a.Accounts.Register(ctx, c.username, c.password, c.keyword)
	if err != nil {
		return c.env.failf("Error registering: %v", err)
	}
	fmt.Fprintf(c.env.Out, "registered %s with %s\n", acc.Username, usd(acc.Cash))
	return subcommands.ExitSuccess
}

type resetPasswordCmd struct {
	env      *Env
	username string
	keyword  string
	password string
}

func (*resetPasswordCmd) Name() string     { return "reset-password" }
func (*resetPasswordCmd) Synopsis() string { return "set a new password using the recovery keyword" }
func (*resetPasswordCmd) Usage() string {
	return `reset-password -u <username> -k <keyword> -p <new password>
`
}

func (c *resetPasswordCmd) SetFlags(f *flag.FlagSet) {
	usernameFlag(f, &c.username)
	f.StringVar(&c.keyword, "k", "", "recovery keyword")
	f.StringVar(&c.password, "p", "", "new password")
}

func (c *resetPasswordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.Open(ctx)
	if err != nil {
		return c.env.failf("Error opening application: %v", err)
	}
	defer a.Close()

	if err := a.Accounts.ResetPassword(ctx, c.username, c.keyword, c.password); err != nil {
		return c.env.failf("Error resetting password: %v", err)
	}
	fmt.Fprintln(c.env.Out, "password updated")
	return subcommands.ExitSuccess
}

type quoteCmd struct {
	env *Env
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up the current price of a symbol" }
func (*quoteCmd) Usage() string {
	return `quote <symbol>
`
}
func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.env.Err, "exactly one symbol is required")
		return subcommands.ExitUsageError
	}

	a, err := c.env.Open(ctx)
	if err != nil {
		return c.env.failf("Error opening application: %v", err)
	}
	defer a.Close()

	q, err := a.Trades.Quote(ctx, f.Arg(0))
	if err != nil {
		return c.env.failf("Error: %v", err)
	}
	fmt.Fprintf(c.env.Out, "A share of %s (%s) costs %s.\n", q.Name, q.Symbol, usd(q.Price))
	return subcommands.ExitSuccess
}

// tradeArgs parses "<symbol> <quantity>".
func tradeArgs(f *flag.FlagSet) (string, int64, error) {
	if f.NArg() != 2 {
		return "", 0, fmt.Errorf("expected <symbol> <quantity>")
	}
	quantity, err := domain.ParseQuantity(f.Arg(1))
	if err != nil {
		return "", 0, err
	}
	return f.Arg(0), quantity, nil
}

type buyCmd struct {
	env      *Env
	username string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "buy shares at the current price" }
func (*buyCmd) Usage() string {
	return `buy -u <username> <symbol> <quantity>
`
}
func (c *buyCmd) SetFlags(f *flag.FlagSet) { usernameFlag(f, &c.username) }

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbol, quantity, err := tradeArgs(f)
	if err != nil {
		fmt.Fprintln(c.env.Err, err)
		return subcommands.ExitUsageError
	}

	return c.env.withAccount(ctx, c.username, func(a *app.App, acc *domain.Account) error {
		r, err := a.Trades.ExecuteBuy(ctx, acc.ID, symbol, quantity)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "Bought %d %s at %s for %s. Cash left: %s.\n",
			quantity, r.Holding.Symbol, usd(r.Transaction.Price), usd(r.Cost), usd(r.Cash))
		return nil
	})
}

type sellCmd struct {
	env      *Env
	username string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares at the current price" }
func (*sellCmd) Usage() string {
	return `sell -u <username> <symbol> <quantity>
`
}
func (c *sellCmd) SetFlags(f *flag.FlagSet) { usernameFlag(f, &c.username) }

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbol, quantity, err := tradeArgs(f)
	if err != nil {
		fmt.Fprintln(c.env.Err, err)
		return subcommands.ExitUsageError
	}

	return c.env.withAccount(ctx, c.username, func(a *app.App, acc *domain.Account) error {
		r, err := a.Trades.ExecuteSell(ctx, acc.ID, symbol, quantity)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "Sold %d %s at %s for %s. Cash: %s.\n",
			quantity, r.Transaction.Symbol, usd(r.Transaction.Price), usd(r.Proceeds), usd(r.Cash))
		return nil
	})
}

type portfolioCmd struct {
	env      *Env
	username string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "refresh prices and display holdings and net worth" }
func (*portfolioCmd) Usage() string {
	return `portfolio -u <username>
`
}
func (c *portfolioCmd) SetFlags(f *flag.FlagSet) { usernameFlag(f, &c.username) }

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withAccount(ctx, c.username, func(a *app.App, acc *domain.Account) error {
		overview, err := a.Portfolio.Overview(ctx, acc.ID)
		if err != nil {
			return err
		}
		return c.env.render(portfolioReport(acc.Username, overview))
	})
}

type historyCmd struct {
	env      *Env
	username string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display every trade of an account" }
func (*historyCmd) Usage() string {
	return `history -u <username>
`
}
func (c *historyCmd) SetFlags(f *flag.FlagSet) { usernameFlag(f, &c.username) }

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withAccount(ctx, c.username, func(a *app.App, acc *domain.Account) error {
		txs, err := a.Portfolio.History(ctx, acc.ID)
		if err != nil {
			return err
		}
		return c.env.render(historyReport(acc.Username, txs))
	})
}

type exportCmd struct {
	env      *Env
	username string
	output   string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the trade history to a Parquet file" }
func (*exportCmd) Usage() string {
	return `export -u <username> -o <file.parquet>
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	usernameFlag(f, &c.username)
	f.StringVar(&c.output, "o", "history.parquet", "output file")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withAccount(ctx, c.username, func(a *app.App, acc *domain.Account) error {
		txs, err := a.Portfolio.History(ctx, acc.ID)
		if err != nil {
			return err
		}
		if err := export.WriteTransactions(c.output, txs); err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "wrote %d transactions to %s\n", len(txs), c.output)
		return nil
	})
}

type reconcileCmd struct {
	env      *Env
	username string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "check holdings against the transaction log" }
func (*reconcileCmd) Usage() string {
	return `reconcile -u <username>

  Replays the transaction log and reports every symbol whose holding differs.
  Exits non-zero when the ledger is out of balance.
`
}
func (c *reconcileCmd) SetFlags(f *flag.FlagSet) { usernameFlag(f, &c.username) }

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var unbalanced bool
	status := c.env.withAccount(ctx, c.username, func(a *app.App, acc *domain.Account) error {
		ds, err := a.Portfolio.Reconcile(ctx, acc.ID)
		if err != nil {
			return err
		}
		unbalanced = len(ds) > 0
		return c.env.render(reconcileReport(acc.Username, ds))
	})
	if status == subcommands.ExitSuccess && unbalanced {
		return subcommands.ExitFailure
	}
	return status
}
