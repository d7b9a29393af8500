package cli

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
)

// usd formats an amount as US dollars, rounded to the cent.
func usd(d decimal.Decimal) string {
	cur := money.New(0, money.USD).Currency()
	cents := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(cents.IntPart())
}

func portfolioReport(username string, r *portfolio.NetWorthResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio of %s\n\n", username)

	if len(r.Holdings) == 0 {
		b.WriteString("No open positions.\n\n")
	} else {
		b.WriteString("| Symbol | Name | Shares | Price | Total |\n")
		b.WriteString("|---|---|--:|--:|--:|\n")
		for _, h := range r.Holdings {
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n", h.Symbol, h.Name, h.Shares, usd(h.Price), usd(h.Total))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "- Cash: **%s**\n", usd(r.Cash))
	fmt.Fprintf(&b, "- Holdings: **%s**\n", usd(r.HoldingsValue))
	fmt.Fprintf(&b, "- Total: **%s**\n", usd(r.Total))

	if r.Stale {
		fmt.Fprintf(&b, "\n> Prices could not be refreshed for %s; their last known values were used.\n",
			strings.Join(r.FailedSymbols, ", "))
	}
	return b.String()
}

func historyReport(username string, txs []*domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# History of %s\n\n", username)

	if len(txs) == 0 {
		b.WriteString("No transactions.\n")
		return b.String()
	}

	b.WriteString("| Time | Symbol | Shares | Price | Amount |\n")
	b.WriteString("|---|---|--:|--:|--:|\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "| %s | %s | %+d | %s | %s |\n",
			tx.ExecutedAt.Format("2006-01-02 15:04:05"), tx.Symbol, tx.Delta, usd(tx.Price), usd(tx.Amount()))
	}
	return b.String()
}

func reconcileReport(username string, ds []portfolio.Discrepancy) string {
	if len(ds) == 0 {
		return fmt.Sprintf("Ledger of %s is consistent.\n", username)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger of %s is out of balance\n\n", username)
	b.WriteString("| Symbol | Logged | Held |\n")
	b.WriteString("|---|--:|--:|\n")
	for _, d := range ds {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", d.Symbol, d.Logged, d.Held)
	}
	return b.String()
}
