// Package prompt assembles the model's system prompt from pre-computed
// ledger figures and retrieved context. Every number the model may cite is
// computed here, in Go, and injected as text; the prompt forbids the model
// from doing arithmetic of its own. All list caps exist to keep the prompt
// within the inference endpoint's input-size limit.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/ledger"
	"github.com/dvloznov/finance-assistant/internal/retrieval"
)

// Input is everything the assembler needs for one request.
type Input struct {
	Transactions []domain.Transaction
	Budgets      domain.Budgets
	Snippets     []retrieval.Snippet
	Similar      []retrieval.SimilarTransaction
	Catalog      string
	Now          time.Time
}

// BuildSystemPrompt renders the full system prompt for the primary model
// call.
func BuildSystemPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant working over the user's transaction ledger.\n\n")
	b.WriteString("HARD RULES:\n")
	b.WriteString("1. NEVER perform arithmetic. Every figure you may cite is pre-computed below; quote those strings verbatim.\n")
	b.WriteString("2. Never invent amounts, dates, or counts that do not appear below.\n")
	b.WriteString("3. Answer briefly and in natural language.\n\n")

	b.WriteString("To perform actions, emit one line per action, in the order they must execute:\n")
	b.WriteString(`ACTION_CALL: {"name": "<action>", "arguments": {...}}` + "\n")
	b.WriteString("Available actions:\n")
	b.WriteString(in.Catalog)
	b.WriteString("Emit ACTION_CALL lines only when the user asks for an action; otherwise answer in plain text.\n\n")

	writeLedgerSnapshot(&b, in)
	writeBudgets(&b, in.Budgets)
	writeRetrievedContext(&b, in.Snippets, in.Similar)

	return b.String()
}

func writeLedgerSnapshot(b *strings.Builder, in Input) {
	txs := in.Transactions

	balance := ledger.Balance(txs)
	spent, count := ledger.TotalSpent(txs)
	monthSpent, monthCount := ledger.MonthTotal(txs, in.Now.Year(), in.Now.Month())

	b.WriteString("LEDGER SNAPSHOT (pre-computed, authoritative):\n")
	fmt.Fprintf(b, "- Balance: %s\n", ledger.FormatUSD(balance))
	fmt.Fprintf(b, "- Total spent: %s across %d transactions\n", ledger.FormatUSD(spent), count)
	fmt.Fprintf(b, "- Spent in %s %d: %s across %d transactions\n",
		in.Now.Month(), in.Now.Year(), ledger.FormatUSD(monthSpent), monthCount)

	if totals := ledger.CategoryTotals(txs); len(totals) > 0 {
		b.WriteString("\nSpending by category (descending):\n")
		for _, ct := range totals {
			fmt.Fprintf(b, "- %s: %s (%d transactions)\n", ct.Category, ledger.FormatUSD(ct.Total), ct.Count)
		}
	}

	if months := ledger.MonthlyBreakdown(txs); len(months) > 0 {
		b.WriteString("\nMonthly breakdown (newest first):\n")
		for _, m := range months {
			fmt.Fprintf(b, "- %s %d: spent %s, earned %s, %d transactions\n",
				m.Month, m.Year, ledger.FormatUSD(m.Spent), ledger.FormatUSD(m.Earned), m.Count)
		}
	}

	if days := ledger.DailyBreakdown(txs); len(days) > 0 {
		b.WriteString("\nDaily spending (newest first):\n")
		for _, d := range days {
			fmt.Fprintf(b, "- %s: %s, %d transactions, top category %s\n",
				d.Date, ledger.FormatUSD(d.Spent), d.Count, d.TopCategory)
		}
	}
	b.WriteString("\n")
}

func writeBudgets(b *strings.Builder, budgets domain.Budgets) {
	if len(budgets) == 0 {
		return
	}
	b.WriteString("Monthly budgets:\n")
	for _, cat := range domain.Categories {
		if limit, ok := budgets[cat]; ok {
			fmt.Fprintf(b, "- %s: %s\n", cat, ledger.FormatUSD(limit))
		}
	}
	b.WriteString("\n")
}

func writeRetrievedContext(b *strings.Builder, snippets []retrieval.Snippet, similar []retrieval.SimilarTransaction) {
	if len(snippets) > 0 {
		b.WriteString("Relevant financial guidance:\n")
		for _, s := range snippets {
			fmt.Fprintf(b, "- %s\n", s.Content)
		}
		b.WriteString("\n")
	}
	if len(similar) > 0 {
		b.WriteString("Similar past transactions:\n")
		for _, s := range similar {
			fmt.Fprintf(b, "- %s\n", s.Summary)
		}
		b.WriteString("\n")
	}
}

// ConfirmationPrompt is the system prompt for the second, narrowly scoped
// model call that turns executed action results into one confirmation
// sentence.
func ConfirmationPrompt(results []string, snapshot string) string {
	var b strings.Builder
	b.WriteString("You confirm completed financial actions.\n")
	b.WriteString("Write ONE short confirmation sentence covering only what was done. ")
	b.WriteString("Report failures plainly. Use only the figures below; never compute or invent numbers.\n\n")
	b.WriteString("Action results, in execution order:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("\nFresh ledger figures (recomputed after the actions):\n")
	b.WriteString(snapshot)
	return b.String()
}

// Snapshot renders the compact post-action figures handed to the
// confirmation call.
func Snapshot(txs []domain.Transaction, now time.Time) string {
	balance := ledger.Balance(txs)
	spent, count := ledger.TotalSpent(txs)
	monthSpent, monthCount := ledger.MonthTotal(txs, now.Year(), now.Month())

	return fmt.Sprintf("- Balance: %s\n- Total spent: %s across %d transactions\n- Spent in %s %d: %s across %d transactions\n",
		ledger.FormatUSD(balance), ledger.FormatUSD(spent), count,
		now.Month(), now.Year(), ledger.FormatUSD(monthSpent), monthCount)
}

var spendingVocabulary = []string{
	"spend", "spent", "spending", "bought", "buy", "purchase", "paid", "pay",
	"cost", "expense", "expenses", "budget", "save", "saving", "money", "afford",
}

// MentionsSpending reports whether the message uses spending-related
// vocabulary. Retrieval is only worth its latency for such messages.
func MentionsSpending(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range spendingVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
