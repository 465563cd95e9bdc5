// Package router answers common ledger questions deterministically, before
// any model call. A matched intent is computed with plain arithmetic over
// the transaction list, which guarantees exact figures for the questions
// users ask most.
package router

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/ledger"
)

// intent pairs an ordered set of patterns with the handler that computes the
// answer. The table below is the single source of intent detection; matching
// stops at the first pattern that hits.
type intent struct {
	name     string
	patterns []*regexp.Regexp
	handle   func(match []string, txs []domain.Transaction) string
}

// Router classifies raw text into one of a fixed set of intents and answers
// directly from the ledger. It is read-only and never blocks on a model.
type Router struct {
	intents []intent
	now     func() time.Time
}

// New builds the router with its fixed intent table. A nil now defaults to
// time.Now; tests inject a fixed clock.
func New(now func() time.Time) *Router {
	if now == nil {
		now = time.Now
	}
	r := &Router{now: now}
	r.intents = []intent{
		{
			name: "extreme-spending-day",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:which|what)\s+day\b.*\b(most|highest|least|lowest)\b`),
				regexp.MustCompile(`(?i)\b(most|highest|least|lowest)\b.*\bspen[dt]\w*\b.*\bday\b`),
				regexp.MustCompile(`(?i)\bday\b.*\bspen[dt]\w*\b.*\b(most|highest|least|lowest)\b`),
			},
			handle: handleExtremeDay,
		},
		{
			name: "category-total",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:how much|what).*\bspen[dt]\b.*\bon\b.*\b(` + categoryPattern + `)\b`),
				regexp.MustCompile(`(?i)\b(` + categoryPattern + `)\b\s+(?:spending|expenses|total)\b`),
			},
			handle: handleCategoryTotal,
		},
		{
			name: "month-total",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:how much|what).*\bspen[dt]\b.*\bin\b\s+(` + monthPattern + `)\b(?:\s+(\d{4}))?`),
				regexp.MustCompile(`(?i)\b(` + monthPattern + `)\b(?:\s+(\d{4}))?\s+(?:spending|expenses|total)\b`),
			},
			handle: r.handleMonthTotal,
		},
		{
			name: "balance",
			// The question shape is mandatory: a bare "balance" mention is
			// not enough, or action requests like "add lunch and tell me my
			// balance" would be hijacked before the model ever runs.
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^\s*(?:what(?:'s| is)?|show(?: me)?|check)\s+(?:my\s+)?(?:current\s+)?balance\b`),
				regexp.MustCompile(`(?i)^\s*balance\??\s*$`),
				regexp.MustCompile(`(?i)^\s*how much\b.*\b(?:money|left)\b.*\b(?:have|left)\b`),
			},
			handle: handleBalance,
		},
	}
	return r
}

// Route answers text directly from the ledger when an intent matches.
// The second return reports whether a fast path handled the question.
func (r *Router) Route(text string, txs []domain.Transaction) (string, bool) {
	for _, in := range r.intents {
		for _, p := range in.patterns {
			if match := p.FindStringSubmatch(text); match != nil {
				return in.handle(match, txs), true
			}
		}
	}
	return "", false
}

const monthPattern = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec`

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const categoryPattern = `food|groceries|transportation|transport|housing|rent|entertainment|shopping|healthcare|health|medical|other`

var categoryAliases = map[string]domain.Category{
	"food": domain.CategoryFood, "groceries": domain.CategoryFood,
	"transportation": domain.CategoryTransportation, "transport": domain.CategoryTransportation,
	"housing": domain.CategoryHousing, "rent": domain.CategoryHousing,
	"entertainment": domain.CategoryEntertainment,
	"shopping":      domain.CategoryShopping,
	"healthcare":    domain.CategoryHealthcare, "health": domain.CategoryHealthcare, "medical": domain.CategoryHealthcare,
	"other": domain.CategoryOther,
}

func handleExtremeDay(match []string, txs []domain.Transaction) string {
	direction := strings.ToLower(match[1])
	highest := direction == "most" || direction == "highest"

	day, ok := ledger.ExtremeSpendingDay(txs, highest)
	if !ok {
		return "You have no recorded expenses yet, so there is no spending by day to compare."
	}

	label := "highest"
	if !highest {
		label = "lowest"
	}
	answer := fmt.Sprintf("Your %s spending day was %s with %s across %d %s",
		label, day.Date, ledger.FormatUSD(day.Spent), day.Count, plural(day.Count, "transaction"))
	if day.TopCategory != "" {
		answer += fmt.Sprintf(" (top category: %s)", day.TopCategory)
	}
	return answer + "."
}

func handleCategoryTotal(match []string, txs []domain.Transaction) string {
	cat := categoryAliases[strings.ToLower(match[1])]

	total, count := ledger.CategorySpent(txs, cat, 0, 0)
	overall, overallCount := ledger.TotalSpent(txs)

	if count == 0 {
		return fmt.Sprintf("You have no recorded %s expenses. Overall you've spent %s across %d %s.",
			cat, ledger.FormatUSD(overall), overallCount, plural(overallCount, "transaction"))
	}
	return fmt.Sprintf("You've spent %s on %s across %d %s, out of %s total spending.",
		ledger.FormatUSD(total), cat, count, plural(count, "transaction"), ledger.FormatUSD(overall))
}

func (r *Router) handleMonthTotal(match []string, txs []domain.Transaction) string {
	month := months[strings.ToLower(match[1])]
	year := r.resolveYear(match[2], month, txs)

	total, count := ledger.MonthTotal(txs, year, month)
	if count == 0 {
		overall, overallCount := ledger.TotalSpent(txs)
		return fmt.Sprintf("You have no recorded expenses in %s %d. Overall you've spent %s across %d %s.",
			month, year, ledger.FormatUSD(overall), overallCount, plural(overallCount, "transaction"))
	}

	answer := fmt.Sprintf("You spent %s across %d %s in %s %d.",
		ledger.FormatUSD(total), count, plural(count, "transaction"), month, year)

	if top := topCategoryForMonth(txs, year, month); top != "" {
		topTotal, _ := ledger.CategorySpent(txs, top, year, month)
		answer += fmt.Sprintf(" Your highest spending was in %s (%s).", top, ledger.FormatUSD(topTotal))
	}
	return answer
}

func handleBalance(match []string, txs []domain.Transaction) string {
	balance := ledger.Balance(txs)
	spent, _ := ledger.TotalSpent(txs)

	var earned float64
	for _, tx := range txs {
		if tx.Type == domain.TypeIncome {
			earned += tx.Amount
		}
	}
	return fmt.Sprintf("Your current balance is %s (%s income minus %s expenses).",
		ledger.FormatUSD(balance), ledger.FormatUSD(earned), ledger.FormatUSD(spent))
}

// resolveYear picks an explicit year when the question names one, otherwise
// the most recent year with activity in that month, falling back to the
// current year.
func (r *Router) resolveYear(explicit string, month time.Month, txs []domain.Transaction) int {
	if explicit != "" {
		var year int
		fmt.Sscanf(explicit, "%d", &year)
		return year
	}

	best := 0
	for _, tx := range txs {
		if tx.Date.Month == month && tx.Date.Year > best {
			best = tx.Date.Year
		}
	}
	if best == 0 {
		return r.now().Year()
	}
	return best
}

func topCategoryForMonth(txs []domain.Transaction, year int, month time.Month) domain.Category {
	var top domain.Category
	var topTotal float64
	for _, cat := range domain.Categories {
		total, _ := ledger.CategorySpent(txs, cat, year, month)
		if total > topTotal {
			top = cat
			topTotal = total
		}
	}
	return top
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
