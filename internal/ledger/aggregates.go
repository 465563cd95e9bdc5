// Package ledger computes derived figures over the live transaction list.
// Nothing here is ever cached or persisted: every caller recomputes from the
// list it just read, which keeps the aggregates and the ledger from drifting
// apart.
package ledger

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// List caps keep the assembled prompt within the inference endpoint's
// input-size limit.
const (
	MaxMonthlyEntries = 12
	MaxDailyEntries   = 90
)

// MonthSummary aggregates one calendar month.
type MonthSummary struct {
	Year   int
	Month  time.Month
	Spent  float64
	Earned float64
	Count  int
}

// DaySummary aggregates one calendar day's expenses.
type DaySummary struct {
	Date        civil.Date
	Spent       float64
	Count       int
	TopCategory domain.Category
}

// CategoryTotal aggregates expenses for one category.
type CategoryTotal struct {
	Category domain.Category
	Total    float64
	Count    int
}

// Balance returns income minus expenses over the whole ledger.
func Balance(txs []domain.Transaction) float64 {
	var balance float64
	for _, tx := range txs {
		switch tx.Type {
		case domain.TypeIncome:
			balance += tx.Amount
		case domain.TypeExpense:
			balance -= tx.Amount
		}
	}
	return balance
}

// TotalSpent returns the sum of all expense amounts and their count.
func TotalSpent(txs []domain.Transaction) (float64, int) {
	var total float64
	var count int
	for _, tx := range txs {
		if tx.Type == domain.TypeExpense {
			total += tx.Amount
			count++
		}
	}
	return total, count
}

// MonthTotal returns expenses and their count for one calendar month.
func MonthTotal(txs []domain.Transaction, year int, month time.Month) (float64, int) {
	var total float64
	var count int
	for _, tx := range txs {
		if tx.Type == domain.TypeExpense && tx.Date.Year == year && tx.Date.Month == month {
			total += tx.Amount
			count++
		}
	}
	return total, count
}

// CategorySpent returns expenses and their count for one category,
// optionally restricted to a calendar month (zero year means all time).
func CategorySpent(txs []domain.Transaction, cat domain.Category, year int, month time.Month) (float64, int) {
	var total float64
	var count int
	for _, tx := range txs {
		if tx.Type != domain.TypeExpense || tx.Category != cat {
			continue
		}
		if year != 0 && (tx.Date.Year != year || tx.Date.Month != month) {
			continue
		}
		total += tx.Amount
		count++
	}
	return total, count
}

// CategoryTotals returns per-category expense totals sorted by total,
// descending. Categories with no expenses are omitted.
func CategoryTotals(txs []domain.Transaction) []CategoryTotal {
	sums := make(map[domain.Category]*CategoryTotal)
	for _, tx := range txs {
		if tx.Type != domain.TypeExpense {
			continue
		}
		entry, ok := sums[tx.Category]
		if !ok {
			entry = &CategoryTotal{Category: tx.Category}
			sums[tx.Category] = entry
		}
		entry.Total += tx.Amount
		entry.Count++
	}

	result := make([]CategoryTotal, 0, len(sums))
	// Walk the fixed category order so equal totals sort stably.
	for _, cat := range domain.Categories {
		if entry, ok := sums[cat]; ok {
			result = append(result, *entry)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Total > result[j].Total
	})
	return result
}

// MonthlyBreakdown returns up to MaxMonthlyEntries month summaries,
// newest first.
func MonthlyBreakdown(txs []domain.Transaction) []MonthSummary {
	type ym struct {
		year  int
		month time.Month
	}
	sums := make(map[ym]*MonthSummary)
	for _, tx := range txs {
		key := ym{tx.Date.Year, tx.Date.Month}
		entry, ok := sums[key]
		if !ok {
			entry = &MonthSummary{Year: key.year, Month: key.month}
			sums[key] = entry
		}
		switch tx.Type {
		case domain.TypeExpense:
			entry.Spent += tx.Amount
		case domain.TypeIncome:
			entry.Earned += tx.Amount
		}
		entry.Count++
	}

	result := make([]MonthSummary, 0, len(sums))
	for _, entry := range sums {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	if len(result) > MaxMonthlyEntries {
		result = result[:MaxMonthlyEntries]
	}
	return result
}

// DailyBreakdown returns up to MaxDailyEntries day summaries of expense
// activity, newest first. A day's top category is the one with the highest
// spend; on equal spend the first category in the fixed taxonomy order wins.
func DailyBreakdown(txs []domain.Transaction) []DaySummary {
	result := dailySummaries(txs)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	if len(result) > MaxDailyEntries {
		result = result[:MaxDailyEntries]
	}
	return result
}

// dailySummaries aggregates every expense day, in no particular order.
func dailySummaries(txs []domain.Transaction) []DaySummary {
	type dayAgg struct {
		spent    float64
		count    int
		byCat    map[domain.Category]float64
	}
	days := make(map[civil.Date]*dayAgg)
	for _, tx := range txs {
		if tx.Type != domain.TypeExpense {
			continue
		}
		agg, ok := days[tx.Date]
		if !ok {
			agg = &dayAgg{byCat: make(map[domain.Category]float64)}
			days[tx.Date] = agg
		}
		agg.spent += tx.Amount
		agg.count++
		agg.byCat[tx.Category] += tx.Amount
	}

	result := make([]DaySummary, 0, len(days))
	for date, agg := range days {
		top := domain.Category("")
		var topAmount float64
		for _, cat := range domain.Categories {
			if amount, ok := agg.byCat[cat]; ok && amount > topAmount {
				top = cat
				topAmount = amount
			}
		}
		result = append(result, DaySummary{
			Date:        date,
			Spent:       agg.spent,
			Count:       agg.count,
			TopCategory: top,
		})
	}
	return result
}

// ExtremeSpendingDay returns the day with the highest (or lowest) expense
// total. Days are scanned in ascending date order, so when several days tie
// the earliest one wins. ok is false when the ledger has no expenses.
func ExtremeSpendingDay(txs []domain.Transaction, highest bool) (day DaySummary, ok bool) {
	summaries := dailySummaries(txs)
	if len(summaries) == 0 {
		return DaySummary{}, false
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date.Before(summaries[j].Date)
	})

	best := summaries[0]
	for _, s := range summaries[1:] {
		if highest && s.Spent > best.Spent {
			best = s
		}
		if !highest && s.Spent < best.Spent {
			best = s
		}
	}
	return best, true
}
