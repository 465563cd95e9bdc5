// Package knowledge holds the curated financial knowledge base. The corpus
// is static reference content, not user data; it is embedded into the vector
// index at startup and retrieved by semantic similarity during context
// assembly.
package knowledge

// Entry is one knowledge-base article.
type Entry struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// Corpus returns the full curated knowledge base.
func Corpus() []Entry {
	return []Entry{
		{
			ID:       "kb-budgeting-50-30-20",
			Content:  "The 50/30/20 rule splits take-home pay into 50% needs (housing, groceries, transport), 30% wants (entertainment, dining out), and 20% savings or debt repayment. It is a starting point, not a law: adjust the shares to your cost of living.",
			Category: "budgeting",
			Tags:     []string{"budget", "rule-of-thumb", "savings"},
		},
		{
			ID:       "kb-emergency-fund",
			Content:  "An emergency fund should cover three to six months of essential expenses. Keep it in an instant-access savings account, separate from everyday spending money, and rebuild it before resuming discretionary saving after you dip into it.",
			Category: "savings",
			Tags:     []string{"emergency", "savings", "safety-net"},
		},
		{
			ID:       "kb-food-spending",
			Content:  "Food spending is usually the easiest category to trim. Planning meals for the week, batch cooking, and setting a separate eating-out budget typically cut grocery and restaurant costs by 15-25% without feeling restrictive.",
			Category: "spending",
			Tags:     []string{"food", "groceries", "dining"},
		},
		{
			ID:       "kb-transport-costs",
			Content:  "Transportation is often the second-largest household expense after housing. Compare the full cost of car ownership (fuel, insurance, maintenance, depreciation) against transit passes or occasional ride-hailing before assuming the car is cheaper.",
			Category: "spending",
			Tags:     []string{"transportation", "car", "commute"},
		},
		{
			ID:       "kb-budget-alerts",
			Content:  "Category budgets work best when reviewed weekly rather than at month end. Hitting 80% of a category limit mid-month is the signal to slow down; reacting only after the limit is blown defeats the purpose of the budget.",
			Category: "budgeting",
			Tags:     []string{"budget", "limits", "habits"},
		},
		{
			ID:       "kb-subscriptions",
			Content:  "Recurring subscriptions quietly accumulate. Once a quarter, list every recurring charge on your statements and cancel anything you have not used in the last month. Annual plans are cheaper only for services you are certain to keep.",
			Category: "spending",
			Tags:     []string{"subscriptions", "recurring", "entertainment"},
		},
		{
			ID:       "kb-income-smoothing",
			Content:  "With irregular income, budget against your lowest recent month rather than your average. Route surplus from good months into a buffer account and pay yourself a fixed amount from it, so spending does not whipsaw with earnings.",
			Category: "income",
			Tags:     []string{"income", "freelance", "buffer"},
		},
		{
			ID:       "kb-healthcare-planning",
			Content:  "Healthcare costs are lumpy: months of nothing, then a large bill. Treat the category as an annual figure divided by twelve and set the monthly difference aside, instead of judging each month in isolation.",
			Category: "planning",
			Tags:     []string{"healthcare", "planning", "irregular"},
		},
	}
}
