// Package actions defines the fixed catalog of functions the model may
// request and executes them against the ledger. Invalid arguments and failed
// executions are reported in-band as failed FunctionResults; they never
// abort the surrounding batch.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Action names, fixed.
const (
	ActionAddTransaction     = "add_transaction"
	ActionSetBudget          = "set_budget"
	ActionGetSpendingSummary = "get_spending_summary"
	ActionGetBudgetStatus    = "get_budget_status"
	ActionDeleteTransaction  = "delete_transaction"
)

type actionDef struct {
	name        string
	description string
	run         func(ctx context.Context, args map[string]interface{}) domain.FunctionResult
}

// Registry holds the action catalog. The catalog is fixed at construction;
// there is no runtime registration surface.
type Registry struct {
	defs  map[string]actionDef
	order []string
}

// Execute runs a single call. Unknown names and invalid arguments yield a
// failed result without touching the ledger.
func (r *Registry) Execute(ctx context.Context, call domain.FunctionCall) domain.FunctionResult {
	def, ok := r.defs[call.Name]
	if !ok {
		return domain.FunctionResult{
			Success: false,
			Message: fmt.Sprintf("unknown action %q", call.Name),
			Action:  call.Name,
		}
	}
	return def.run(ctx, call.Arguments)
}

// Known reports whether name is in the catalog.
func (r *Registry) Known(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// CatalogDescription renders the catalog for the model prompt.
func (r *Registry) CatalogDescription() string {
	var b strings.Builder
	for _, name := range r.order {
		b.WriteString("- " + name + ": " + r.defs[name].description + "\n")
	}
	return b.String()
}

func (r *Registry) register(def actionDef) {
	r.defs[def.name] = def
	r.order = append(r.order, def.name)
}

func failure(action, format string, args ...interface{}) domain.FunctionResult {
	return domain.FunctionResult{
		Success: false,
		Message: fmt.Sprintf(format, args...),
		Action:  action,
	}
}

func success(action, message string, data interface{}) domain.FunctionResult {
	return domain.FunctionResult{
		Success: true,
		Message: message,
		Data:    data,
		Action:  action,
	}
}

func sortedCategories(budgets domain.Budgets) []domain.Category {
	cats := make([]domain.Category, 0, len(budgets))
	for cat := range budgets {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
