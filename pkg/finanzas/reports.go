package finanzas

import (
	"context"
	"fmt"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
)

// Row caps for movement listings. A chat is not a spreadsheet.
const (
	MaxMovementsSingleDay = 30
	MaxMovementsRange     = 60
)

// MovementsByDay returns the day's transactions, oldest first.
func (m *Manager) MovementsByDay(ctx context.Context, userID int, day time.Time) ([]db.Transaction, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	txs, err := m.cr.TransactionsBetween(ctx, userID, from, from.AddDate(0, 0, 1), MaxMovementsSingleDay)
	if err != nil {
		return nil, fmt.Errorf("failed to get movements: %w", err)
	}
	return txs, nil
}

// MovementsBetween returns transactions with occurrence dates inside
// the inclusive [from, to] range, oldest first.
func (m *Manager) MovementsBetween(ctx context.Context, userID int, from, to time.Time) ([]db.Transaction, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1)
	txs, err := m.cr.TransactionsBetween(ctx, userID, start, end, MaxMovementsRange)
	if err != nil {
		return nil, fmt.Errorf("failed to get movements: %w", err)
	}
	return txs, nil
}

// CategoryReport is one category line of a monthly summary.
type CategoryReport struct {
	Name      string
	SpentCLP  decimal.Decimal
	BudgetCLP decimal.Decimal
	HasBudget bool
}

// MonthlySummary aggregates one calendar month in CLP.
type MonthlySummary struct {
	Month      time.Time
	IncomeCLP  decimal.Decimal
	ExpenseCLP decimal.Decimal
	Categories []CategoryReport
}

// BalanceCLP is income minus expense for the month.
func (s MonthlySummary) BalanceCLP() decimal.Decimal {
	return s.IncomeCLP.Sub(s.ExpenseCLP)
}

// Summary builds the monthly rollup: CLP income and expense totals
// plus per-category spending matched against that month's budgets.
// Categories appear if they have either spending or a budget.
func (m *Manager) Summary(ctx context.Context, userID int, month time.Time) (*MonthlySummary, error) {
	from := monthStart(month)
	to := from.AddDate(0, 1, 0)

	income, err := m.cr.SumAmountCLP(ctx, userID, db.KindIncome, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum income: %w", err)
	}
	expense, err := m.cr.SumAmountCLP(ctx, userID, db.KindExpense, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}

	sums, err := m.cr.SumExpensesByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum categories: %w", err)
	}
	budgets, err := m.cr.MonthlyBudgetsByMonth(ctx, userID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get budgets: %w", err)
	}
	cats, err := m.cr.ActiveCategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	names := make(map[int]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	reports := make(map[int]*CategoryReport)
	order := make([]int, 0, len(sums)+len(budgets))

	for _, s := range sums {
		if s.CategoryID == nil {
			continue
		}
		id := *s.CategoryID
		reports[id] = &CategoryReport{Name: names[id], SpentCLP: s.Total}
		order = append(order, id)
	}
	for _, b := range budgets {
		r, ok := reports[b.CategoryID]
		if !ok {
			name := names[b.CategoryID]
			if b.Category != nil {
				name = b.Category.Name
			}
			r = &CategoryReport{Name: name}
			reports[b.CategoryID] = r
			order = append(order, b.CategoryID)
		}
		r.BudgetCLP = b.AmountCLP
		r.HasBudget = true
	}

	summary := &MonthlySummary{
		Month:      from,
		IncomeCLP:  income,
		ExpenseCLP: expense,
	}
	for _, id := range order {
		summary.Categories = append(summary.Categories, *reports[id])
	}
	return summary, nil
}
