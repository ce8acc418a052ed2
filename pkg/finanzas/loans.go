package finanzas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/go-pg/pg/v10"
	"github.com/shopspring/decimal"
)

// Installment count bounds for a loan.
const (
	MinInstallments = 1
	MaxInstallments = 120
)

// LoanDraft is a confirmed loan waiting for commit.
type LoanDraft struct {
	Direction    string
	PersonName   string
	Principal    decimal.Decimal
	Currency     string
	Installments int
	Frequency    string
	FirstDueDate *time.Time
	Note         string
}

// CreateLoan persists a loan with its expanded installment schedule,
// exactly once per inbound telegram message. Loan and installments are
// written in one database transaction.
func (m *Manager) CreateLoan(ctx context.Context, user *db.User, messageID int64, d LoanDraft) (*db.Loan, bool, error) {
	if d.Installments < MinInstallments || d.Installments > MaxInstallments {
		return nil, false, fmt.Errorf("installments count %d out of range", d.Installments)
	}

	frequency := d.Frequency
	if frequency == "" {
		frequency = db.FreqMonthly
	}

	conv := m.NormalizeToCLP(ctx, d.Principal, d.Currency)

	loan := &db.Loan{
		UserID:                  user.ID,
		Direction:               d.Direction,
		PersonName:              d.PersonName,
		PrincipalOriginal:       QuantizeAmount(d.Principal, d.Currency),
		CurrencyOriginal:        d.Currency,
		PrincipalCLP:            conv.AmountCLP,
		StartDate:               time.Now().Truncate(24 * time.Hour),
		FirstDueDate:            d.FirstDueDate,
		InstallmentsCount:       d.Installments,
		Frequency:               frequency,
		Note:                    d.Note,
		Status:                  db.LoanStatusActive,
		TelegramOriginMessageID: &messageID,
	}

	created := false
	err := m.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		cr := m.cr.WithTransaction(tx)

		ok, err := cr.AddLoanIdempotent(ctx, loan)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		created = true

		installments := ExpandInstallments(loan)
		if err := cr.AddLoanInstallments(ctx, installments); err != nil {
			return err
		}
		loan.Installments = installments
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create loan: %w", err)
	}

	if !created {
		existing, err := m.cr.LoanByTelegramMessageID(ctx, user.ID, messageID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to fetch committed loan: %w", err)
		}
		if existing == nil {
			return nil, false, errors.New("conflicting loan disappeared")
		}
		return existing, false, nil
	}

	m.log.Print(ctx, "loan created",
		"loan_id", loan.ID, "user_id", user.ID, "direction", loan.Direction,
		"person", loan.PersonName, "installments", loan.InstallmentsCount)

	return loan, true, nil
}

// ExpandInstallments splits the loan principal into its schedule. Each
// installment gets the principal divided evenly and rounded to the
// currency's scale; the last one absorbs the rounding remainder so the
// column sum equals the principal exactly. Due dates start at
// FirstDueDate (one period after the start date when absent) and step
// by the loan frequency.
func ExpandInstallments(loan *db.Loan) []db.LoanInstallment {
	count := loan.InstallmentsCount
	principal := loan.PrincipalOriginal

	per := QuantizeAmount(principal.Div(decimal.NewFromInt(int64(count))), loan.CurrencyOriginal)
	last := principal.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))

	firstDue := nextDueDate(loan.StartDate, loan.Frequency)
	if loan.FirstDueDate != nil {
		firstDue = *loan.FirstDueDate
	}

	installments := make([]db.LoanInstallment, count)
	due := firstDue
	for i := 0; i < count; i++ {
		amount := per
		if i == count-1 {
			amount = last
		}
		installments[i] = db.LoanInstallment{
			LoanID:         loan.ID,
			N:              i + 1,
			DueDate:        due,
			AmountOriginal: amount,
			Status:         db.InstallmentPending,
		}
		due = nextDueDate(due, loan.Frequency)
	}
	return installments
}

func nextDueDate(from time.Time, frequency string) time.Time {
	switch frequency {
	case db.FreqWeekly:
		return from.AddDate(0, 0, 7)
	case db.FreqBiweekly:
		return from.AddDate(0, 0, 14)
	default:
		return AddMonthsClamped(from, 1)
	}
}

// AddMonthsClamped advances by whole months, clamping the day to the
// target month's length, so Jan 31 plus one month is Feb 28 (or 29),
// not Mar 3.
func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if lastDay := first.AddDate(0, 1, -1).Day(); day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// ActiveLoans returns the user's newest active loans.
func (m *Manager) ActiveLoans(ctx context.Context, userID, limit int) ([]db.Loan, error) {
	loans, err := m.cr.ActiveLoansByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans: %w", err)
	}
	return loans, nil
}
