package db

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

// Supported currencies. CLP is the base currency; every record is
// normalized to CLP on commit.
const (
	CurrencyCLP = "CLP"
	CurrencyUSD = "USD"
)

// Loan directions.
const (
	DirectionLent     = "lent"
	DirectionBorrowed = "borrowed"
)

// Loan statuses.
const (
	LoanStatusActive   = "active"
	LoanStatusClosed   = "closed"
	LoanStatusCanceled = "canceled"
)

// Loan installment frequencies.
const (
	FreqMonthly  = "monthly"
	FreqWeekly   = "weekly"
	FreqBiweekly = "biweekly"
)

// Installment statuses.
const (
	InstallmentPending = "pending"
	InstallmentPaid    = "paid"
)

// User is a bot user profile. Telegram linkage lives directly on the
// profile: a pending link code is swapped for telegram ids on /start.
type User struct {
	tableName struct{} `pg:"users,alias:t,discard_unknown_columns"`

	ID               int        `pg:"id,pk"`
	Login            string     `pg:"login,use_zero"`
	Language         string     `pg:"language,use_zero"`
	TelegramID       *int64     `pg:"telegramId"`
	TelegramChatID   *int64     `pg:"telegramChatId"`
	TelegramLinkCode *string    `pg:"telegramLinkCode"`
	LinkedAt         *time.Time `pg:"linkedAt"`
	CreatedAt        time.Time  `pg:"createdAt,default:now()"`
}

// Card is a credit/debit card created on the web, read-mostly for the bot.
// BalanceCLP tracks the outstanding amount a card payment is applied to.
type Card struct {
	tableName struct{} `pg:"cards,alias:t,discard_unknown_columns"`

	ID          int             `pg:"id,pk"`
	UserID      int             `pg:"userId,use_zero"`
	Name        string          `pg:"name,use_zero"`
	Bank        string          `pg:"bank,use_zero"`
	Brand       string          `pg:"brand,use_zero"`
	Last4       string          `pg:"last4,use_zero"`
	Currency    string          `pg:"currency,use_zero"`
	CreditLimit decimal.Decimal `pg:"creditLimit,use_zero"`
	BalanceCLP  decimal.Decimal `pg:"balanceClp,use_zero"`
	BillingDay  int             `pg:"billingDay,use_zero"`
	DueDay      int             `pg:"dueDay,use_zero"`
	IsActive    bool            `pg:"isActive,use_zero"`
	CreatedAt   time.Time       `pg:"createdAt,default:now()"`
	UpdatedAt   time.Time       `pg:"updatedAt,default:now()"`
}

// Label renders the card the way it is shown in numbered prompts.
func (c *Card) Label() string {
	var parts []string
	if c.Bank != "" {
		parts = append(parts, c.Bank)
	}
	if c.Brand != "" {
		parts = append(parts, c.Brand)
	}
	if c.Last4 != "" {
		parts = append(parts, "****"+c.Last4)
	}
	joined := strings.Join(parts, " · ")
	if c.Name != "" {
		if joined != "" {
			return c.Name + " · " + joined
		}
		return c.Name
	}
	return joined
}

// BudgetCategory groups expenses by comma-separated match keywords.
type BudgetCategory struct {
	tableName struct{} `pg:"budgetCategories,alias:t,discard_unknown_columns"`

	ID            int       `pg:"id,pk"`
	UserID        int       `pg:"userId,use_zero"`
	Name          string    `pg:"name,use_zero"`
	MatchKeywords string    `pg:"matchKeywords,use_zero"`
	IsActive      bool      `pg:"isActive,use_zero"`
	CreatedAt     time.Time `pg:"createdAt,default:now()"`
}

// Keywords splits MatchKeywords into trimmed non-empty entries.
func (c *BudgetCategory) Keywords() []string {
	raw := strings.TrimSpace(c.MatchKeywords)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MonthlyBudget is the CLP budget of a category for one month.
// Month is always the first day of the month.
type MonthlyBudget struct {
	tableName struct{} `pg:"monthlyBudgets,alias:t,discard_unknown_columns"`

	ID         int             `pg:"id,pk"`
	UserID     int             `pg:"userId,use_zero"`
	CategoryID int             `pg:"categoryId,use_zero"`
	Month      time.Time       `pg:"month,type:date,use_zero"`
	AmountCLP  decimal.Decimal `pg:"amountClp,use_zero"`
	Note       string          `pg:"note,use_zero"`
	CreatedAt  time.Time       `pg:"createdAt,default:now()"`
	UpdatedAt  time.Time       `pg:"updatedAt,default:now()"`

	Category *BudgetCategory `pg:"rel:has-one,fk:categoryId"`
}

// Transaction is a committed ledger record. The pair (userId,
// telegramMessageId) is unique: it is the idempotency key for commits
// originating from the bot.
type Transaction struct {
	tableName struct{} `pg:"transactions,alias:t,discard_unknown_columns"`

	ID                int             `pg:"id,pk"`
	UserID            int             `pg:"userId,use_zero"`
	Kind              string          `pg:"kind,use_zero"`
	AmountOriginal    decimal.Decimal `pg:"amountOriginal,use_zero"`
	CurrencyOriginal  string          `pg:"currencyOriginal,use_zero"`
	AmountCLP         decimal.Decimal `pg:"amountClp,use_zero"`
	FxRate            decimal.Decimal `pg:"fxRate,use_zero"`
	FxSource          string          `pg:"fxSource,use_zero"`
	FxTimestamp       *time.Time      `pg:"fxTimestamp"`
	Description       string          `pg:"description,use_zero"`
	Source            string          `pg:"source,use_zero"`
	TelegramMessageID *int64          `pg:"telegramMessageId"`
	CardID            *int            `pg:"cardId"`
	CategoryID        *int            `pg:"categoryId"`
	OccurredAt        time.Time       `pg:"occurredAt,use_zero"`
	CreatedAt         time.Time       `pg:"createdAt,default:now()"`

	Card     *Card           `pg:"rel:has-one,fk:cardId"`
	Category *BudgetCategory `pg:"rel:has-one,fk:categoryId"`

	// BalanceApplied reports whether a card payment reached the card's
	// tracked balance. Not persisted.
	BalanceApplied bool `pg:"-"`
}

// Loan is money lent to (or borrowed from) a person, split into
// installments. The pair (userId, telegramOriginMessageId) is unique:
// it is the idempotency key for loans created from the bot.
type Loan struct {
	tableName struct{} `pg:"loans,alias:t,discard_unknown_columns"`

	ID                      int             `pg:"id,pk"`
	UserID                  int             `pg:"userId,use_zero"`
	Direction               string          `pg:"direction,use_zero"`
	PersonName              string          `pg:"personName,use_zero"`
	PrincipalOriginal       decimal.Decimal `pg:"principalOriginal,use_zero"`
	CurrencyOriginal        string          `pg:"currencyOriginal,use_zero"`
	PrincipalCLP            decimal.Decimal `pg:"principalClp,use_zero"`
	StartDate               time.Time       `pg:"startDate,type:date,use_zero"`
	FirstDueDate            *time.Time      `pg:"firstDueDate,type:date"`
	InstallmentsCount       int             `pg:"installmentsCount,use_zero"`
	Frequency               string          `pg:"frequency,use_zero"`
	Note                    string          `pg:"note,use_zero"`
	Status                  string          `pg:"status,use_zero"`
	TelegramOriginMessageID *int64          `pg:"telegramOriginMessageId"`
	CreatedAt               time.Time       `pg:"createdAt,default:now()"`
	UpdatedAt               time.Time       `pg:"updatedAt,default:now()"`

	Installments []LoanInstallment `pg:"rel:has-many,join_fk:loanId"`
}

// LoanInstallment is one due payment of a loan.
type LoanInstallment struct {
	tableName struct{} `pg:"loanInstallments,alias:t,discard_unknown_columns"`

	ID             int             `pg:"id,pk"`
	LoanID         int             `pg:"loanId,use_zero"`
	N              int             `pg:"n,use_zero"`
	DueDate        time.Time       `pg:"dueDate,type:date,use_zero"`
	AmountOriginal decimal.Decimal `pg:"amountOriginal,use_zero"`
	Status         string          `pg:"status,use_zero"`
}

// Conversation is the per-user dialogue state. Payload is an opaque
// JSON document owned by the bot layer; the repository never looks
// inside it.
type Conversation struct {
	tableName struct{} `pg:"conversations,alias:t,discard_unknown_columns"`

	ID        int             `pg:"id,pk"`
	UserID    int             `pg:"userId,use_zero"`
	State     string          `pg:"state,use_zero"`
	Payload   json.RawMessage `pg:"payload,type:jsonb"`
	UpdatedAt time.Time       `pg:"updatedAt,default:now()"`
}
