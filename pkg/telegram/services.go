package telegram

import (
	"context"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"
	"github.com/luisgil43/finanzasbot/pkg/finanzas"

	"github.com/shopspring/decimal"
	"github.com/vmkteam/embedlog"
)

// Ledger is the domain surface the dialogue drives. *finanzas.Manager
// implements it; tests plug in an in-memory fake.
type Ledger interface {
	UserByTelegramID(ctx context.Context, telegramID int64) (*db.User, error)
	LinkUser(ctx context.Context, code string, telegramID, chatID int64) (*db.User, error)
	RefreshChatID(ctx context.Context, user *db.User, chatID int64) error
	SetUserLanguage(ctx context.Context, user *db.User, language string) error

	ActiveCards(ctx context.Context, userID int) ([]db.Card, error)
	CardByID(ctx context.Context, userID, cardID int) (*db.Card, error)

	ActiveCategories(ctx context.Context, userID int) ([]db.BudgetCategory, error)
	CategoryByID(ctx context.Context, userID, categoryID int) (*db.BudgetCategory, error)
	CreateCategory(ctx context.Context, userID int, name, keyword string) (*db.BudgetCategory, error)
	AppendCategoryKeyword(ctx context.Context, cat *db.BudgetCategory, keyword string) error

	MonthlyBudgets(ctx context.Context, userID int, day time.Time) ([]db.MonthlyBudget, error)
	SetMonthlyBudget(ctx context.Context, userID, categoryID int, day time.Time, amountCLP decimal.Decimal) error

	Conversation(ctx context.Context, userID int) (*db.Conversation, error)
	SaveConversation(ctx context.Context, conv *db.Conversation) error

	NormalizeToCLP(ctx context.Context, amount decimal.Decimal, currency string) finanzas.Conversion
	CommitTransaction(ctx context.Context, user *db.User, messageID int64, d finanzas.Draft) (*db.Transaction, bool, error)
	DeleteTransaction(ctx context.Context, userID, txID int) (*db.Transaction, error)
	DeleteLastTransaction(ctx context.Context, userID int) (*db.Transaction, error)

	MovementsByDay(ctx context.Context, userID int, day time.Time) ([]db.Transaction, error)
	MovementsBetween(ctx context.Context, userID int, from, to time.Time) ([]db.Transaction, error)
	Summary(ctx context.Context, userID int, month time.Time) (*finanzas.MonthlySummary, error)

	CreateLoan(ctx context.Context, user *db.User, messageID int64, d finanzas.LoanDraft) (*db.Loan, bool, error)
	ActiveLoans(ctx context.Context, userID, limit int) ([]db.Loan, error)
}

var _ Ledger = (*finanzas.Manager)(nil)

// TextExtractor turns receipt photos and documents into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, filename, language string) (string, error)
}

// MockTextExtractor is a mock implementation of TextExtractor
type MockTextExtractor struct {
	logger embedlog.Logger
}

// NewMockTextExtractor creates a new mock text extractor
func NewMockTextExtractor(logger embedlog.Logger) *MockTextExtractor {
	return &MockTextExtractor{logger: logger}
}

// ExtractText mocks OCR of an image
func (m *MockTextExtractor) ExtractText(ctx context.Context, data []byte, filename, language string) (string, error) {
	m.logger.Print(ctx, "mock ocr extract", "file", filename, "bytes", len(data), "language", language)
	return "SUPERMERCADO EJEMPLO\nTOTAL $12.990", nil
}
