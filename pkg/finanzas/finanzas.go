// Package finanzas holds the ledger domain logic: account linking,
// cards, budget categories, currency normalization, idempotent
// transaction commits, loans and reports. The telegram layer talks to
// this package only.
package finanzas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/vmkteam/embedlog"
)

type Manager struct {
	cr  db.CommonRepo
	db  db.DB
	fx  RateSource
	log embedlog.Logger
}

func NewManager(dbc db.DB, fx RateSource, log embedlog.Logger) *Manager {
	return &Manager{
		cr:  db.NewCommonRepo(dbc),
		db:  dbc,
		fx:  fx,
		log: log,
	}
}

// User methods

// UserByTelegramID returns the linked user or nil when this telegram
// account is unknown.
func (m *Manager) UserByTelegramID(ctx context.Context, telegramID int64) (*db.User, error) {
	user, err := m.cr.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// LinkUser consumes a one-time link code from /start and binds the
// telegram identity to the profile holding that code. A wrong or
// already consumed code returns (nil, nil).
func (m *Manager) LinkUser(ctx context.Context, code string, telegramID, chatID int64) (*db.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	user, err := m.cr.UserByLinkCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to search link code: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	now := time.Now()
	user.TelegramID = &telegramID
	user.TelegramChatID = &chatID
	user.TelegramLinkCode = nil
	user.LinkedAt = &now

	if _, err = m.cr.UpdateUser(ctx, user, "telegramId", "telegramChatId", "telegramLinkCode", "linkedAt"); err != nil {
		return nil, fmt.Errorf("failed to link user: %w", err)
	}

	m.log.Print(ctx, "telegram account linked", "user_id", user.ID, "telegram_user_id", telegramID)

	return user, nil
}

// RefreshChatID records the chat a linked user last wrote from, so
// scheduled alerts keep reaching them after a chat migration. No-op
// when the stored id already matches.
func (m *Manager) RefreshChatID(ctx context.Context, user *db.User, chatID int64) error {
	if user.TelegramChatID != nil && *user.TelegramChatID == chatID {
		return nil
	}
	user.TelegramChatID = &chatID
	if _, err := m.cr.UpdateUser(ctx, user, "telegramChatId"); err != nil {
		return fmt.Errorf("failed to update chat id: %w", err)
	}
	return nil
}

// SetUserLanguage persists the profile language ("es" or "en").
func (m *Manager) SetUserLanguage(ctx context.Context, user *db.User, language string) error {
	user.Language = language
	if _, err := m.cr.UpdateUser(ctx, user, "language"); err != nil {
		return fmt.Errorf("failed to update language: %w", err)
	}
	return nil
}

// Card methods

// ActiveCards returns the user's active cards in stable order.
func (m *Manager) ActiveCards(ctx context.Context, userID int) ([]db.Card, error) {
	cards, err := m.cr.ActiveCardsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	return cards, nil
}

// CardByID returns the user's active card or nil.
func (m *Manager) CardByID(ctx context.Context, userID, cardID int) (*db.Card, error) {
	card, err := m.cr.CardByID(ctx, userID, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// Category methods

// ActiveCategories returns the user's active budget categories.
func (m *Manager) ActiveCategories(ctx context.Context, userID int) ([]db.BudgetCategory, error) {
	cats, err := m.cr.ActiveCategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return cats, nil
}

// CategoryByID returns the user's category or nil.
func (m *Manager) CategoryByID(ctx context.Context, userID, categoryID int) (*db.BudgetCategory, error) {
	cat, err := m.cr.CategoryByID(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return cat, nil
}

// CreateCategory creates a category seeded with one match keyword.
func (m *Manager) CreateCategory(ctx context.Context, userID int, name, keyword string) (*db.BudgetCategory, error) {
	cat := &db.BudgetCategory{
		UserID:        userID,
		Name:          strings.TrimSpace(name),
		MatchKeywords: strings.ToLower(strings.TrimSpace(keyword)),
		IsActive:      true,
	}

	if _, err := m.cr.AddCategory(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	m.log.Print(ctx, "category created", "category_id", cat.ID, "user_id", userID, "name", cat.Name)

	return cat, nil
}

// AppendCategoryKeyword adds a keyword to the category's match list.
// Appending an already present keyword is a no-op, so teaching the
// same word twice never bloats the list.
func (m *Manager) AppendCategoryKeyword(ctx context.Context, cat *db.BudgetCategory, keyword string) error {
	if !mergeKeyword(cat, keyword) {
		return nil
	}
	if _, err := m.cr.UpdateCategoryKeywords(ctx, cat); err != nil {
		return fmt.Errorf("failed to update category keywords: %w", err)
	}
	return nil
}

// mergeKeyword appends the lowercased keyword onto the category's
// comma separated match list and reports whether the list changed.
func mergeKeyword(cat *db.BudgetCategory, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}

	for _, existing := range cat.Keywords() {
		if strings.EqualFold(existing, keyword) {
			return false
		}
	}

	if cat.MatchKeywords == "" {
		cat.MatchKeywords = keyword
	} else {
		cat.MatchKeywords += "," + keyword
	}
	return true
}

// Budget methods

// SetMonthlyBudget inserts or replaces the CLP budget of a category
// for the month containing day.
func (m *Manager) SetMonthlyBudget(ctx context.Context, userID, categoryID int, day time.Time, amountCLP decimal.Decimal) error {
	bud := &db.MonthlyBudget{
		UserID:     userID,
		CategoryID: categoryID,
		Month:      monthStart(day),
		AmountCLP:  amountCLP,
	}
	if err := m.cr.UpsertMonthlyBudget(ctx, bud); err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}
	return nil
}

// MonthlyBudgets returns the budgets of the month containing day.
func (m *Manager) MonthlyBudgets(ctx context.Context, userID int, day time.Time) ([]db.MonthlyBudget, error) {
	buds, err := m.cr.MonthlyBudgetsByMonth(ctx, userID, monthStart(day))
	if err != nil {
		return nil, fmt.Errorf("failed to get budgets: %w", err)
	}
	return buds, nil
}

// Conversation methods

// Conversation returns the user's dialogue row, creating it on first
// contact.
func (m *Manager) Conversation(ctx context.Context, userID int) (*db.Conversation, error) {
	conv, err := m.cr.ConversationByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// SaveConversation persists the dialogue state before any reply is
// sent, so a crash never leaves the user in a phantom state.
func (m *Manager) SaveConversation(ctx context.Context, conv *db.Conversation) error {
	if err := m.cr.SaveConversation(ctx, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

func monthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}
