package db

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/shopspring/decimal"
)

type CommonRepo struct {
	db orm.DB
}

// NewCommonRepo returns new repository
func NewCommonRepo(db orm.DB) CommonRepo {
	return CommonRepo{db: db}
}

// WithTransaction is a function that wraps CommonRepo with pg.Tx transaction.
func (cr CommonRepo) WithTransaction(tx *pg.Tx) CommonRepo {
	cr.db = tx
	return cr
}

func noRows(err error) bool {
	return errors.Is(err, pg.ErrNoRows) || errors.Is(err, io.EOF)
}

/*** User ***/

// UserByTelegramID is a function that returns linked User by telegram user id or nil.
func (cr CommonRepo) UserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	user := &User{}
	err := cr.db.ModelContext(ctx, user).Where(`"telegramId" = ?`, telegramID).First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// UserByLinkCode is a function that returns User holding a pending link code or nil.
func (cr CommonRepo) UserByLinkCode(ctx context.Context, code string) (*User, error) {
	user := &User{}
	err := cr.db.ModelContext(ctx, user).Where(`"telegramLinkCode" = ?`, code).First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser updates User in DB.
func (cr CommonRepo) UpdateUser(ctx context.Context, user *User, columns ...string) (bool, error) {
	q := cr.db.ModelContext(ctx, user).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	}
	res, err := q.Update()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

/*** Card ***/

// ActiveCardsByUser returns the user's active cards in stable prompt order.
func (cr CommonRepo) ActiveCardsByUser(ctx context.Context, userID int) ([]Card, error) {
	var cards []Card
	err := cr.db.ModelContext(ctx, &cards).
		Where(`"userId" = ?`, userID).
		Where(`"isActive" = TRUE`).
		Order("name ASC", "id ASC").
		Select()
	return cards, err
}

// CardByID is a function that returns an active Card owned by user or nil.
func (cr CommonRepo) CardByID(ctx context.Context, userID, id int) (*Card, error) {
	card := &Card{}
	err := cr.db.ModelContext(ctx, card).
		Where(`"userId" = ?`, userID).
		Where(`"isActive" = TRUE`).
		Where("id = ?", id).
		First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return card, nil
}

// UpdateCardBalance writes the card's tracked CLP balance.
func (cr CommonRepo) UpdateCardBalance(ctx context.Context, card *Card) (bool, error) {
	res, err := cr.db.ModelContext(ctx, card).
		WherePK().
		Column("balanceClp").
		Set(`"updatedAt" = now()`).
		Update()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

/*** BudgetCategory ***/

// ActiveCategoriesByUser returns active categories in prompt order.
func (cr CommonRepo) ActiveCategoriesByUser(ctx context.Context, userID int) ([]BudgetCategory, error) {
	var cats []BudgetCategory
	err := cr.db.ModelContext(ctx, &cats).
		Where(`"userId" = ?`, userID).
		Where(`"isActive" = TRUE`).
		Order("name ASC", "id ASC").
		Select()
	return cats, err
}

// CategoryByID is a function that returns BudgetCategory owned by user or nil.
func (cr CommonRepo) CategoryByID(ctx context.Context, userID, id int) (*BudgetCategory, error) {
	cat := &BudgetCategory{}
	err := cr.db.ModelContext(ctx, cat).
		Where(`"userId" = ?`, userID).
		Where("id = ?", id).
		First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return cat, nil
}

// AddCategory adds BudgetCategory to DB.
func (cr CommonRepo) AddCategory(ctx context.Context, cat *BudgetCategory) (*BudgetCategory, error) {
	_, err := cr.db.ModelContext(ctx, cat).ExcludeColumn("createdAt").Insert()
	return cat, err
}

// UpdateCategoryKeywords updates only the matchKeywords column.
func (cr CommonRepo) UpdateCategoryKeywords(ctx context.Context, cat *BudgetCategory) (bool, error) {
	res, err := cr.db.ModelContext(ctx, cat).WherePK().Column("matchKeywords").Update()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

/*** MonthlyBudget ***/

// MonthlyBudgetsByMonth returns the user's budgets for one month with categories joined.
func (cr CommonRepo) MonthlyBudgetsByMonth(ctx context.Context, userID int, month time.Time) ([]MonthlyBudget, error) {
	var buds []MonthlyBudget
	err := cr.db.ModelContext(ctx, &buds).
		Relation("Category").
		Where(`t."userId" = ?`, userID).
		Where("t.month = ?", month).
		Order("id ASC").
		Select()
	return buds, err
}

// UpsertMonthlyBudget inserts or replaces the budget amount for
// (user, category, month).
func (cr CommonRepo) UpsertMonthlyBudget(ctx context.Context, bud *MonthlyBudget) error {
	_, err := cr.db.ModelContext(ctx, bud).
		OnConflict(`("userId", "categoryId", month) DO UPDATE`).
		Set(`"amountClp" = EXCLUDED."amountClp", "updatedAt" = now()`).
		Insert()
	return err
}

/*** Transaction ***/

// AddTransactionIdempotent inserts the transaction keyed by
// (userId, telegramMessageId). A conflict inserts nothing and reports
// created=false; there is no read-check race between duplicate
// deliveries because the database resolves the conflict.
func (cr CommonRepo) AddTransactionIdempotent(ctx context.Context, tx *Transaction) (created bool, err error) {
	res, err := cr.db.ModelContext(ctx, tx).
		ExcludeColumn("createdAt").
		OnConflict(`("userId", "telegramMessageId") DO NOTHING`).
		Insert()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// TransactionByTelegramMessageID returns the committed record for an inbound message or nil.
func (cr CommonRepo) TransactionByTelegramMessageID(ctx context.Context, userID int, messageID int64) (*Transaction, error) {
	tx := &Transaction{}
	err := cr.db.ModelContext(ctx, tx).
		Where(`"userId" = ?`, userID).
		Where(`"telegramMessageId" = ?`, messageID).
		First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionByID is a function that returns user's Transaction by ID or nil.
func (cr CommonRepo) TransactionByID(ctx context.Context, userID, id int) (*Transaction, error) {
	tx := &Transaction{}
	err := cr.db.ModelContext(ctx, tx).
		Where(`"userId" = ?`, userID).
		Where("id = ?", id).
		First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return tx, nil
}

// LastTransaction returns the user's most recent Transaction or nil.
func (cr CommonRepo) LastTransaction(ctx context.Context, userID int) (*Transaction, error) {
	tx := &Transaction{}
	err := cr.db.ModelContext(ctx, tx).
		Where(`"userId" = ?`, userID).
		Order(`"occurredAt" DESC`, "id DESC").
		First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return tx, nil
}

// DeleteTransaction removes the record permanently.
func (cr CommonRepo) DeleteTransaction(ctx context.Context, tx *Transaction) (bool, error) {
	res, err := cr.db.ModelContext(ctx, tx).WherePK().Delete()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// TransactionsBetween returns transactions with occurredAt inside
// [from, to) in chronological order, up to limit rows.
func (cr CommonRepo) TransactionsBetween(ctx context.Context, userID int, from, to time.Time, limit int) ([]Transaction, error) {
	var txs []Transaction
	err := cr.db.ModelContext(ctx, &txs).
		Where(`"userId" = ?`, userID).
		Where(`"occurredAt" >= ?`, from).
		Where(`"occurredAt" < ?`, to).
		Order(`"occurredAt" ASC`, "id ASC").
		Limit(limit).
		Select()
	return txs, err
}

// SumAmountCLP returns the CLP total of one kind inside [from, to).
func (cr CommonRepo) SumAmountCLP(ctx context.Context, userID int, kind string, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := cr.db.ModelContext(ctx, (*Transaction)(nil)).
		ColumnExpr(`coalesce(sum("amountClp"), 0)`).
		Where(`"userId" = ?`, userID).
		Where("kind = ?", kind).
		Where(`"occurredAt" >= ?`, from).
		Where(`"occurredAt" < ?`, to).
		Select(&sum)
	return sum, err
}

// CategorySum is one row of a per-category expense rollup.
type CategorySum struct {
	CategoryID *int            `pg:"categoryId"`
	Total      decimal.Decimal `pg:"total"`
}

// SumExpensesByCategory returns CLP expense totals per category inside
// [from, to). Uncategorized spending lands in the nil-category row.
func (cr CommonRepo) SumExpensesByCategory(ctx context.Context, userID int, from, to time.Time) ([]CategorySum, error) {
	var sums []CategorySum
	err := cr.db.ModelContext(ctx, (*Transaction)(nil)).
		ColumnExpr(`"categoryId"`).
		ColumnExpr(`sum("amountClp") AS total`).
		Where(`"userId" = ?`, userID).
		Where("kind = ?", KindExpense).
		Where(`"occurredAt" >= ?`, from).
		Where(`"occurredAt" < ?`, to).
		GroupExpr(`"categoryId"`).
		Select(&sums)
	return sums, err
}

/*** Loan ***/

// AddLoanIdempotent inserts the loan keyed by
// (userId, telegramOriginMessageId). A conflict inserts nothing and
// reports created=false, the same contract as AddTransactionIdempotent.
func (cr CommonRepo) AddLoanIdempotent(ctx context.Context, loan *Loan) (created bool, err error) {
	res, err := cr.db.ModelContext(ctx, loan).
		ExcludeColumn("createdAt").
		OnConflict(`("userId", "telegramOriginMessageId") DO NOTHING`).
		Insert()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// LoanByTelegramMessageID returns the loan created from an inbound message or nil.
func (cr CommonRepo) LoanByTelegramMessageID(ctx context.Context, userID int, messageID int64) (*Loan, error) {
	loan := &Loan{}
	err := cr.db.ModelContext(ctx, loan).
		Where(`"userId" = ?`, userID).
		Where(`"telegramOriginMessageId" = ?`, messageID).
		First()
	if noRows(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return loan, nil
}

// AddLoanInstallments inserts the expanded installment rows.
func (cr CommonRepo) AddLoanInstallments(ctx context.Context, installments []LoanInstallment) error {
	if len(installments) == 0 {
		return nil
	}
	_, err := cr.db.ModelContext(ctx, &installments).Insert()
	return err
}

// ActiveLoansByUser returns newest-first active loans, up to limit rows.
func (cr CommonRepo) ActiveLoansByUser(ctx context.Context, userID, limit int) ([]Loan, error) {
	var loans []Loan
	err := cr.db.ModelContext(ctx, &loans).
		Where(`"userId" = ?`, userID).
		Where("status = ?", LoanStatusActive).
		Order("id DESC").
		Limit(limit).
		Select()
	return loans, err
}

/*** Conversation ***/

// ConversationByUser returns the user's conversation row, creating an
// empty one on first contact.
func (cr CommonRepo) ConversationByUser(ctx context.Context, userID int) (*Conversation, error) {
	conv := &Conversation{}
	err := cr.db.ModelContext(ctx, conv).Where(`"userId" = ?`, userID).First()
	if err == nil {
		return conv, nil
	}
	if !noRows(err) {
		return nil, err
	}

	conv = &Conversation{UserID: userID, State: "none", Payload: []byte("{}")}
	_, err = cr.db.ModelContext(ctx, conv).
		ExcludeColumn("updatedAt").
		OnConflict(`("userId") DO UPDATE SET "userId" = EXCLUDED."userId"`).
		Returning("*").
		Insert()
	return conv, err
}

// SaveConversation persists state and payload of the conversation row.
func (cr CommonRepo) SaveConversation(ctx context.Context, conv *Conversation) error {
	_, err := cr.db.ModelContext(ctx, conv).
		WherePK().
		Column("state", "payload").
		Set(`"updatedAt" = now()`).
		Update()
	return err
}
