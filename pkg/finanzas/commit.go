package finanzas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by delete operations when the target record
// does not exist or belongs to another user.
var ErrNotFound = errors.New("record not found")

// Draft is a fully resolved transaction waiting for commit. The bot
// layer builds it through the confirmation dialogue.
type Draft struct {
	Kind          string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CardID        *int
	CategoryID    *int
	IsCardPayment bool
	OccurredAt    time.Time
	Source        string
}

// Conversion is the CLP normalization of an original amount.
type Conversion struct {
	AmountCLP   decimal.Decimal
	FxRate      decimal.Decimal
	FxSource    string
	FxTimestamp *time.Time
}

// QuantizeAmount rounds an amount to the currency's scale: CLP has no
// fraction, USD keeps cents.
func QuantizeAmount(amount decimal.Decimal, currency string) decimal.Decimal {
	if currency == db.CurrencyUSD {
		return amount.Round(2)
	}
	return amount.Round(0)
}

// NormalizeToCLP converts an original amount to integer CLP. CLP
// amounts pass through with rate 1; USD amounts use the current rate,
// stored rounded to 4 decimal places next to its source and quote time
// so the record stays auditable.
func (m *Manager) NormalizeToCLP(ctx context.Context, amount decimal.Decimal, currency string) Conversion {
	if currency != db.CurrencyUSD {
		return Conversion{
			AmountCLP: amount.Round(0),
			FxRate:    decimal.NewFromInt(1),
			FxSource:  "none",
		}
	}

	rate := m.fx.USDToCLP(ctx)
	ts := rate.Timestamp
	return Conversion{
		AmountCLP:   amount.Mul(rate.Value).Round(0),
		FxRate:      rate.Value.Round(4),
		FxSource:    rate.Source,
		FxTimestamp: &ts,
	}
}

// CommitTransaction persists a confirmed draft exactly once per inbound
// telegram message. A redelivered confirmation finds the existing row
// and reports created=false; card balances are only touched on the
// first delivery.
func (m *Manager) CommitTransaction(ctx context.Context, user *db.User, messageID int64, d Draft) (*db.Transaction, bool, error) {
	conv := m.NormalizeToCLP(ctx, d.Amount, d.Currency)

	occurredAt := d.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	source := d.Source
	if source == "" {
		source = "telegram"
	}

	tx := &db.Transaction{
		UserID:            user.ID,
		Kind:              d.Kind,
		AmountOriginal:    QuantizeAmount(d.Amount, d.Currency),
		CurrencyOriginal:  d.Currency,
		AmountCLP:         conv.AmountCLP,
		FxRate:            conv.FxRate,
		FxSource:          conv.FxSource,
		FxTimestamp:       conv.FxTimestamp,
		Description:       d.Description,
		Source:            source,
		TelegramMessageID: &messageID,
		CardID:            d.CardID,
		CategoryID:        d.CategoryID,
		OccurredAt:        occurredAt,
	}

	created, err := m.cr.AddTransactionIdempotent(ctx, tx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if !created {
		existing, err := m.cr.TransactionByTelegramMessageID(ctx, user.ID, messageID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to fetch committed transaction: %w", err)
		}
		if existing == nil {
			return nil, false, errors.New("conflicting transaction disappeared")
		}
		return existing, false, nil
	}

	m.log.Print(ctx, "transaction committed",
		"tx_id", tx.ID, "user_id", user.ID, "kind", tx.Kind,
		"amount_clp", tx.AmountCLP.String(), "currency", tx.CurrencyOriginal)

	if d.IsCardPayment && d.CardID != nil {
		if err := m.applyCardPayment(ctx, user.ID, *d.CardID, conv.AmountCLP); err != nil {
			m.log.Error(ctx, "card payment not applied to balance", "err", err, "tx_id", tx.ID)
		} else {
			tx.BalanceApplied = true
		}
	}

	return tx, true, nil
}

// applyCardPayment lowers the card's tracked balance by the paid CLP
// amount, never below zero.
func (m *Manager) applyCardPayment(ctx context.Context, userID, cardID int, amountCLP decimal.Decimal) error {
	card, err := m.cr.CardByID(ctx, userID, cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrNotFound
	}

	card.BalanceCLP = card.BalanceCLP.Sub(amountCLP)
	if card.BalanceCLP.IsNegative() {
		card.BalanceCLP = decimal.Zero
	}

	if _, err := m.cr.UpdateCardBalance(ctx, card); err != nil {
		return err
	}
	return nil
}

// DeleteTransaction removes the user's record by id.
func (m *Manager) DeleteTransaction(ctx context.Context, userID, txID int) (*db.Transaction, error) {
	tx, err := m.cr.TransactionByID(ctx, userID, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}

	if _, err := m.cr.DeleteTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}

	m.log.Print(ctx, "transaction deleted", "tx_id", tx.ID, "user_id", userID)

	return tx, nil
}

// DeleteLastTransaction removes the user's most recent record.
func (m *Manager) DeleteLastTransaction(ctx context.Context, userID int) (*db.Transaction, error) {
	tx, err := m.cr.LastTransaction(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}

	if _, err := m.cr.DeleteTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}

	m.log.Print(ctx, "transaction deleted", "tx_id", tx.ID, "user_id", userID)

	return tx, nil
}
