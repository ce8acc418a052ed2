package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"
	"github.com/luisgil43/finanzasbot/pkg/finanzas"

	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmkteam/embedlog"
)

// fakeLedger keeps the whole domain in memory so dialogue tests can
// drive dispatch end to end without a database.
type fakeLedger struct {
	user  *db.User
	conv  *db.Conversation
	cards []db.Card
	cats  []db.BudgetCategory
	buds  []db.MonthlyBudget
	txs   []db.Transaction
	loans []db.Loan

	nextID int
}

var _ Ledger = (*fakeLedger)(nil)

func (f *fakeLedger) id() int { f.nextID++; return f.nextID }

func (f *fakeLedger) UserByTelegramID(_ context.Context, telegramID int64) (*db.User, error) {
	if f.user != nil && f.user.TelegramID != nil && *f.user.TelegramID == telegramID {
		return f.user, nil
	}
	return nil, nil
}

func (f *fakeLedger) LinkUser(context.Context, string, int64, int64) (*db.User, error) {
	return nil, nil
}

func (f *fakeLedger) RefreshChatID(context.Context, *db.User, int64) error { return nil }

func (f *fakeLedger) SetUserLanguage(_ context.Context, user *db.User, language string) error {
	user.Language = language
	return nil
}

func (f *fakeLedger) ActiveCards(context.Context, int) ([]db.Card, error) { return f.cards, nil }

func (f *fakeLedger) CardByID(_ context.Context, _, cardID int) (*db.Card, error) {
	for i := range f.cards {
		if f.cards[i].ID == cardID {
			return &f.cards[i], nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) ActiveCategories(context.Context, int) ([]db.BudgetCategory, error) {
	return f.cats, nil
}

func (f *fakeLedger) CategoryByID(_ context.Context, _, categoryID int) (*db.BudgetCategory, error) {
	for i := range f.cats {
		if f.cats[i].ID == categoryID {
			return &f.cats[i], nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) CreateCategory(_ context.Context, userID int, name, keyword string) (*db.BudgetCategory, error) {
	f.cats = append(f.cats, db.BudgetCategory{
		ID: f.id(), UserID: userID, Name: name, MatchKeywords: keyword, IsActive: true,
	})
	return &f.cats[len(f.cats)-1], nil
}

func (f *fakeLedger) AppendCategoryKeyword(_ context.Context, cat *db.BudgetCategory, keyword string) error {
	if cat.MatchKeywords == "" {
		cat.MatchKeywords = keyword
	} else {
		cat.MatchKeywords += "," + keyword
	}
	return nil
}

func (f *fakeLedger) MonthlyBudgets(context.Context, int, time.Time) ([]db.MonthlyBudget, error) {
	return f.buds, nil
}

func (f *fakeLedger) SetMonthlyBudget(_ context.Context, userID, categoryID int, day time.Time, amountCLP decimal.Decimal) error {
	f.buds = append(f.buds, db.MonthlyBudget{
		ID: f.id(), UserID: userID, CategoryID: categoryID, Month: day, AmountCLP: amountCLP,
	})
	return nil
}

func (f *fakeLedger) Conversation(_ context.Context, userID int) (*db.Conversation, error) {
	if f.conv == nil {
		f.conv = &db.Conversation{ID: f.id(), UserID: userID}
	}
	return f.conv, nil
}

func (f *fakeLedger) SaveConversation(context.Context, *db.Conversation) error { return nil }

func (f *fakeLedger) NormalizeToCLP(_ context.Context, amount decimal.Decimal, currency string) finanzas.Conversion {
	if currency == db.CurrencyUSD {
		rate := decimal.NewFromInt(950)
		return finanzas.Conversion{AmountCLP: amount.Mul(rate).Round(0), FxRate: rate, FxSource: "static"}
	}
	return finanzas.Conversion{AmountCLP: amount.Round(0), FxRate: decimal.NewFromInt(1), FxSource: "none"}
}

func (f *fakeLedger) CommitTransaction(_ context.Context, user *db.User, messageID int64, d finanzas.Draft) (*db.Transaction, bool, error) {
	for i := range f.txs {
		if f.txs[i].TelegramMessageID != nil && *f.txs[i].TelegramMessageID == messageID {
			return &f.txs[i], false, nil
		}
	}
	conv := f.NormalizeToCLP(context.Background(), d.Amount, d.Currency)
	f.txs = append(f.txs, db.Transaction{
		ID:                f.id(),
		UserID:            user.ID,
		Kind:              d.Kind,
		AmountOriginal:    finanzas.QuantizeAmount(d.Amount, d.Currency),
		CurrencyOriginal:  d.Currency,
		AmountCLP:         conv.AmountCLP,
		Description:       d.Description,
		Source:            d.Source,
		TelegramMessageID: &messageID,
		CardID:            d.CardID,
		CategoryID:        d.CategoryID,
		OccurredAt:        d.OccurredAt,
		BalanceApplied:    d.IsCardPayment && d.CardID != nil,
	})
	return &f.txs[len(f.txs)-1], true, nil
}

func (f *fakeLedger) DeleteTransaction(_ context.Context, userID, txID int) (*db.Transaction, error) {
	for i := range f.txs {
		if f.txs[i].ID == txID && f.txs[i].UserID == userID {
			tx := f.txs[i]
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return &tx, nil
		}
	}
	return nil, finanzas.ErrNotFound
}

func (f *fakeLedger) DeleteLastTransaction(_ context.Context, userID int) (*db.Transaction, error) {
	for i := len(f.txs) - 1; i >= 0; i-- {
		if f.txs[i].UserID == userID {
			tx := f.txs[i]
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return &tx, nil
		}
	}
	return nil, finanzas.ErrNotFound
}

func (f *fakeLedger) MovementsByDay(_ context.Context, userID int, day time.Time) ([]db.Transaction, error) {
	var out []db.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID && tx.OccurredAt.Format("2006-01-02") == day.Format("2006-01-02") {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) MovementsBetween(_ context.Context, userID int, from, to time.Time) ([]db.Transaction, error) {
	var out []db.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID && !tx.OccurredAt.Before(from) && !tx.OccurredAt.After(to.AddDate(0, 0, 1)) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) Summary(_ context.Context, _ int, month time.Time) (*finanzas.MonthlySummary, error) {
	return &finanzas.MonthlySummary{Month: month}, nil
}

func (f *fakeLedger) CreateLoan(_ context.Context, user *db.User, messageID int64, d finanzas.LoanDraft) (*db.Loan, bool, error) {
	for i := range f.loans {
		if f.loans[i].TelegramOriginMessageID != nil && *f.loans[i].TelegramOriginMessageID == messageID {
			return &f.loans[i], false, nil
		}
	}
	conv := f.NormalizeToCLP(context.Background(), d.Principal, d.Currency)
	loan := db.Loan{
		ID:                      f.id(),
		UserID:                  user.ID,
		Direction:               d.Direction,
		PersonName:              d.PersonName,
		PrincipalOriginal:       d.Principal,
		CurrencyOriginal:        d.Currency,
		PrincipalCLP:            conv.AmountCLP,
		FirstDueDate:            d.FirstDueDate,
		InstallmentsCount:       d.Installments,
		Frequency:               db.FreqMonthly,
		Status:                  db.LoanStatusActive,
		TelegramOriginMessageID: &messageID,
	}
	if d.FirstDueDate != nil {
		loan.Installments = []db.LoanInstallment{{
			LoanID: loan.ID, N: 1, DueDate: *d.FirstDueDate, Status: db.InstallmentPending,
		}}
	}
	f.loans = append(f.loans, loan)
	return &f.loans[len(f.loans)-1], true, nil
}

func (f *fakeLedger) ActiveLoans(context.Context, int, int) ([]db.Loan, error) { return f.loans, nil }

// dialog drives the route table message by message, the way updates
// arrive from Telegram.
type dialog struct {
	t     *testing.T
	b     *Bot
	api   *fakeAPI
	fl    *fakeLedger
	msgID int64
}

func newDialog(t *testing.T) *dialog {
	telegramID := int64(100)
	api := &fakeAPI{}
	fl := &fakeLedger{
		nextID: 100,
		user:   &db.User{ID: 1, Language: LangES, TelegramID: &telegramID},
	}
	b := &Bot{
		api:    api,
		logger: embedlog.NewLogger(false, false),
		fin:    fl,
		now:    func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) },
	}
	b.registerRoutes()
	return &dialog{t: t, b: b, api: api, fl: fl, msgID: 1000}
}

// say delivers one user message and returns the replies it produced.
func (d *dialog) say(text string) []string {
	d.msgID++
	return d.sayMsg(d.msgID, text)
}

func (d *dialog) sayMsg(msgID int64, text string) []string {
	before := len(d.api.sent)
	d.b.dispatch(context.Background(), &inbound{chatID: 7, telegramID: 100, messageID: msgID, text: text})
	return d.api.sent[before:]
}

func (d *dialog) state() State {
	require.NotNil(d.t, d.fl.conv)
	s := State(d.fl.conv.State)
	if s == "" {
		s = StateNone
	}
	return s
}

func TestDialogOneShotExpenseSavesWithoutCardPrompt(t *testing.T) {
	d := newDialog(t)
	d.fl.cards = []db.Card{{ID: 11, UserID: 1, Name: "Itaú", Bank: "Itaú", Last4: "9876", IsActive: true}}
	d.fl.cats = []db.BudgetCategory{{ID: 21, UserID: 1, Name: "Transporte", MatchKeywords: "uber,metro", IsActive: true}}

	// a card exists but the message never mentions one
	out := d.say("Gasto 3290 uber")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Antes de guardar")
	assert.Contains(t, out[0], "Categoría: Transporte")
	assert.Contains(t, out[0], "Tarjeta: (sin tarjeta)")
	assert.NotContains(t, out[0], "¿Con qué tarjeta")
	assert.Equal(t, StateTxConfirm, d.state())

	out = d.say("1")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Registrado")
	require.Len(t, d.fl.txs, 1)
	assert.Nil(t, d.fl.txs[0].CardID)
	require.NotNil(t, d.fl.txs[0].CategoryID)
	assert.Equal(t, 21, *d.fl.txs[0].CategoryID)
	assert.Equal(t, StateNone, d.state())
}

func TestDialogOneShotExpenseCardMentionAsks(t *testing.T) {
	d := newDialog(t)
	d.fl.cards = []db.Card{{ID: 11, UserID: 1, Name: "Itaú", Bank: "Itaú", Last4: "9876", IsActive: true}}
	d.fl.cats = []db.BudgetCategory{{ID: 22, UserID: 1, Name: "Salud", MatchKeywords: "farmacia", IsActive: true}}

	out := d.say("Gasto 5000 farmacia tarjeta")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "¿Con qué tarjeta")
	assert.Equal(t, StateTxAskCard, d.state())

	out = d.say("1")
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "Asocié el movimiento a la tarjeta")
	assert.Contains(t, out[1], "Antes de guardar")

	d.say("1")
	require.Len(t, d.fl.txs, 1)
	require.NotNil(t, d.fl.txs[0].CardID)
	assert.Equal(t, 11, *d.fl.txs[0].CardID)
}

func TestDialogUnknownKeywordAssignsCategoryBeforeSave(t *testing.T) {
	d := newDialog(t)
	d.fl.cats = []db.BudgetCategory{{ID: 21, UserID: 1, Name: "Transporte", MatchKeywords: "metro", IsActive: true}}

	out := d.say("Gasto 4000 sushi")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "No encontré una categoría")
	assert.Equal(t, StateTxCatChoice, d.state())
	assert.Empty(t, d.fl.txs)

	out = d.say("1")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Elige una categoría")
	assert.Equal(t, StateTxCatPickExisting, d.state())

	// linking lands back on the confirmation screen, nothing saved yet
	out = d.say("1")
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "a la categoría: Transporte")
	assert.Contains(t, out[1], "Antes de guardar")
	assert.Equal(t, StateTxConfirm, d.state())
	assert.Empty(t, d.fl.txs)
	assert.Contains(t, d.fl.cats[0].MatchKeywords, "sushi")

	out = d.say("guardar")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Registrado")
	require.Len(t, d.fl.txs, 1)
	require.NotNil(t, d.fl.txs[0].CategoryID)
	assert.Equal(t, 21, *d.fl.txs[0].CategoryID)
}

func TestDialogCategorySkipReturnsToConfirm(t *testing.T) {
	d := newDialog(t)

	d.say("Gasto 4000 sushi")
	out := d.say("0")
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "sin categoría")
	assert.Contains(t, out[1], "Antes de guardar")
	assert.Equal(t, StateTxConfirm, d.state())
	assert.Empty(t, d.fl.txs)
}

func TestDialogConfirmWordAnswers(t *testing.T) {
	cases := []struct {
		answer string
		state  State
	}{
		{"monto", StateTxEditAmount},
		{"editar moneda", StateTxEditCurrency},
		{"desc", StateTxEditDesc},
		{"tipo", StateTxEditKind},
	}
	for _, tc := range cases {
		t.Run(tc.answer, func(t *testing.T) {
			d := newDialog(t)
			d.say("Ingreso 500000 sueldo")
			require.Equal(t, StateTxConfirm, d.state())

			out := d.say(tc.answer)
			require.Len(t, out, 1)
			assert.Equal(t, tc.state, d.state())
		})
	}

	d := newDialog(t)
	d.say("Ingreso 500000 sueldo")
	out := d.say("si")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Registrado")
	assert.Len(t, d.fl.txs, 1)
}

func TestDialogDuplicateMessageNotRecommitted(t *testing.T) {
	d := newDialog(t)

	d.sayMsg(5000, "Ingreso 500000 sueldo")
	out := d.say("1")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Registrado")

	// Telegram redelivers the same message id
	d.sayMsg(5000, "Ingreso 500000 sueldo")
	out = d.say("1")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "ya estaba registrado")
	assert.Len(t, d.fl.txs, 1)
	assert.Equal(t, StateNone, d.state())
}

func TestDialogCancelMidFlow(t *testing.T) {
	d := newDialog(t)

	d.say("Gasto 4000 sushi")
	require.Equal(t, StateTxCatChoice, d.state())

	out := d.say("cancelar")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "cancelé")
	assert.Equal(t, StateNone, d.state())
	assert.Empty(t, d.fl.txs)
}

func TestDialogWizardAlwaysAsksCard(t *testing.T) {
	d := newDialog(t)
	d.fl.cards = []db.Card{{ID: 11, UserID: 1, Name: "Itaú", Bank: "Itaú", Last4: "9876", IsActive: true}}
	d.fl.cats = []db.BudgetCategory{{ID: 21, UserID: 1, Name: "Transporte", MatchKeywords: "uber", IsActive: true}}

	out := d.say("Gasto")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Dime el monto")
	assert.Equal(t, StateTxWizAmount, d.state())

	out = d.say("3290")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "descripción")
	assert.Equal(t, StateTxWizDesc, d.state())

	// the text never mentions a card, the wizard still asks
	out = d.say("uber")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "¿Con qué tarjeta")
	assert.Equal(t, StateTxAskCard, d.state())

	d.say("1")
	out = d.say("1")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Registrado")
	require.Len(t, d.fl.txs, 1)
	require.NotNil(t, d.fl.txs[0].CardID)
	assert.Equal(t, 11, *d.fl.txs[0].CardID)
}

func TestDialogLoanDuplicateMessage(t *testing.T) {
	d := newDialog(t)

	out := d.sayMsg(6000, "Préstamo 45000 a Rosa en 3 cuotas vence 2026-01-15")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "Préstamo creado")
	assert.Contains(t, out[0], "2026-01-15")
	require.Len(t, d.fl.loans, 1)

	out = d.sayMsg(6000, "Préstamo 45000 a Rosa en 3 cuotas vence 2026-01-15")
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "ya estaba registrado")
	assert.Len(t, d.fl.loans, 1)
}

func TestDialogMissingDraftResetsSilently(t *testing.T) {
	d := newDialog(t)
	d.fl.conv = &db.Conversation{ID: 1, UserID: 1, State: string(StateTxConfirm), Payload: []byte(`{}`)}

	out := d.say("1")
	assert.Empty(t, out)
	assert.Equal(t, StateNone, d.state())
}

func TestHandleUpdateIgnoresZeroMessageID(t *testing.T) {
	d := newDialog(t)

	d.b.HandleUpdate(context.Background(), &models.Update{
		Message: &models.Message{From: &models.User{ID: 100}, Chat: models.Chat{ID: 7}},
	})
	assert.Empty(t, d.api.sent)

	d.b.HandleUpdate(context.Background(), &models.Update{
		Message: &models.Message{ID: 42, From: &models.User{ID: 100}, Chat: models.Chat{ID: 7}, Text: "ayuda"},
	})
	assert.NotEmpty(t, d.api.sent)
}
