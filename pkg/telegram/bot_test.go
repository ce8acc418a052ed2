package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmkteam/embedlog"
)

type fakeAPI struct {
	sent []string
	fail bool
}

func (f *fakeAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	if f.fail {
		return nil, errors.New("telegram is down")
	}
	f.sent = append(f.sent, params.Text)
	return &models.Message{}, nil
}

func (f *fakeAPI) GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error) {
	return nil, errors.New("no files in tests")
}

func (f *fakeAPI) Token() string { return "test-token" }

func newTestBot(api *fakeAPI) *Bot {
	return &Bot{
		api:    api,
		logger: embedlog.NewLogger(false, false),
	}
}

func TestSendLongChunksInOrder(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	long := strings.Repeat("a", sendChunkSize) + strings.Repeat("b", 10)
	b.sendLong(context.Background(), 1, long)

	require.Len(t, api.sent, 2)
	assert.Len(t, api.sent[0], sendChunkSize)
	assert.Equal(t, strings.Repeat("b", 10), api.sent[1])
}

func TestSendLongShortMessage(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	b.sendLong(context.Background(), 1, "hola")
	require.Len(t, api.sent, 1)
	assert.Equal(t, "hola", api.sent[0])
}

func TestSendSwallowsDeliveryFailure(t *testing.T) {
	api := &fakeAPI{fail: true}
	b := newTestBot(api)

	assert.NotPanics(t, func() {
		b.send(context.Background(), 1, "hola")
	})
}

func TestHandleUpdateIgnoresNonMessages(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)

	b.HandleUpdate(context.Background(), &models.Update{})
	b.HandleUpdate(context.Background(), &models.Update{Message: &models.Message{}})
	assert.Empty(t, api.sent)
}

func TestDraftSummaryExpenseNoCard(t *testing.T) {
	b := newTestBot(&fakeAPI{})
	user := &db.User{ID: 1, Language: LangES}
	d := &DraftPayload{
		Kind:            db.KindExpense,
		Amount:          decimal.NewFromInt(3290),
		Currency:        db.CurrencyCLP,
		Description:     "uber",
		CategoryKeyword: "uber",
	}

	out := b.draftSummary(context.Background(), user, d)
	assert.Contains(t, out, "Tipo: Gasto")
	assert.Contains(t, out, "Monto: 3.290 CLP")
	assert.Contains(t, out, "Descripción: uber")
	assert.Contains(t, out, "sin asignar · keyword: uber")
	assert.Contains(t, out, "Tarjeta: (sin tarjeta)")
}

func TestDraftSummaryIncomeEnglish(t *testing.T) {
	b := newTestBot(&fakeAPI{})
	user := &db.User{ID: 1, Language: LangEN}
	d := &DraftPayload{
		Kind:        db.KindIncome,
		Amount:      decimal.NewFromInt(500000),
		Currency:    db.CurrencyCLP,
		Description: "salary",
	}

	out := b.draftSummary(context.Background(), user, d)
	assert.Contains(t, out, "Type: Income")
	assert.Contains(t, out, "Amount: 500,000 CLP")
	assert.NotContains(t, out, "Card")
	assert.NotContains(t, out, "Category")
}

func TestConfirmActionsKey(t *testing.T) {
	assert.Equal(t, "tx_confirm_actions_payment", confirmActionsKey(&DraftPayload{IsCardPayment: true}))
	assert.Equal(t, "tx_confirm_actions_income", confirmActionsKey(&DraftPayload{Kind: db.KindIncome}))
	assert.Equal(t, "tx_confirm_actions_expense", confirmActionsKey(&DraftPayload{Kind: db.KindExpense}))
}
