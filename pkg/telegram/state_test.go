package telegram

import (
	"encoding/json"
	"testing"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	user := &db.User{ID: 1, Language: LangES}
	conv := &db.Conversation{UserID: 1}

	s := newSession(user, conv)
	assert.Equal(t, StateNone, s.state)

	cardID := 3
	s.state = StateTxConfirm
	s.payload.Draft = &DraftPayload{
		Kind:      db.KindExpense,
		Amount:    decimal.RequireFromString("12.5"),
		Currency:  db.CurrencyUSD,
		MessageID: 99,
		CardID:    &cardID,
	}
	require.NoError(t, s.encode())
	assert.Equal(t, string(StateTxConfirm), conv.State)

	s2 := newSession(user, conv)
	assert.Equal(t, StateTxConfirm, s2.state)
	require.NotNil(t, s2.payload.Draft)
	assert.True(t, s2.payload.Draft.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, int64(99), s2.payload.Draft.MessageID)
	require.NotNil(t, s2.payload.Draft.CardID)
	assert.Equal(t, 3, *s2.payload.Draft.CardID)
}

func TestSessionBadPayloadResets(t *testing.T) {
	user := &db.User{ID: 1}
	conv := &db.Conversation{
		UserID:  1,
		State:   string(StateTxConfirm),
		Payload: json.RawMessage(`{"draft": nope}`),
	}

	s := newSession(user, conv)
	assert.Equal(t, StateNone, s.state)
	assert.Nil(t, s.payload.Draft)
}

func TestSessionReset(t *testing.T) {
	user := &db.User{ID: 1}
	conv := &db.Conversation{UserID: 1}

	s := newSession(user, conv)
	s.state = StateLoanAskFirstDue
	s.payload.Loan = &LoanPayload{PersonName: "Rosa"}
	s.reset()

	assert.Equal(t, StateNone, s.state)
	assert.Nil(t, s.payload.Loan)
	require.NoError(t, s.encode())
	assert.Equal(t, string(StateNone), conv.State)
}
