package telegram

import (
	"encoding/json"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
)

// State is where the user's dialogue currently stands. It is persisted
// with the payload before any reply goes out, so a restart resumes the
// conversation mid-flow.
type State string

const (
	StateNone State = "none"

	// step-by-step transaction entry
	StateTxWizAmount State = "tx_wiz_amount"
	StateTxWizDesc   State = "tx_wiz_desc"

	StateTxAskCard State = "tx_ask_card"
	StateTxConfirm State = "tx_confirm"

	StateTxEditAmount   State = "tx_edit_amount"
	StateTxEditCurrency State = "tx_edit_currency"
	StateTxEditDesc     State = "tx_edit_desc"
	StateTxEditKind     State = "tx_edit_kind"

	// category assignment sub-flow
	StateTxCatChoice        State = "tx_cat_choice"
	StateTxCatPickExisting  State = "tx_cat_pick_existing"
	StateTxCatNewName       State = "tx_cat_new_name"
	StateTxCatNewPickBudget State = "tx_cat_new_pick_budget"
	StateTxCatNewAmount     State = "tx_cat_new_amount"

	// loan completion
	StateLoanAskInstallments State = "loan_ask_installments"
	StateLoanAskFirstDue     State = "loan_ask_first_due"
)

// DraftPayload is the transaction draft carried inside the
// conversation payload. Nothing here touches the ledger until the user
// confirms.
type DraftPayload struct {
	Kind            string          `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	MessageID       int64           `json:"messageId"`
	OccurredAt      time.Time       `json:"occurredAt"`
	Source          string          `json:"source"`
	CardID          *int            `json:"cardId,omitempty"`
	IsCardPayment   bool            `json:"isCardPayment,omitempty"`
	CategoryID      *int            `json:"categoryId,omitempty"`
	CategoryKeyword string          `json:"categoryKeyword,omitempty"`

	// numbered options shown in the last disambiguation prompt
	CardOptions     []int `json:"cardOptions,omitempty"`
	CategoryOptions []int `json:"categoryOptions,omitempty"`

	NewCategoryName string `json:"newCategoryName,omitempty"`
}

// LoanPayload is a partially parsed loan waiting for the missing
// pieces (installment count, first due date).
type LoanPayload struct {
	Direction    string          `json:"direction"`
	PersonName   string          `json:"personName"`
	Principal    decimal.Decimal `json:"principal"`
	Currency     string          `json:"currency"`
	Installments int             `json:"installments,omitempty"`
	FirstDueDate *time.Time      `json:"firstDueDate,omitempty"`
	Note         string          `json:"note,omitempty"`
	MessageID    int64           `json:"messageId"`
}

// Payload is the JSON document stored in the conversation row.
type Payload struct {
	Draft *DraftPayload `json:"draft,omitempty"`
	Loan  *LoanPayload  `json:"loan,omitempty"`
}

// session wraps one user's conversation row with its decoded payload.
type session struct {
	conv    *db.Conversation
	user    *db.User
	state   State
	payload Payload
}

func newSession(user *db.User, conv *db.Conversation) *session {
	s := &session{conv: conv, user: user, state: State(conv.State)}
	if s.state == "" {
		s.state = StateNone
	}
	if len(conv.Payload) > 0 {
		if err := json.Unmarshal(conv.Payload, &s.payload); err != nil {
			// A payload this layer cannot read is unrecoverable,
			// start the dialogue over instead of failing forever.
			s.state = StateNone
			s.payload = Payload{}
		}
	}
	return s
}

func (s *session) reset() {
	s.state = StateNone
	s.payload = Payload{}
}

// encode flushes state and payload back onto the conversation row.
func (s *session) encode() error {
	raw, err := json.Marshal(s.payload)
	if err != nil {
		return err
	}
	s.conv.State = string(s.state)
	s.conv.Payload = raw
	return nil
}
