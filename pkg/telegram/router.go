package telegram

import (
	"context"
	"strings"
)

// route pairs a predicate with its handler. Routes are tried in
// registration order and the first match wins, so order here is
// load-bearing: state handlers run before free-text parsing, and
// specific commands before the generic transaction parser.
type route struct {
	name   string
	match  func(s *session, in *inbound) bool
	handle func(ctx context.Context, s *session, in *inbound)
}

func (b *Bot) registerRoutes() {
	b.routes = []route{
		{"help", func(s *session, in *inbound) bool {
			return isHelpCommand(in.text)
		}, b.handleHelp},

		{"ocr", func(s *session, in *inbound) bool {
			return in.hasMedia && shouldOCR(in.text, in.hasMedia)
		}, b.handleOCR},

		{"cancel", func(s *session, in *inbound) bool {
			return s.state != StateNone && isCancelReply(in.text)
		}, b.handleCancel},

		{"language", func(s *session, in *inbound) bool {
			if s.state != StateNone {
				return false
			}
			_, ok := parseLanguageCommand(in.text)
			return ok
		}, b.handleLanguage},

		{"state.category", func(s *session, in *inbound) bool {
			switch s.state {
			case StateTxCatChoice, StateTxCatPickExisting, StateTxCatNewName,
				StateTxCatNewPickBudget, StateTxCatNewAmount:
				return true
			}
			return false
		}, b.handleCategoryFlow},

		{"state.confirm", func(s *session, in *inbound) bool {
			return s.state == StateTxConfirm
		}, b.handleConfirm},

		{"state.edit", func(s *session, in *inbound) bool {
			switch s.state {
			case StateTxEditAmount, StateTxEditCurrency, StateTxEditDesc, StateTxEditKind:
				return true
			}
			return false
		}, b.handleEdit},

		{"state.wizard", func(s *session, in *inbound) bool {
			return s.state == StateTxWizAmount || s.state == StateTxWizDesc
		}, b.handleWizard},

		{"state.askcard", func(s *session, in *inbound) bool {
			return s.state == StateTxAskCard
		}, b.handleAskCard},

		{"state.loan", func(s *session, in *inbound) bool {
			return s.state == StateLoanAskInstallments || s.state == StateLoanAskFirstDue
		}, b.handleLoanFlow},

		{"wizard.start", func(s *session, in *inbound) bool {
			if s.state != StateNone {
				return false
			}
			if _, ok := parseWizardKind(in.text); ok {
				return true
			}
			return isCardPayPrefixOnly(in.text)
		}, b.handleWizardStart},

		{"delete", func(s *session, in *inbound) bool {
			isDelete, _, _ := parseDeleteCommand(in.text)
			return isDelete
		}, b.handleDelete},

		{"movements", func(s *session, in *inbound) bool {
			from, _ := parseMovementsQuery(in.text, b.now())
			return from != nil
		}, b.handleMovements},

		{"summary", func(s *session, in *inbound) bool {
			_, ok := parseSummaryQuery(in.text)
			return ok
		}, b.handleSummary},

		{"loans.list", func(s *session, in *inbound) bool {
			return isLoansListQuery(in.text)
		}, b.handleLoansList},

		{"loan.create", func(s *session, in *inbound) bool {
			return ParseLoan(in.text) != nil
		}, b.handleLoanCreate},

		{"cardpay", func(s *session, in *inbound) bool {
			return ParseCardPayment(in.text) != nil
		}, b.handleCardPayment},

		{"tx", func(s *session, in *inbound) bool {
			return ParseTransaction(in.text) != nil
		}, b.handleTransaction},

		{"fallback", func(s *session, in *inbound) bool {
			return true
		}, b.handleFallback},
	}
}

// dispatch loads the user and conversation, then walks the route
// table. Linking via /start is the only thing an unlinked chat can do.
func (b *Bot) dispatch(ctx context.Context, in *inbound) {
	if code, ok := parseStartCommand(in.text); ok {
		commandsProcessed.WithLabelValues("start").Inc()
		b.handleStart(ctx, in, code)
		return
	}

	user, err := b.fin.UserByTelegramID(ctx, in.telegramID)
	if err != nil {
		errorsTotal.WithLabelValues("db").Inc()
		b.logger.Error(ctx, "failed to load user", "err", err, "telegram_id", in.telegramID)
		b.send(ctx, in.chatID, msg(LangES, "tx_try_again", nil))
		return
	}
	if user == nil {
		b.send(ctx, in.chatID, msg(LangES, "not_linked", nil))
		return
	}

	if err := b.fin.RefreshChatID(ctx, user, in.chatID); err != nil {
		errorsTotal.WithLabelValues("db").Inc()
		b.logger.Error(ctx, "failed to refresh chat id", "err", err, "user_id", user.ID)
	}

	conv, err := b.fin.Conversation(ctx, user.ID)
	if err != nil {
		errorsTotal.WithLabelValues("db").Inc()
		b.logger.Error(ctx, "failed to load conversation", "err", err, "user_id", user.ID)
		b.send(ctx, in.chatID, msg(user.Language, "tx_try_again", nil))
		return
	}
	s := newSession(user, conv)

	for _, r := range b.routes {
		if r.match(s, in) {
			if b.debug {
				b.logger.Print(ctx, "route matched", "route", r.name, "user_id", user.ID, "state", s.state)
			}
			r.handle(ctx, s, in)
			return
		}
	}
}

// parseStartCommand recognizes "/start <code>" and bare "/start".
func parseStartCommand(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "/start" {
		return "", true
	}
	if strings.HasPrefix(t, "/start ") {
		return strings.TrimSpace(strings.TrimPrefix(t, "/start ")), true
	}
	return "", false
}

// saveState persists the session before any reply goes out, so a
// crash mid-reply never leaves the conversation behind the user.
func (b *Bot) saveState(ctx context.Context, s *session) bool {
	if err := s.encode(); err != nil {
		errorsTotal.WithLabelValues("state").Inc()
		b.logger.Error(ctx, "failed to encode conversation payload", "err", err, "user_id", s.user.ID)
		return false
	}
	if err := b.fin.SaveConversation(ctx, s.conv); err != nil {
		errorsTotal.WithLabelValues("db").Inc()
		b.logger.Error(ctx, "failed to save conversation", "err", err, "user_id", s.user.ID)
		return false
	}
	return true
}

// resetState clears the conversation back to idle and persists it.
func (b *Bot) resetState(ctx context.Context, s *session) {
	s.reset()
	b.saveState(ctx, s)
}
