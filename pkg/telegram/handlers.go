package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"
	"github.com/luisgil43/finanzasbot/pkg/finanzas"

	"github.com/shopspring/decimal"
)

// handleStart links the chat to a web account via the one-time code
// carried in the /start deep link.
func (b *Bot) handleStart(ctx context.Context, in *inbound, code string) {
	if code == "" {
		b.send(ctx, in.chatID, msg(LangES, "link_need_code", nil))
		return
	}

	user, err := b.fin.LinkUser(ctx, code, in.telegramID, in.chatID)
	if err != nil {
		errorsTotal.WithLabelValues("db").Inc()
		b.logger.Error(ctx, "failed to link user", "err", err)
		b.send(ctx, in.chatID, msg(LangES, "tx_try_again", nil))
		return
	}
	if user == nil {
		b.send(ctx, in.chatID, msg(LangES, "link_bad_code", nil))
		return
	}
	b.send(ctx, in.chatID, msg(user.Language, "link_ok", nil))
}

func (b *Bot) handleHelp(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("help").Inc()
	b.send(ctx, in.chatID, msg(s.user.Language, "help", nil))
}

func (b *Bot) handleCancel(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("cancel").Inc()
	b.resetState(ctx, s)
	b.send(ctx, in.chatID, msg(s.user.Language, "tx_cancel_ok", nil))
}

func (b *Bot) handleLanguage(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("language").Inc()

	lang, _ := parseLanguageCommand(in.text)
	if err := b.fin.SetUserLanguage(ctx, s.user, lang); err != nil {
		errorsTotal.WithLabelValues("db").Inc()
		b.logger.Error(ctx, "failed to set user language", "err", err, "user_id", s.user.ID)
		b.send(ctx, in.chatID, msg(s.user.Language, "tx_try_again", nil))
		return
	}
	b.send(ctx, in.chatID, msg(lang, "lang_changed", nil))
}

func (b *Bot) handleFallback(ctx context.Context, s *session, in *inbound) {
	b.send(ctx, in.chatID, msg(s.user.Language, "tx_parse_fail", nil))
}

// ---- one-shot entries ----

func (b *Bot) handleTransaction(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("tx").Inc()

	parsed := ParseTransaction(in.text)
	if parsed == nil {
		b.send(ctx, in.chatID, msg(s.user.Language, "tx_parse_fail", nil))
		return
	}
	d := newDraftFromParsed(parsed, in.messageID, b.now())
	s.payload.Draft = d

	if d.Kind == db.KindExpense {
		b.resolveDraftCategory(ctx, s)
		if needsCategoryChoice(d) {
			b.enterCatChoice(ctx, s, in.chatID)
			return
		}

		cards, err := b.fin.ActiveCards(ctx, s.user.ID)
		if err != nil {
			b.failSoft(ctx, s, in.chatID, "failed to load cards", err)
			return
		}
		if len(cards) > 0 {
			resolved, candidates := resolveCard(parsed.RawText, cards)
			switch {
			case resolved != nil:
				d.CardID = &resolved.ID
			case len(candidates) > 1:
				b.enterAskCard(ctx, s, in.chatID, candidates)
				return
			case textMentionsCard(parsed.RawText):
				b.enterAskCard(ctx, s, in.chatID, cards)
				return
			}
			// text never mentioned a card and nothing scored:
			// assume no card, straight to confirmation
		}
	}

	b.enterConfirm(ctx, s, in.chatID)
}

func (b *Bot) handleCardPayment(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("card_payment").Inc()

	parsed := ParseCardPayment(in.text)
	if parsed == nil {
		b.send(ctx, in.chatID, msg(s.user.Language, "tx_parse_fail", nil))
		return
	}
	d := newDraftFromParsed(parsed, in.messageID, b.now())
	d.IsCardPayment = true
	d.CategoryKeyword = ""
	s.payload.Draft = d

	cards, err := b.fin.ActiveCards(ctx, s.user.ID)
	if err != nil {
		b.failSoft(ctx, s, in.chatID, "failed to load cards", err)
		return
	}
	if len(cards) == 0 {
		s.reset()
		b.saveState(ctx, s)
		b.send(ctx, in.chatID, msg(s.user.Language, "card_no_cards", nil))
		return
	}

	resolved, candidates := resolveCard(parsed.RawText, cards)
	if resolved != nil {
		d.CardID = &resolved.ID
		b.enterConfirm(ctx, s, in.chatID)
		return
	}
	if len(candidates) > 1 {
		b.enterAskCard(ctx, s, in.chatID, candidates)
		return
	}
	b.enterAskCard(ctx, s, in.chatID, cards)
}

func (b *Bot) handleWizardStart(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("wizard").Inc()

	d := &DraftPayload{
		MessageID:  in.messageID,
		OccurredAt: b.now(),
		Source:     "telegram",
		Currency:   db.CurrencyCLP,
	}
	if kind, ok := parseWizardKind(in.text); ok {
		d.Kind = kind
	} else {
		d.Kind = db.KindExpense
		d.IsCardPayment = true
		d.Description = cardPaymentDescription(normalizeLang(s.user.Language))
	}
	s.payload.Draft = d
	s.state = StateTxWizAmount
	if !b.saveState(ctx, s) {
		b.send(ctx, in.chatID, msg(s.user.Language, "tx_try_again", nil))
		return
	}
	b.send(ctx, in.chatID, msg(s.user.Language, "tx_edit_amount_ask", nil))
}

// ---- wizard steps ----

func (b *Bot) handleWizard(ctx context.Context, s *session, in *inbound) {
	d := s.payload.Draft
	if d == nil {
		b.missingDraft(ctx, s)
		return
	}

	switch s.state {
	case StateTxWizAmount:
		amount, currency, ok := parseAmountAndCurrency(in.text)
		if !ok {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_bad_amount", nil))
			return
		}
		d.Amount = amount
		d.Currency = currency

		if d.IsCardPayment {
			cards, err := b.fin.ActiveCards(ctx, s.user.ID)
			if err != nil {
				b.failSoft(ctx, s, in.chatID, "failed to load cards", err)
				return
			}
			if len(cards) == 0 {
				s.reset()
				b.saveState(ctx, s)
				b.send(ctx, in.chatID, msg(s.user.Language, "card_no_cards", nil))
				return
			}
			b.enterAskCard(ctx, s, in.chatID, cards)
			return
		}

		s.state = StateTxWizDesc
		if !b.saveState(ctx, s) {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_try_again", nil))
			return
		}
		b.send(ctx, in.chatID, msg(s.user.Language, "tx_edit_desc_ask", nil))

	case StateTxWizDesc:
		desc := strings.TrimSpace(in.text)
		if desc == "" {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_edit_desc_ask", nil))
			return
		}
		d.Description = desc
		d.CategoryKeyword = keywordFromDescription(desc)
		b.resolveDraftCategory(ctx, s)
		if needsCategoryChoice(d) {
			b.enterCatChoice(ctx, s, in.chatID)
			return
		}

		if d.Kind == db.KindExpense {
			cards, err := b.fin.ActiveCards(ctx, s.user.ID)
			if err != nil {
				b.failSoft(ctx, s, in.chatID, "failed to load cards", err)
				return
			}
			// the step-by-step entry always asks which card
			if len(cards) > 0 {
				b.enterAskCard(ctx, s, in.chatID, cards)
				return
			}
		}
		b.enterConfirm(ctx, s, in.chatID)
	}
}

// ---- card disambiguation ----

// enterAskCard stores the numbered options and asks which card the
// draft belongs to. The payment variant has no "no card" answer.
func (b *Bot) enterAskCard(ctx context.Context, s *session, chatID int64, cards []db.Card) {
	d := s.payload.Draft

	shown := cards
	if len(shown) > maxCardsInPrompt {
		shown = shown[:maxCardsInPrompt]
	}
	d.CardOptions = d.CardOptions[:0]
	for _, c := range shown {
		d.CardOptions = append(d.CardOptions, c.ID)
	}

	s.state = StateTxAskCard
	if !b.saveState(ctx, s) {
		b.send(ctx, chatID, msg(s.user.Language, "tx_try_again", nil))
		return
	}

	key := "card_ask"
	if d.IsCardPayment {
		key = "card_pay_ask"
	}
	b.send(ctx, chatID, msg(s.user.Language, key, map[string]string{"cards": renderCardsPrompt(cards)}))
}

func (b *Bot) handleAskCard(ctx context.Context, s *session, in *inbound) {
	d := s.payload.Draft
	if d == nil {
		b.missingDraft(ctx, s)
		return
	}

	notFoundKey := "card_not_found"
	if d.IsCardPayment {
		notFoundKey = "card_pay_not_found"
	}

	if n, ok := parseCardChoice(in.text, len(d.CardOptions)); ok {
		if n == 0 {
			if d.IsCardPayment {
				b.send(ctx, in.chatID, msg(s.user.Language, notFoundKey, nil))
				return
			}
			d.CardID = nil
			b.send(ctx, in.chatID, msg(s.user.Language, "card_skip", nil))
			b.enterConfirm(ctx, s, in.chatID)
			return
		}
		cardID := d.CardOptions[n-1]
		card, err := b.fin.CardByID(ctx, s.user.ID, cardID)
		if err != nil || card == nil {
			b.send(ctx, in.chatID, msg(s.user.Language, notFoundKey, nil))
			return
		}
		d.CardID = &card.ID
		b.send(ctx, in.chatID, msg(s.user.Language, "card_linked", map[string]string{"card": card.Label()}))
		b.enterConfirm(ctx, s, in.chatID)
		return
	}

	// free text: try matching it against all active cards
	cards, err := b.fin.ActiveCards(ctx, s.user.ID)
	if err != nil {
		b.failSoft(ctx, s, in.chatID, "failed to load cards", err)
		return
	}
	resolved, candidates := resolveCard(in.text, cards)
	if resolved != nil {
		d.CardID = &resolved.ID
		b.send(ctx, in.chatID, msg(s.user.Language, "card_linked", map[string]string{"card": resolved.Label()}))
		b.enterConfirm(ctx, s, in.chatID)
		return
	}
	if len(candidates) > 1 {
		b.enterAskCard(ctx, s, in.chatID, candidates)
		return
	}
	b.send(ctx, in.chatID, msg(s.user.Language, notFoundKey, nil))
}

// ---- confirmation ----

// enterConfirm persists the draft in the confirm state and shows the
// summary with the action menu.
func (b *Bot) enterConfirm(ctx context.Context, s *session, chatID int64) {
	d := s.payload.Draft
	s.state = StateTxConfirm
	if !b.saveState(ctx, s) {
		b.send(ctx, chatID, msg(s.user.Language, "tx_try_again", nil))
		return
	}
	b.send(ctx, chatID, b.draftSummary(ctx, s.user, d)+"\n\n"+msg(s.user.Language, confirmActionsKey(d), nil))
}

func (b *Bot) handleConfirm(ctx context.Context, s *session, in *inbound) {
	d := s.payload.Draft
	if d == nil {
		b.missingDraft(ctx, s)
		return
	}
	lang := s.user.Language

	answer := normalizeText(in.text)
	switch answer {
	case "1", "guardar", "confirmar", "save", "si", "yes", "ok":
		b.saveDraft(ctx, s, in.chatID)
		return
	case "2", "monto", "editar monto":
		b.askEdit(ctx, s, in.chatID, StateTxEditAmount, "tx_edit_amount_ask")
		return
	case "3", "moneda", "editar moneda", "currency":
		b.askEdit(ctx, s, in.chatID, StateTxEditCurrency, "tx_edit_currency_ask")
		return
	case "4", "desc", "descripcion", "editar descripcion":
		if !d.IsCardPayment {
			b.askEdit(ctx, s, in.chatID, StateTxEditDesc, "tx_edit_desc_ask")
			return
		}
	case "5", "tarjeta", "card", "editar tarjeta":
		if d.Kind == db.KindExpense || d.IsCardPayment {
			cards, err := b.fin.ActiveCards(ctx, s.user.ID)
			if err != nil {
				b.failSoft(ctx, s, in.chatID, "failed to load cards", err)
				return
			}
			if len(cards) == 0 {
				b.send(ctx, in.chatID, msg(lang, "card_no_cards", nil))
				return
			}
			b.enterAskCard(ctx, s, in.chatID, cards)
			return
		}
	case "6", "tipo", "type", "cambiar tipo":
		if !d.IsCardPayment {
			b.askEdit(ctx, s, in.chatID, StateTxEditKind, "tx_edit_kind_ask")
			return
		}
	case "0", "no":
		b.resetState(ctx, s)
		b.send(ctx, in.chatID, msg(lang, "tx_cancel_ok", nil))
		return
	}

	b.send(ctx, in.chatID, msg(lang, confirmActionsKey(d), nil))
}

func (b *Bot) askEdit(ctx context.Context, s *session, chatID int64, state State, promptKey string) {
	s.state = state
	if !b.saveState(ctx, s) {
		b.send(ctx, chatID, msg(s.user.Language, "tx_try_again", nil))
		return
	}
	b.send(ctx, chatID, msg(s.user.Language, promptKey, nil))
}

func (b *Bot) handleEdit(ctx context.Context, s *session, in *inbound) {
	d := s.payload.Draft
	if d == nil {
		b.missingDraft(ctx, s)
		return
	}

	switch s.state {
	case StateTxEditAmount:
		amount, currency, ok := parseAmountAndCurrency(in.text)
		if !ok {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_bad_amount", nil))
			return
		}
		d.Amount = amount
		d.Currency = currency

	case StateTxEditCurrency:
		currency, ok := parseCurrencyOnly(in.text)
		if !ok {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_edit_currency_ask", nil))
			return
		}
		d.Currency = currency

	case StateTxEditDesc:
		desc := strings.TrimSpace(in.text)
		if desc == "" {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_edit_desc_ask", nil))
			return
		}
		d.Description = desc
		d.CategoryKeyword = keywordFromDescription(desc)
		d.CategoryID = nil
		b.resolveDraftCategory(ctx, s)

	case StateTxEditKind:
		kind, ok := parseKindOnly(in.text)
		if !ok {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_edit_kind_ask", nil))
			return
		}
		d.Kind = kind
		if kind == db.KindIncome {
			d.CardID = nil
			d.CategoryID = nil
		}
	}

	b.enterConfirm(ctx, s, in.chatID)
}

// ---- save ----

// saveDraft is the "1) Guardar" branch. The category sub-flow already
// ran before the confirmation screen, so saving commits right away;
// only a card payment without its card detours once more.
func (b *Bot) saveDraft(ctx context.Context, s *session, chatID int64) {
	d := s.payload.Draft

	if d.IsCardPayment && d.CardID == nil {
		cards, err := b.fin.ActiveCards(ctx, s.user.ID)
		if err != nil {
			b.failSoft(ctx, s, chatID, "failed to load cards", err)
			return
		}
		if len(cards) == 0 {
			b.send(ctx, chatID, msg(s.user.Language, "tx_need_card_for_payment", nil))
			return
		}
		b.send(ctx, chatID, msg(s.user.Language, "tx_need_card_for_payment", nil))
		b.enterAskCard(ctx, s, chatID, cards)
		return
	}

	b.commitDraft(ctx, s, chatID)
}

func (b *Bot) commitDraft(ctx context.Context, s *session, chatID int64) {
	d := s.payload.Draft
	lang := s.user.Language

	tx, created, err := b.fin.CommitTransaction(ctx, s.user, d.MessageID, d.toDomain())
	if err != nil {
		errorsTotal.WithLabelValues("commit").Inc()
		b.logger.Error(ctx, "failed to commit transaction", "err", err, "user_id", s.user.ID)
		b.send(ctx, chatID, msg(lang, "tx_try_again", nil))
		return
	}
	if !created {
		duplicateCommits.Inc()
		b.resetState(ctx, s)
		b.send(ctx, chatID, msg(lang, "tx_dupe", nil))
		return
	}

	transactionsCommitted.WithLabelValues(tx.Kind).Inc()
	b.resetState(ctx, s)

	if d.IsCardPayment && tx.CardID != nil {
		label := ""
		if card, err := b.fin.CardByID(ctx, s.user.ID, *tx.CardID); err == nil && card != nil {
			label = card.Label()
		}
		key := "card_payment_applied"
		if !tx.BalanceApplied {
			key = "card_payment_missing_balance"
		}
		b.send(ctx, chatID, msg(lang, key, map[string]string{
			"card": label,
			"id":   strconv.Itoa(tx.ID),
		}))
		return
	}

	b.send(ctx, chatID, msg(lang, "tx_saved", map[string]string{
		"label":  kindLabel(tx.Kind, lang),
		"amount": formatMoney(tx.AmountOriginal, tx.CurrencyOriginal, lang),
		"cur":    tx.CurrencyOriginal,
		"approx": approxCLP(tx.AmountCLP, tx.CurrencyOriginal),
		"desc":   tx.Description,
		"id":     strconv.Itoa(tx.ID),
	}))
}

// resolveDraftCategory matches the draft keyword against the user's
// categories; misses are left for the pre-confirmation sub-flow.
func (b *Bot) resolveDraftCategory(ctx context.Context, s *session) {
	d := s.payload.Draft
	if d.Kind != db.KindExpense || d.IsCardPayment || d.CategoryID != nil {
		return
	}
	kw := d.CategoryKeyword
	if kw == "" || kw == "—" {
		return
	}
	cats, err := b.fin.ActiveCategories(ctx, s.user.ID)
	if err != nil {
		b.logger.Error(ctx, "failed to load categories", "err", err, "user_id", s.user.ID)
		return
	}
	if cat := categoryForKeyword(kw, cats); cat != nil {
		d.CategoryID = &cat.ID
	}
}

// ---- category sub-flow ----

// needsCategoryChoice reports an expense draft whose keyword matched
// no category. The assignment sub-flow runs before the confirmation
// screen and every branch returns there.
func needsCategoryChoice(d *DraftPayload) bool {
	if d.Kind != db.KindExpense || d.IsCardPayment || d.CategoryID != nil {
		return false
	}
	kw := d.CategoryKeyword
	return kw != "" && kw != "—"
}

// enterCatChoice opens the category assignment sub-flow.
func (b *Bot) enterCatChoice(ctx context.Context, s *session, chatID int64) {
	d := s.payload.Draft
	s.state = StateTxCatChoice
	if !b.saveState(ctx, s) {
		b.send(ctx, chatID, msg(s.user.Language, "tx_try_again", nil))
		return
	}
	b.send(ctx, chatID, msg(s.user.Language, "cat_unknown", map[string]string{"kw": d.CategoryKeyword}))
}

func (b *Bot) handleCategoryFlow(ctx context.Context, s *session, in *inbound) {
	d := s.payload.Draft
	if d == nil {
		b.missingDraft(ctx, s)
		return
	}
	lang := s.user.Language

	switch s.state {
	case StateTxCatChoice:
		choice, ok := parseChoice(in.text, 2)
		if !ok {
			b.send(ctx, in.chatID, msg(lang, "cat_invalid", nil))
			return
		}
		switch choice {
		case "1":
			cats, err := b.fin.ActiveCategories(ctx, s.user.ID)
			if err != nil {
				b.failSoft(ctx, s, in.chatID, "failed to load categories", err)
				return
			}
			if len(cats) == 0 {
				b.send(ctx, in.chatID, msg(lang, "cat_no_categories", nil))
				return
			}
			shown := cats
			if len(shown) > maxCategoriesInPrompt {
				shown = shown[:maxCategoriesInPrompt]
			}
			d.CategoryOptions = d.CategoryOptions[:0]
			for _, c := range shown {
				d.CategoryOptions = append(d.CategoryOptions, c.ID)
			}
			s.state = StateTxCatPickExisting
			if !b.saveState(ctx, s) {
				b.send(ctx, in.chatID, msg(lang, "tx_try_again", nil))
				return
			}
			b.send(ctx, in.chatID, msg(lang, "cat_pick_existing", map[string]string{
				"kw":   d.CategoryKeyword,
				"cats": renderCategoriesPrompt(cats),
			}))
		case "2":
			s.state = StateTxCatNewName
			if !b.saveState(ctx, s) {
				b.send(ctx, in.chatID, msg(lang, "tx_try_again", nil))
				return
			}
			b.send(ctx, in.chatID, msg(lang, "cat_new_ask_name", nil))
		case choiceSkip:
			d.CategoryID = nil
			b.send(ctx, in.chatID, msg(lang, "cat_skipped", nil))
			b.enterConfirm(ctx, s, in.chatID)
		case choiceCancel:
			b.resetState(ctx, s)
			b.send(ctx, in.chatID, msg(lang, "tx_cancel_ok", nil))
		default:
			b.send(ctx, in.chatID, msg(lang, "cat_invalid", nil))
		}

	case StateTxCatPickExisting:
		choice, ok := parseChoice(in.text, len(d.CategoryOptions))
		if !ok || choice == choiceSkip || choice == choiceNew {
			b.send(ctx, in.chatID, msg(lang, "cat_invalid", nil))
			return
		}
		if choice == choiceCancel {
			b.resetState(ctx, s)
			b.send(ctx, in.chatID, msg(lang, "tx_cancel_ok", nil))
			return
		}
		n, _ := strconv.Atoi(choice)
		cat, err := b.fin.CategoryByID(ctx, s.user.ID, d.CategoryOptions[n-1])
		if err != nil || cat == nil {
			b.send(ctx, in.chatID, msg(lang, "cat_invalid", nil))
			return
		}
		if err := b.fin.AppendCategoryKeyword(ctx, cat, d.CategoryKeyword); err != nil {
			b.failSoft(ctx, s, in.chatID, "failed to append keyword", err)
			return
		}
		d.CategoryID = &cat.ID
		b.send(ctx, in.chatID, msg(lang, "cat_linked_ok", map[string]string{"kw": d.CategoryKeyword, "cat": cat.Name}))
		b.enterConfirm(ctx, s, in.chatID)

	case StateTxCatNewName:
		name := strings.TrimSpace(in.text)
		if name == "" {
			b.send(ctx, in.chatID, msg(lang, "cat_new_ask_name", nil))
			return
		}
		d.NewCategoryName = name

		buds, err := b.fin.MonthlyBudgets(ctx, s.user.ID, b.now())
		if err != nil {
			b.failSoft(ctx, s, in.chatID, "failed to load budgets", err)
			return
		}
		if len(buds) == 0 {
			s.state = StateTxCatNewAmount
			if !b.saveState(ctx, s) {
				b.send(ctx, in.chatID, msg(lang, "tx_try_again", nil))
				return
			}
			b.send(ctx, in.chatID, msg(lang, "cat_no_budgets", nil))
			b.send(ctx, in.chatID, msg(lang, "cat_new_ask_amount", nil))
			return
		}
		shown := buds
		if len(shown) > maxBudgetsInPrompt {
			shown = shown[:maxBudgetsInPrompt]
		}
		d.CategoryOptions = d.CategoryOptions[:0]
		for _, bud := range shown {
			d.CategoryOptions = append(d.CategoryOptions, bud.ID)
		}
		s.state = StateTxCatNewPickBudget
		if !b.saveState(ctx, s) {
			b.send(ctx, in.chatID, msg(lang, "tx_try_again", nil))
			return
		}
		b.send(ctx, in.chatID, msg(lang, "cat_new_pick_existing_budget", map[string]string{"buds": renderBudgetsPrompt(buds)}))

	case StateTxCatNewPickBudget:
		choice, ok := parseChoice(in.text, len(d.CategoryOptions))
		if !ok {
			b.send(ctx, in.chatID, msg(lang, "cat_invalid", nil))
			return
		}
		switch choice {
		case choiceCancel:
			b.resetState(ctx, s)
			b.send(ctx, in.chatID, msg(lang, "tx_cancel_ok", nil))
		case choiceSkip:
			b.createCategoryAndConfirm(ctx, s, in.chatID, nil)
		case choiceNew:
			s.state = StateTxCatNewAmount
			if !b.saveState(ctx, s) {
				b.send(ctx, in.chatID, msg(lang, "tx_try_again", nil))
				return
			}
			b.send(ctx, in.chatID, msg(lang, "cat_new_ask_amount", nil))
		default:
			n, _ := strconv.Atoi(choice)
			buds, err := b.fin.MonthlyBudgets(ctx, s.user.ID, b.now())
			if err != nil {
				b.failSoft(ctx, s, in.chatID, "failed to load budgets", err)
				return
			}
			var amount *decimal.Decimal
			for i := range buds {
				if buds[i].ID == d.CategoryOptions[n-1] {
					amount = &buds[i].AmountCLP
					break
				}
			}
			if amount == nil {
				b.send(ctx, in.chatID, msg(lang, "cat_invalid", nil))
				return
			}
			b.createCategoryAndConfirm(ctx, s, in.chatID, amount)
		}

	case StateTxCatNewAmount:
		amount, ok := parseIntAmountCLP(in.text)
		if !ok {
			b.send(ctx, in.chatID, msg(lang, "tx_bad_amount", nil))
			return
		}
		b.createCategoryAndConfirm(ctx, s, in.chatID, &amount)
	}
}

// createCategoryAndConfirm creates the new category (plus its monthly
// budget when an amount was chosen), links the draft and returns to
// the confirmation screen.
func (b *Bot) createCategoryAndConfirm(ctx context.Context, s *session, chatID int64, budgetCLP *decimal.Decimal) {
	d := s.payload.Draft
	lang := s.user.Language

	cat, err := b.fin.CreateCategory(ctx, s.user.ID, d.NewCategoryName, d.CategoryKeyword)
	if err != nil {
		b.failSoft(ctx, s, chatID, "failed to create category", err)
		return
	}
	categoriesCreated.Inc()

	if budgetCLP != nil {
		if err := b.fin.SetMonthlyBudget(ctx, s.user.ID, cat.ID, b.now(), *budgetCLP); err != nil {
			errorsTotal.WithLabelValues("db").Inc()
			b.logger.Error(ctx, "failed to set monthly budget", "err", err, "category_id", cat.ID)
		}
	}

	d.CategoryID = &cat.ID
	b.send(ctx, chatID, msg(lang, "cat_created_ok", map[string]string{"cat": cat.Name}))
	b.enterConfirm(ctx, s, chatID)
}

// ---- loans ----

func (b *Bot) handleLoanCreate(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("loan").Inc()

	pl := ParseLoan(in.text)
	if pl == nil {
		b.send(ctx, in.chatID, msg(s.user.Language, "tx_parse_fail", nil))
		return
	}
	lp := &LoanPayload{
		Direction:    pl.Direction,
		PersonName:   pl.PersonName,
		Principal:    pl.Amount,
		Currency:     pl.Currency,
		Installments: pl.Installments,
		FirstDueDate: pl.FirstDueDate,
		MessageID:    in.messageID,
	}
	s.payload.Loan = lp

	if lp.Installments == 0 {
		s.state = StateLoanAskInstallments
		if !b.saveState(ctx, s) {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_try_again", nil))
			return
		}
		b.send(ctx, in.chatID, msg(s.user.Language, "loan_ask_installments", nil))
		return
	}
	if lp.FirstDueDate == nil {
		s.state = StateLoanAskFirstDue
		if !b.saveState(ctx, s) {
			b.send(ctx, in.chatID, msg(s.user.Language, "tx_try_again", nil))
			return
		}
		b.send(ctx, in.chatID, msg(s.user.Language, "loan_ask_first_due", nil))
		return
	}
	b.commitLoan(ctx, s, in.chatID)
}

func (b *Bot) handleLoanFlow(ctx context.Context, s *session, in *inbound) {
	lp := s.payload.Loan
	if lp == nil {
		b.missingDraft(ctx, s)
		return
	}
	lang := s.user.Language

	switch s.state {
	case StateLoanAskInstallments:
		n, err := strconv.Atoi(strings.TrimSpace(in.text))
		if err != nil || n < finanzas.MinInstallments || n > finanzas.MaxInstallments {
			b.send(ctx, in.chatID, msg(lang, "loan_bad_installments", nil))
			return
		}
		lp.Installments = n
		if lp.FirstDueDate == nil {
			s.state = StateLoanAskFirstDue
			if !b.saveState(ctx, s) {
				b.send(ctx, in.chatID, msg(lang, "tx_try_again", nil))
				return
			}
			b.send(ctx, in.chatID, msg(lang, "loan_ask_first_due", nil))
			return
		}
		b.commitLoan(ctx, s, in.chatID)

	case StateLoanAskFirstDue:
		due, ok := parseDateISO(in.text)
		if !ok {
			b.send(ctx, in.chatID, msg(lang, "loan_bad_date", nil))
			return
		}
		lp.FirstDueDate = &due
		b.commitLoan(ctx, s, in.chatID)
	}
}

func (b *Bot) commitLoan(ctx context.Context, s *session, chatID int64) {
	lp := s.payload.Loan
	lang := s.user.Language

	note := ""
	if lp.Currency == db.CurrencyUSD {
		rate := b.fin.NormalizeToCLP(ctx, decimal.NewFromInt(1), db.CurrencyUSD)
		note = fmt.Sprintf("FX %s rate %s", rate.FxSource, rate.FxRate.String())
	}

	loan, created, err := b.fin.CreateLoan(ctx, s.user, lp.MessageID, finanzas.LoanDraft{
		Direction:    lp.Direction,
		PersonName:   lp.PersonName,
		Principal:    lp.Principal,
		Currency:     lp.Currency,
		Installments: lp.Installments,
		FirstDueDate: lp.FirstDueDate,
		Note:         note,
	})
	if err != nil {
		errorsTotal.WithLabelValues("commit").Inc()
		b.logger.Error(ctx, "failed to create loan", "err", err, "user_id", s.user.ID)
		b.send(ctx, chatID, msg(lang, "tx_try_again", nil))
		return
	}
	if !created {
		duplicateCommits.Inc()
		b.resetState(ctx, s)
		b.send(ctx, chatID, msg(lang, "tx_dupe", nil))
		return
	}

	loansCreated.Inc()
	b.resetState(ctx, s)

	due := ""
	if len(loan.Installments) > 0 {
		due = loan.Installments[0].DueDate.Format("2006-01-02")
	}
	b.send(ctx, chatID, msg(lang, "loan_created", map[string]string{
		"amount": formatMoney(loan.PrincipalOriginal, loan.CurrencyOriginal, lang),
		"cur":    loan.CurrencyOriginal,
		"approx": approxCLP(loan.PrincipalCLP, loan.CurrencyOriginal),
		"person": loan.PersonName,
		"n":      strconv.Itoa(loan.InstallmentsCount),
		"due":    due,
	}))
}

func (b *Bot) handleLoansList(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("loans_list").Inc()
	lang := s.user.Language

	loans, err := b.fin.ActiveLoans(ctx, s.user.ID, 20)
	if err != nil {
		b.failSoft(ctx, s, in.chatID, "failed to load loans", err)
		return
	}
	if len(loans) == 0 {
		b.send(ctx, in.chatID, msg(lang, "loans_none", nil))
		return
	}

	unit := "cuotas"
	if normalizeLang(lang) == LangEN {
		unit = "installments"
	}
	lines := []string{msg(lang, "loans_header", nil)}
	for _, l := range loans {
		lines = append(lines, fmt.Sprintf("• %s: %s %s · %d %s",
			l.PersonName, formatMoney(l.PrincipalOriginal, l.CurrencyOriginal, lang), l.CurrencyOriginal,
			l.InstallmentsCount, unit))
	}
	b.sendLong(ctx, in.chatID, strings.Join(lines, "\n"))
}

// ---- delete / queries ----

func (b *Bot) handleDelete(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("delete").Inc()
	lang := s.user.Language

	_, txID, isLast := parseDeleteCommand(in.text)
	if !isLast && txID == 0 {
		b.send(ctx, in.chatID, msg(lang, "delete_need_id", nil))
		return
	}

	var (
		tx  *db.Transaction
		err error
	)
	if isLast {
		tx, err = b.fin.DeleteLastTransaction(ctx, s.user.ID)
	} else {
		tx, err = b.fin.DeleteTransaction(ctx, s.user.ID, txID)
	}
	if errors.Is(err, finanzas.ErrNotFound) {
		b.send(ctx, in.chatID, msg(lang, "delete_not_found", nil))
		return
	}
	if err != nil {
		b.failSoft(ctx, s, in.chatID, "failed to delete transaction", err)
		return
	}

	b.send(ctx, in.chatID, msg(lang, "delete_ok", map[string]string{
		"label":  kindLabel(tx.Kind, lang),
		"amount": formatMoney(tx.AmountOriginal, tx.CurrencyOriginal, lang),
		"cur":    tx.CurrencyOriginal,
		"desc":   tx.Description,
		"id":     strconv.Itoa(tx.ID),
	}))
}

func (b *Bot) handleMovements(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("movements").Inc()
	lang := s.user.Language

	from, to := parseMovementsQuery(in.text, b.now())
	if from == nil {
		b.send(ctx, in.chatID, msg(lang, "tx_parse_fail", nil))
		return
	}

	var (
		txs    []db.Transaction
		err    error
		header string
		empty  string
	)
	if to == nil {
		txs, err = b.fin.MovementsByDay(ctx, s.user.ID, *from)
		header = msg(lang, "movements_header", map[string]string{"day": from.Format("2006-01-02")})
		empty = msg(lang, "movements_none", nil)
	} else {
		if from.After(*to) {
			from, to = to, from
		}
		txs, err = b.fin.MovementsBetween(ctx, s.user.ID, *from, *to)
		header = msg(lang, "movements_range_header", map[string]string{
			"a": from.Format("2006-01-02"),
			"b": to.Format("2006-01-02"),
		})
		empty = msg(lang, "movements_range_none", nil)
	}
	if err != nil {
		b.failSoft(ctx, s, in.chatID, "failed to load movements", err)
		return
	}
	if len(txs) == 0 {
		b.send(ctx, in.chatID, empty)
		return
	}

	lines := []string{header}
	for _, tx := range txs {
		lines = append(lines, movementLine(tx, lang))
	}
	b.sendLong(ctx, in.chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleSummary(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("summary").Inc()
	lang := s.user.Language

	month, _ := parseSummaryQuery(in.text)
	sum, err := b.fin.Summary(ctx, s.user.ID, month)
	if err != nil {
		b.failSoft(ctx, s, in.chatID, "failed to build summary", err)
		return
	}

	income, expense, balance := "Ingresos", "Gastos", "Balance"
	if normalizeLang(lang) == LangEN {
		income, expense, balance = "Income", "Expenses", "Balance"
	}

	lines := []string{
		msg(lang, "summary_header", map[string]string{"ym": month.Format("2006-01")}),
		fmt.Sprintf("%s: %s CLP", income, fmtCLP(sum.IncomeCLP)),
		fmt.Sprintf("%s: %s CLP", expense, fmtCLP(sum.ExpenseCLP)),
		fmt.Sprintf("%s: %s CLP", balance, fmtCLP(sum.BalanceCLP())),
	}
	for _, c := range sum.Categories {
		if c.HasBudget {
			lines = append(lines, fmt.Sprintf("• %s: %s / %s CLP", c.Name, fmtCLP(c.SpentCLP), fmtCLP(c.BudgetCLP)))
		} else {
			lines = append(lines, fmt.Sprintf("• %s: %s CLP", c.Name, fmtCLP(c.SpentCLP)))
		}
	}
	b.sendLong(ctx, in.chatID, strings.Join(lines, "\n"))
}

// ---- OCR ----

func (b *Bot) handleOCR(ctx context.Context, s *session, in *inbound) {
	commandsProcessed.WithLabelValues("ocr").Inc()
	lang := s.user.Language

	data, err := b.downloadTgFile(ctx, in.fileID)
	if err != nil {
		errorsTotal.WithLabelValues("ocr").Inc()
		b.logger.Error(ctx, "failed to download media", "err", err, "user_id", s.user.ID)
		b.send(ctx, in.chatID, msg(lang, "ocr_failed", nil))
		return
	}

	start := time.Now()
	text, err := b.ocr.ExtractText(ctx, data, in.fileName, ocrLanguage(lang))
	ocrDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		errorsTotal.WithLabelValues("ocr").Inc()
		b.logger.Error(ctx, "failed to extract text", "err", err, "user_id", s.user.ID)
		b.send(ctx, in.chatID, msg(lang, "ocr_failed", nil))
		return
	}
	if strings.TrimSpace(text) == "" {
		b.send(ctx, in.chatID, msg(lang, "ocr_no_text", nil))
		return
	}
	b.sendLong(ctx, in.chatID, msg(lang, "ocr_result_header", nil)+"\n\n"+text)
}

func ocrLanguage(lang string) string {
	if normalizeLang(lang) == LangEN {
		return "eng"
	}
	return "spa"
}

// ---- shared error paths ----

// failSoft logs a backend failure and tells the user to retry. The
// conversation state stays put so the retry lands in the same step.
func (b *Bot) failSoft(ctx context.Context, s *session, chatID int64, what string, err error) {
	errorsTotal.WithLabelValues("db").Inc()
	b.logger.Error(ctx, what, "err", err, "user_id", s.user.ID)
	b.send(ctx, chatID, msg(s.user.Language, "tx_try_again", nil))
}

// missingDraft resets a state whose payload is gone. Nothing is sent;
// the next message simply starts over.
func (b *Bot) missingDraft(ctx context.Context, s *session) {
	b.resetState(ctx, s)
}
