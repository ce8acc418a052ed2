package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"
	"github.com/luisgil43/finanzasbot/pkg/finanzas"
)

// newDraftFromParsed seeds a draft with everything the one-shot parse
// produced. The budget keyword is computed eagerly for expenses so the
// category sub-flow can pick it up.
func newDraftFromParsed(parsed *ParsedTx, messageID int64, now time.Time) *DraftPayload {
	return &DraftPayload{
		Kind:            parsed.Kind,
		Amount:          parsed.Amount,
		Currency:        parsed.Currency,
		Description:     parsed.Description,
		MessageID:       messageID,
		OccurredAt:      now,
		Source:          "telegram",
		CategoryKeyword: keywordFromDescription(parsed.Description),
	}
}

// toDomain converts the payload draft into the commit-layer draft.
func (d *DraftPayload) toDomain() finanzas.Draft {
	return finanzas.Draft{
		Kind:          d.Kind,
		Amount:        d.Amount,
		Currency:      d.Currency,
		Description:   d.Description,
		CardID:        d.CardID,
		CategoryID:    d.CategoryID,
		IsCardPayment: d.IsCardPayment,
		OccurredAt:    d.OccurredAt,
		Source:        d.Source,
	}
}

// confirmActionsKey picks the menu variant: card payments lose the
// description and type entries, income loses the card entry.
func confirmActionsKey(d *DraftPayload) string {
	if d.IsCardPayment {
		return "tx_confirm_actions_payment"
	}
	if d.Kind == db.KindIncome {
		return "tx_confirm_actions_income"
	}
	return "tx_confirm_actions_expense"
}

// draftSummary renders the confirmation screen for a draft.
func (b *Bot) draftSummary(ctx context.Context, user *db.User, d *DraftPayload) string {
	lang := user.Language

	var lines []string
	lines = append(lines, msg(lang, "tx_confirm_title", nil))

	typeLabel := kindLabel(d.Kind, lang)
	if d.IsCardPayment {
		typeLabel = cardPaymentDescription(normalizeLang(lang))
	}
	if normalizeLang(lang) == LangES {
		lines = append(lines, "Tipo: "+typeLabel)
		lines = append(lines, "Monto: "+formatMoney(d.Amount, d.Currency, lang)+" "+d.Currency)
		lines = append(lines, "Descripción: "+orDash(d.Description))
	} else {
		lines = append(lines, "Type: "+typeLabel)
		lines = append(lines, "Amount: "+formatMoney(d.Amount, d.Currency, lang)+" "+d.Currency)
		lines = append(lines, "Description: "+orDash(d.Description))
	}

	if d.Kind == db.KindExpense && !d.IsCardPayment {
		lines = append(lines, b.categoryLine(ctx, user, d))
	}

	if d.Kind == db.KindExpense || d.IsCardPayment {
		lines = append(lines, b.cardLine(ctx, user, d))
	}

	return strings.Join(lines, "\n")
}

func (b *Bot) categoryLine(ctx context.Context, user *db.User, d *DraftPayload) string {
	label := "Categoría"
	if normalizeLang(user.Language) == LangEN {
		label = "Category"
	}

	if d.CategoryID != nil {
		cat, err := b.fin.CategoryByID(ctx, user.ID, *d.CategoryID)
		if err == nil && cat != nil {
			return label + ": " + cat.Name
		}
	}

	kw := d.CategoryKeyword
	if kw == "" {
		kw = keywordFromDescription(d.Description)
	}
	if normalizeLang(user.Language) == LangEN {
		return label + ": (unassigned · keyword: " + kw + ")"
	}
	return label + ": (sin asignar · keyword: " + kw + ")"
}

func (b *Bot) cardLine(ctx context.Context, user *db.User, d *DraftPayload) string {
	label := "Tarjeta"
	none := "(sin tarjeta)"
	missing := "(no encontrada)"
	if normalizeLang(user.Language) == LangEN {
		label, none, missing = "Card", "(no card)", "(not found)"
	}

	if d.CardID == nil {
		return label + ": " + none
	}
	card, err := b.fin.CardByID(ctx, user.ID, *d.CardID)
	if err != nil || card == nil {
		return label + ": " + missing
	}
	return label + ": " + card.Label()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
