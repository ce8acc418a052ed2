package telegram

import (
	"fmt"
	"strings"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
)

// groupThousands inserts sep every three digits of a plain integer
// string, keeping a leading minus sign intact.
func groupThousands(digits, sep string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	n := len(digits)
	if n <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// fmtCLP renders whole pesos with "." thousands: 1234567 -> 1.234.567
func fmtCLP(x decimal.Decimal) string {
	return groupThousands(x.Round(0).String(), ".")
}

// fmtUSDLatam renders dollars with "." thousands and "," cents:
// 1234.5 -> 1.234,50
func fmtUSDLatam(x decimal.Decimal) string {
	s := x.Round(2).StringFixed(2)
	dot := strings.LastIndex(s, ".")
	return groupThousands(s[:dot], ".") + "," + s[dot+1:]
}

// fmtUSDEnglish renders dollars with "," thousands: 1234.5 -> 1,234.50
func fmtUSDEnglish(x decimal.Decimal) string {
	s := x.Round(2).StringFixed(2)
	dot := strings.LastIndex(s, ".")
	return groupThousands(s[:dot], ",") + "." + s[dot+1:]
}

// formatMoney renders an amount for chat output in the user's locale.
func formatMoney(amount decimal.Decimal, currency, lang string) string {
	if currency == db.CurrencyUSD {
		if normalizeLang(lang) == LangES {
			return fmtUSDLatam(amount)
		}
		return fmtUSDEnglish(amount)
	}
	if normalizeLang(lang) == LangES {
		return fmtCLP(amount)
	}
	return groupThousands(amount.Round(0).String(), ",")
}

func kindLabel(kind, lang string) string {
	if normalizeLang(lang) == LangEN {
		if kind == db.KindExpense {
			return "Expense"
		}
		return "Income"
	}
	if kind == db.KindExpense {
		return "Gasto"
	}
	return "Ingreso"
}

// approxCLP renders the " ≈ 12.345 CLP" suffix shown next to USD
// amounts; empty for CLP records.
func approxCLP(amountCLP decimal.Decimal, currency string) string {
	if currency != db.CurrencyUSD {
		return ""
	}
	return " ≈ " + fmtCLP(amountCLP) + " CLP"
}

const (
	maxCardsInPrompt      = 8
	maxCategoriesInPrompt = 10
	maxBudgetsInPrompt    = 10
)

// renderCardsPrompt builds the numbered card list, capped with a
// "+N más" overflow line.
func renderCardsPrompt(cards []db.Card) string {
	if len(cards) == 0 {
		return "(sin tarjetas)"
	}
	var lines []string
	for i, c := range cards {
		if i == maxCardsInPrompt {
			break
		}
		lines = append(lines, fmt.Sprintf("%d) %s", i+1, c.Label()))
	}
	if len(cards) > maxCardsInPrompt {
		lines = append(lines, fmt.Sprintf("... (+%d más)", len(cards)-maxCardsInPrompt))
	}
	return strings.Join(lines, "\n")
}

func renderCategoriesPrompt(cats []db.BudgetCategory) string {
	if len(cats) == 0 {
		return "—"
	}
	var lines []string
	for i, c := range cats {
		if i == maxCategoriesInPrompt {
			break
		}
		lines = append(lines, fmt.Sprintf("%d) %s", i+1, c.Name))
	}
	if len(cats) > maxCategoriesInPrompt {
		lines = append(lines, fmt.Sprintf("... (+%d más)", len(cats)-maxCategoriesInPrompt))
	}
	return strings.Join(lines, "\n")
}

func renderBudgetsPrompt(buds []db.MonthlyBudget) string {
	if len(buds) == 0 {
		return "—"
	}
	var lines []string
	for i, b := range buds {
		if i == maxBudgetsInPrompt {
			break
		}
		name := "—"
		if b.Category != nil {
			name = b.Category.Name
		}
		lines = append(lines, fmt.Sprintf("%d) %s: %s CLP", i+1, name, fmtCLP(b.AmountCLP)))
	}
	if len(buds) > maxBudgetsInPrompt {
		lines = append(lines, fmt.Sprintf("... (+%d más)", len(buds)-maxBudgetsInPrompt))
	}
	return strings.Join(lines, "\n")
}

// movementLine is one row of a movements listing.
func movementLine(tx db.Transaction, lang string) string {
	desc := tx.Description
	if desc == "" {
		desc = "—"
	}
	return fmt.Sprintf("ID %d · %s %s %s · %s",
		tx.ID, kindLabel(tx.Kind, lang), formatMoney(tx.AmountOriginal, tx.CurrencyOriginal, lang), tx.CurrencyOriginal, desc)
}
