package telegram

import (
	"strings"
	"testing"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1.000"},
		{"1234567", "1.234.567"},
		{"-1234567", "-1.234.567"},
		{"-999", "-999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groupThousands(tt.in, "."), tt.in)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		lang     string
		want     string
	}{
		{"clp es", "1234567", db.CurrencyCLP, LangES, "1.234.567"},
		{"clp en", "1234567", db.CurrencyCLP, LangEN, "1,234,567"},
		{"usd es", "1234.5", db.CurrencyUSD, LangES, "1.234,50"},
		{"usd en", "1234.5", db.CurrencyUSD, LangEN, "1,234.50"},
		{"usd cents es", "12.5", db.CurrencyUSD, LangES, "12,50"},
		{"unknown lang falls back to es", "3290", db.CurrencyCLP, "pt", "3.290"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatMoney(decimal.RequireFromString(tt.amount), tt.currency, tt.lang)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApproxCLP(t *testing.T) {
	assert.Equal(t, " ≈ 11.400 CLP", approxCLP(decimal.NewFromInt(11400), db.CurrencyUSD))
	assert.Empty(t, approxCLP(decimal.NewFromInt(11400), db.CurrencyCLP))
}

func TestRenderCardsPromptCap(t *testing.T) {
	var cards []db.Card
	for i := 0; i < 11; i++ {
		cards = append(cards, db.Card{ID: i + 1, Name: "Card", Last4: "1234"})
	}
	out := renderCardsPrompt(cards)
	assert.Contains(t, out, "1) ")
	assert.Contains(t, out, "8) ")
	assert.NotContains(t, out, "9) ")
	assert.Contains(t, out, "(+3 más)")
	assert.Equal(t, maxCardsInPrompt+1, len(strings.Split(out, "\n")))
}

func TestRenderCategoriesPromptCap(t *testing.T) {
	var cats []db.BudgetCategory
	for i := 0; i < 12; i++ {
		cats = append(cats, db.BudgetCategory{ID: i + 1, Name: "Cat"})
	}
	out := renderCategoriesPrompt(cats)
	assert.Contains(t, out, "10) ")
	assert.NotContains(t, out, "11) ")
	assert.Contains(t, out, "(+2 más)")

	assert.Equal(t, "—", renderCategoriesPrompt(nil))
}

func TestMovementLine(t *testing.T) {
	tx := db.Transaction{
		ID:               42,
		Kind:             db.KindExpense,
		AmountOriginal:   decimal.NewFromInt(3290),
		CurrencyOriginal: db.CurrencyCLP,
		Description:      "uber",
	}
	assert.Equal(t, "ID 42 · Gasto 3.290 CLP · uber", movementLine(tx, LangES))
	assert.Equal(t, "ID 42 · Expense 3,290 CLP · uber", movementLine(tx, LangEN))
}

func TestMsgCatalog(t *testing.T) {
	out := msg(LangES, "tx_saved", map[string]string{
		"label": "Gasto", "amount": "3.290", "cur": "CLP", "approx": "", "desc": "uber", "id": "7",
	})
	assert.Contains(t, out, "Gasto 3.290 CLP · uber")
	assert.Contains(t, out, "ID: 7")

	// unknown language falls back to spanish
	assert.Equal(t, msg(LangES, "help", nil), msg("fr", "help", nil))
	assert.NotEqual(t, msg(LangES, "tx_dupe", nil), msg(LangEN, "tx_dupe", nil))
}
