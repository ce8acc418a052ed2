package telegram

import (
	"testing"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransaction(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantNil  bool
		kind     string
		amount   string
		currency string
		desc     string
	}{
		{name: "expense clp", text: "Gasto 3.290 Uber", kind: db.KindExpense, amount: "3290", currency: db.CurrencyCLP, desc: "uber"},
		{name: "income clp", text: "Ingreso 500.000 Sueldo", kind: db.KindIncome, amount: "500000", currency: db.CurrencyCLP, desc: "sueldo"},
		{name: "expense usd", text: "Gasto 12 USD Burger", kind: db.KindExpense, amount: "12", currency: db.CurrencyUSD, desc: "burger"},
		{name: "expense usd cents", text: "Expense 12.50 USD coffee", kind: db.KindExpense, amount: "12.5", currency: db.CurrencyUSD, desc: "coffee"},
		{name: "english income", text: "Income 1000 salary", kind: db.KindIncome, amount: "1000", currency: db.CurrencyCLP, desc: "salary"},
		{name: "desc before amount", text: "Gasto farmacia 8.990", kind: db.KindExpense, amount: "8990", currency: db.CurrencyCLP, desc: "farmacia"},
		{name: "dollar sign stripped from desc", text: "Gasto 12$ snack", kind: db.KindExpense, amount: "12", currency: db.CurrencyUSD, desc: "snack"},
		{name: "no description", text: "Gasto 5000", kind: db.KindExpense, amount: "5000", currency: db.CurrencyCLP, desc: "—"},
		{name: "no kind prefix", text: "3.290 Uber", wantNil: true},
		{name: "no amount", text: "Gasto Uber", wantNil: true},
		{name: "bare kind is not one-shot", text: "Gasto", wantNil: true},
		{name: "empty", text: "", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTransaction(tt.text)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.True(t, got.Amount.Equal(decimal.RequireFromString(tt.amount)), "amount %s", got.Amount)
			assert.Equal(t, tt.currency, got.Currency)
			assert.Equal(t, tt.desc, got.Description)
		})
	}
}

func TestParseCardPayment(t *testing.T) {
	got := ParseCardPayment("Pago tarjeta 120.000 Itaú")
	require.NotNil(t, got)
	assert.Equal(t, db.KindExpense, got.Kind)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(120000)))
	assert.Equal(t, db.CurrencyCLP, got.Currency)
	assert.Equal(t, "Pago tarjeta", got.Description)

	got = ParseCardPayment("card payment 200 usd")
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, db.CurrencyUSD, got.Currency)
	assert.Equal(t, "Card payment", got.Description)

	assert.Nil(t, ParseCardPayment("Pago tarjeta"))
	assert.Nil(t, ParseCardPayment("Gasto 3290 Uber"))
}

func TestIsCardPayPrefixOnly(t *testing.T) {
	assert.True(t, isCardPayPrefixOnly("Pago tarjeta"))
	assert.True(t, isCardPayPrefixOnly("pago de tc"))
	assert.False(t, isCardPayPrefixOnly("Pago tarjeta 120000"))
	assert.False(t, isCardPayPrefixOnly("gasto"))
}

func TestParseWizardKind(t *testing.T) {
	kind, ok := parseWizardKind("Gasto")
	require.True(t, ok)
	assert.Equal(t, db.KindExpense, kind)

	kind, ok = parseWizardKind("income")
	require.True(t, ok)
	assert.Equal(t, db.KindIncome, kind)

	_, ok = parseWizardKind("Gasto 3290")
	assert.False(t, ok)
}

func TestParseLoan(t *testing.T) {
	pl := ParseLoan("Préstamo 45000 a Rosa en 3 cuotas vence 2026-01-15")
	require.NotNil(t, pl)
	assert.Equal(t, db.DirectionLent, pl.Direction)
	assert.Equal(t, "Rosa", pl.PersonName)
	assert.True(t, pl.Amount.Equal(decimal.NewFromInt(45000)))
	assert.Equal(t, db.CurrencyCLP, pl.Currency)
	assert.Equal(t, 3, pl.Installments)
	require.NotNil(t, pl.FirstDueDate)
	assert.Equal(t, "2026-01-15", pl.FirstDueDate.Format("2006-01-02"))

	pl = ParseLoan("Prestamo 45000 a Rosa")
	require.NotNil(t, pl)
	assert.Equal(t, "Rosa", pl.PersonName)
	assert.Zero(t, pl.Installments)
	assert.Nil(t, pl.FirstDueDate)

	pl = ParseLoan("me prestó 20000 para Juan")
	require.NotNil(t, pl)
	assert.Equal(t, db.DirectionBorrowed, pl.Direction)
	assert.Equal(t, "Juan", pl.PersonName)

	pl = ParseLoan("Loan 300 usd to Peter in 6 installments")
	require.NotNil(t, pl)
	assert.Equal(t, "Peter", pl.PersonName)
	assert.Equal(t, db.CurrencyUSD, pl.Currency)
	assert.Equal(t, 6, pl.Installments)

	assert.Nil(t, ParseLoan("Gasto 3290 Uber"))
	assert.Nil(t, ParseLoan("Préstamo a Rosa"))
}

func TestParseMovementsQuery(t *testing.T) {
	now := time.Date(2025, 12, 18, 15, 30, 0, 0, time.UTC)
	today := time.Date(2025, 12, 18, 0, 0, 0, 0, time.UTC)

	from, to := parseMovementsQuery("Movimientos hoy", now)
	require.NotNil(t, from)
	assert.Nil(t, to)
	assert.Equal(t, today, *from)

	from, to = parseMovementsQuery("Movements yesterday", now)
	require.NotNil(t, from)
	assert.Nil(t, to)
	assert.Equal(t, today.AddDate(0, 0, -1), *from)

	from, to = parseMovementsQuery("Movimientos 2025-12-01", now)
	require.NotNil(t, from)
	assert.Nil(t, to)
	assert.Equal(t, "2025-12-01", from.Format("2006-01-02"))

	from, to = parseMovementsQuery("Movimientos 2025-12-10 a 2025-12-15", now)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, "2025-12-10", from.Format("2006-01-02"))
	assert.Equal(t, "2025-12-15", to.Format("2006-01-02"))

	from, _ = parseMovementsQuery("Movimientos", now)
	assert.Nil(t, from)
	from, _ = parseMovementsQuery("Gasto 3290 Uber", now)
	assert.Nil(t, from)
}

func TestParseSummaryQuery(t *testing.T) {
	month, ok := parseSummaryQuery("Resumen 2025-12")
	require.True(t, ok)
	assert.Equal(t, "2025-12-01", month.Format("2006-01-02"))

	month, ok = parseSummaryQuery("summary 2026-01")
	require.True(t, ok)
	assert.Equal(t, "2026-01-01", month.Format("2006-01-02"))

	_, ok = parseSummaryQuery("Resumen 2025-13")
	assert.False(t, ok)
	_, ok = parseSummaryQuery("Resumen")
	assert.False(t, ok)
	_, ok = parseSummaryQuery("Gasto 3290")
	assert.False(t, ok)
}

func TestParseDeleteCommand(t *testing.T) {
	isDelete, id, last := parseDeleteCommand("Eliminar 123")
	assert.True(t, isDelete)
	assert.Equal(t, 123, id)
	assert.False(t, last)

	isDelete, _, last = parseDeleteCommand("Eliminar último")
	assert.True(t, isDelete)
	assert.True(t, last)

	isDelete, _, last = parseDeleteCommand("delete last")
	assert.True(t, isDelete)
	assert.True(t, last)

	isDelete, id, last = parseDeleteCommand("Eliminar")
	assert.True(t, isDelete)
	assert.Zero(t, id)
	assert.False(t, last)

	isDelete, _, _ = parseDeleteCommand("Gasto 123")
	assert.False(t, isDelete)
}

func TestShouldOCR(t *testing.T) {
	assert.True(t, shouldOCR("", true))
	assert.True(t, shouldOCR("leer boleta", true))
	assert.True(t, shouldOCR("scan this receipt", true))
	assert.False(t, shouldOCR("gasto 3290 uber", true))
	assert.False(t, shouldOCR("", false))
}

func TestParseCardChoice(t *testing.T) {
	n, ok := parseCardChoice("2", 3)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = parseCardChoice("sin tarjeta", 3)
	require.True(t, ok)
	assert.Zero(t, n)

	_, ok = parseCardChoice("4", 3)
	assert.False(t, ok)
	_, ok = parseCardChoice("itau", 3)
	assert.False(t, ok)
}

func TestParseChoice(t *testing.T) {
	choice, ok := parseChoice("2", 3)
	require.True(t, ok)
	assert.Equal(t, "2", choice)

	choice, ok = parseChoice("C", 3)
	require.True(t, ok)
	assert.Equal(t, choiceCancel, choice)

	choice, ok = parseChoice("0", 3)
	require.True(t, ok)
	assert.Equal(t, choiceSkip, choice)

	choice, ok = parseChoice("n", 3)
	require.True(t, ok)
	assert.Equal(t, choiceNew, choice)

	_, ok = parseChoice("9", 3)
	assert.False(t, ok)
}

func TestStartCommand(t *testing.T) {
	code, ok := parseStartCommand("/start abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", code)

	code, ok = parseStartCommand("/start")
	require.True(t, ok)
	assert.Empty(t, code)

	_, ok = parseStartCommand("start abc")
	assert.False(t, ok)
}

func TestParseLanguageCommand(t *testing.T) {
	lang, ok := parseLanguageCommand("Idioma en")
	require.True(t, ok)
	assert.Equal(t, LangEN, lang)

	lang, ok = parseLanguageCommand("/language es")
	require.True(t, ok)
	assert.Equal(t, LangES, lang)

	_, ok = parseLanguageCommand("idioma")
	assert.False(t, ok)

	_, ok = parseLanguageCommand("idioma fr")
	assert.False(t, ok)

	_, ok = parseLanguageCommand("language en please")
	assert.False(t, ok)
}
