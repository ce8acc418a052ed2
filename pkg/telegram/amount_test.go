package telegram

import (
	"testing"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		currency string
		want     string
		wantOK   bool
	}{
		{"clp plain", "3290", db.CurrencyCLP, "3290", true},
		{"clp dot thousands", "3.290", db.CurrencyCLP, "3290", true},
		{"clp multiple dots", "1.234.567", db.CurrencyCLP, "1234567", true},
		{"clp comma thousands", "500,000", db.CurrencyCLP, "500000", true},
		{"clp dot cents shape is still thousands", "12.50", db.CurrencyCLP, "1250", true},
		{"usd dot cents", "12.50", db.CurrencyUSD, "12.5", true},
		{"usd comma cents", "12,50", db.CurrencyUSD, "12.5", true},
		{"usd one cent digit", "12,5", db.CurrencyUSD, "12.5", true},
		{"usd comma thousands", "1,200", db.CurrencyUSD, "1200", true},
		{"usd three decimals means thousands", "1.200", db.CurrencyUSD, "1200", true},
		{"both separators dot decimal", "1,234.56", db.CurrencyUSD, "1234.56", true},
		{"both separators comma decimal", "1.234,56", db.CurrencyUSD, "1234.56", true},
		{"both separators clp", "1.234,56", db.CurrencyCLP, "1234.56", true},
		{"negative", "-3.290", db.CurrencyCLP, "-3290", true},
		{"zero rejected", "0", db.CurrencyCLP, "", false},
		{"empty", "", db.CurrencyCLP, "", false},
		{"garbage", "abc", db.CurrencyCLP, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.raw, tt.currency)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"gasto 3.290 uber", db.CurrencyCLP},
		{"gasto 12 usd burger", db.CurrencyUSD},
		{"gasto 12 dólares burger", db.CurrencyUSD},
		{"gasto 5000 pesos", db.CurrencyCLP},
		{"gasto 12$ snack", db.CurrencyUSD},
		{"gasto 12$ clp snack", db.CurrencyCLP},
		{"gasto 3290 ch$ uber", db.CurrencyCLP},
		// "clp" outranks "usd" when both appear
		{"gasto 10 usd a clp", db.CurrencyCLP},
		{"ingreso 500000 sueldo", db.CurrencyCLP},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCurrency(tt.text))
		})
	}
}

func TestParseAmountAndCurrency(t *testing.T) {
	amount, currency, ok := parseAmountAndCurrency("12,50 usd")
	require.True(t, ok)
	assert.Equal(t, db.CurrencyUSD, currency)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.5")))

	amount, currency, ok = parseAmountAndCurrency("3.290")
	require.True(t, ok)
	assert.Equal(t, db.CurrencyCLP, currency)
	assert.True(t, amount.Equal(decimal.NewFromInt(3290)))

	_, _, ok = parseAmountAndCurrency("no number here")
	assert.False(t, ok)
}

func TestParseCurrencyOnly(t *testing.T) {
	for text, want := range map[string]string{
		"CLP":     db.CurrencyCLP,
		"pesos":   db.CurrencyCLP,
		"usd":     db.CurrencyUSD,
		"dólares": db.CurrencyUSD,
	} {
		got, ok := parseCurrencyOnly(text)
		require.True(t, ok, text)
		assert.Equal(t, want, got)
	}
	_, ok := parseCurrencyOnly("euros")
	assert.False(t, ok)
}

func TestParseIntAmountCLP(t *testing.T) {
	got, ok := parseIntAmountCLP("150.000")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(150000)))

	got, ok = parseIntAmountCLP("150000")
	require.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(150000)))

	_, ok = parseIntAmountCLP("-5")
	assert.False(t, ok)
	_, ok = parseIntAmountCLP("12abc")
	assert.False(t, ok)
	_, ok = parseIntAmountCLP("")
	assert.False(t, ok)
}
