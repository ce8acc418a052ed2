package telegram

import (
	"regexp"
	"strings"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
)

// Amount parsing is locale-sensitive: "3.290" is three thousand two
// hundred ninety pesos, "12.50" is twelve and a half dollars. The
// separator meaning depends on which separators appear and on the
// already detected currency.

var (
	reAmountToken  = regexp.MustCompile(`-?\d[\d.,]*`)
	reAmountJunk   = regexp.MustCompile(`[^0-9.,-]`)
	reCommaCents   = regexp.MustCompile(`^-?\d+,\d{1,2}$`)
	reDotCents     = regexp.MustCompile(`^-?\d+\.\d{1,2}$`)
	reDollarSuffix = regexp.MustCompile(`\d[\d.,]*\s*\$`)
)

// ParseAmount interprets a numeric token under the given currency.
// Returns false when the token does not resolve to a non-zero amount.
//
// Rules:
//   - both "." and "," present: the rightmost one is the decimal
//     separator, the other is a thousands separator;
//   - only ",": decimal separator only for USD amounts shaped like
//     "12,50", otherwise thousands;
//   - only ".": thousands for CLP; for USD it is decimal only with 1-2
//     fraction digits ("12.50"), otherwise thousands ("3.290").
func ParseAmount(raw, currency string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if s == "" {
		return decimal.Zero, false
	}
	s = reAmountJunk.ReplaceAllString(s, "")

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		}
	case commas > 0:
		if currency == db.CurrencyUSD && reCommaCents.MatchString(s) {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case dots > 0:
		if currency == db.CurrencyCLP || !reDotCents.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

var (
	currencyWordsCLP = []string{"clp", "peso", "pesos", "ch$", "$clp"}
	currencyWordsUSD = []string{"usd", "dolar", "dólar", "dolares", "dólares", "$us", "us$", "uds", "usds"}
)

// DetectCurrency picks CLP or USD from free text. CLP words win over
// USD words; a bare "$" after digits means USD unless the text also
// carries a CLP marker. The default is CLP.
func DetectCurrency(text string) string {
	low := strings.ToLower(text)

	for _, w := range currencyWordsCLP {
		if strings.Contains(low, w) {
			return db.CurrencyCLP
		}
	}
	for _, w := range currencyWordsUSD {
		if strings.Contains(low, w) {
			return db.CurrencyUSD
		}
	}
	if reDollarSuffix.MatchString(low) && !strings.Contains(low, "ch$") && !strings.Contains(low, "clp") {
		return db.CurrencyUSD
	}
	return db.CurrencyCLP
}

// parseAmountAndCurrency extracts the first numeric token from free
// text together with the detected currency.
func parseAmountAndCurrency(text string) (decimal.Decimal, string, bool) {
	low := strings.ToLower(strings.TrimSpace(text))
	currency := DetectCurrency(low)

	token := reAmountToken.FindString(low)
	if token == "" {
		return decimal.Zero, "", false
	}
	amount, ok := ParseAmount(token, currency)
	if !ok {
		return decimal.Zero, "", false
	}
	return amount, currency, true
}

// parseCurrencyOnly reads a currency answer in an edit prompt.
func parseCurrencyOnly(text string) (string, bool) {
	low := strings.ToLower(strings.TrimSpace(text))
	switch low {
	case "clp", "peso", "pesos":
		return db.CurrencyCLP, true
	case "usd", "dolar", "dólar", "dolares", "dólares":
		return db.CurrencyUSD, true
	}
	if strings.Contains(low, "clp") {
		return db.CurrencyCLP, true
	}
	if strings.Contains(low, "usd") {
		return db.CurrencyUSD, true
	}
	return "", false
}

// parseKindOnly reads a transaction type answer in an edit prompt.
func parseKindOnly(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "gasto", "expense", "egreso", "out":
		return db.KindExpense, true
	case "ingreso", "income", "in":
		return db.KindIncome, true
	}
	return "", false
}

var reDigitsOnly = regexp.MustCompile(`^-?\d+$`)

// parseIntAmountCLP reads a whole CLP amount ("150000", "150.000").
func parseIntAmountCLP(text string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	if !reDigitsOnly.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d.Round(0), true
}
