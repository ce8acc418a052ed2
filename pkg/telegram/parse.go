package telegram

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
)

// ParsedTx is the result of a one-shot transaction message.
type ParsedTx struct {
	Kind        string
	Amount      decimal.Decimal
	Currency    string
	Description string
	RawText     string
}

var (
	kindPrefixesExpense = []string{"gasto", "expense", "egreso", "out"}
	kindPrefixesIncome  = []string{"ingreso", "income", "in"}

	cardPayPrefixes = []string{
		"pago tarjeta",
		"pago de tarjeta",
		"pagar tarjeta",
		"pago tc",
		"pago de tc",
		"pago t/c",
		"card payment",
		"pay card",
		"payment card",
	}

	ocrHintWords = []string{"ocr", "leer", "lee", "texto", "text", "scan", "boleta", "factura", "receipt", "invoice"}

	reCurrencyWord = regexp.MustCompile(`\b(usd|clp|dolar|dólar|dolares|dólares|uds|ud|usds)\b`)
	reSpaces       = regexp.MustCompile(`\s+`)
)

// ParseTransaction reads a one-shot message like "Gasto 3.290 Uber" or
// "Income 500,000 Salary". The kind prefix is mandatory; everything
// around the amount becomes the description.
func ParseTransaction(text string) *ParsedTx {
	original := strings.TrimSpace(text)
	if original == "" {
		return nil
	}
	low := strings.ToLower(original)

	kind := ""
	for _, p := range kindPrefixesExpense {
		if strings.HasPrefix(low, p+" ") {
			kind = db.KindExpense
			low = strings.TrimSpace(low[len(p):])
			break
		}
	}
	if kind == "" {
		for _, p := range kindPrefixesIncome {
			if strings.HasPrefix(low, p+" ") {
				kind = db.KindIncome
				low = strings.TrimSpace(low[len(p):])
				break
			}
		}
	}
	if kind == "" {
		return nil
	}

	currency := DetectCurrency(low)

	loc := reAmountToken.FindStringIndex(low)
	if loc == nil {
		return nil
	}
	amount, ok := ParseAmount(low[loc[0]:loc[1]], currency)
	if !ok {
		return nil
	}

	desc := strings.TrimSpace(low[:loc[0]] + " " + low[loc[1]:])
	desc = reCurrencyWord.ReplaceAllString(desc, "")
	desc = strings.ReplaceAll(desc, "$", " ")
	desc = strings.TrimSpace(reSpaces.ReplaceAllString(desc, " "))
	if desc == "" {
		desc = "—"
	}

	return &ParsedTx{Kind: kind, Amount: amount, Currency: currency, Description: desc, RawText: original}
}

// ParseCardPayment reads a one-shot card payment like
// "Pago tarjeta 120.000 Itaú". The description is fixed per language.
func ParseCardPayment(text string) *ParsedTx {
	original := strings.TrimSpace(text)
	if original == "" {
		return nil
	}
	low := strings.ToLower(original)

	matched := ""
	for _, p := range cardPayPrefixes {
		if strings.HasPrefix(low, p) {
			matched = p
			break
		}
	}
	if matched == "" {
		return nil
	}

	rest := strings.TrimSpace(low[len(matched):])
	if rest == "" {
		return nil
	}

	currency := DetectCurrency(rest)
	token := reAmountToken.FindString(rest)
	if token == "" {
		return nil
	}
	amount, ok := ParseAmount(token, currency)
	if !ok {
		return nil
	}

	return &ParsedTx{
		Kind:        db.KindExpense,
		Amount:      amount,
		Currency:    currency,
		Description: cardPaymentDescription(langHintFromText(original)),
		RawText:     original,
	}
}

func cardPaymentDescription(lang string) string {
	if lang == LangEN {
		return "Card payment"
	}
	return "Pago tarjeta"
}

func langHintFromText(text string) string {
	low := strings.ToLower(text)
	for _, w := range []string{"expense", "income", "loan", "card payment", "pay card", "payment"} {
		if strings.Contains(low, w) {
			return LangEN
		}
	}
	return LangES
}

// isCardPayPrefixOnly reports a bare card-payment command with no
// amount, which starts the step-by-step wizard.
func isCardPayPrefixOnly(text string) bool {
	low := strings.ToLower(strings.TrimSpace(text))
	for _, p := range cardPayPrefixes {
		if low == p {
			return true
		}
	}
	return false
}

// parseWizardKind reads a bare "gasto"/"income" message that starts
// the step-by-step entry.
func parseWizardKind(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "gasto", "expense":
		return db.KindExpense, true
	case "ingreso", "income":
		return db.KindIncome, true
	}
	return "", false
}

// ParsedLoan is the result of a loan message. Installments and
// FirstDueDate stay unset when the message omits them; the dialogue
// collects the missing ones.
type ParsedLoan struct {
	Direction    string
	PersonName   string
	Amount       decimal.Decimal
	Currency     string
	Installments int
	FirstDueDate *time.Time
}

var (
	reLoanPerson       = regexp.MustCompile(`\b(a|para|to)\s+([a-záéíóúñü0-9 _.-]{2,}?)(\bcuotas\b|\binstallments\b|\ben\b|\bin\b|\bvence\b|\bdue\b|\bprimer\b|\bfirst\b|\bpago\b|$)`)
	reLoanInstallments = regexp.MustCompile(`\b(?:cuotas?|installments?)\s+(\d{1,3})\b`)
	reLoanInEn         = regexp.MustCompile(`\b(?:en|in)\s+(\d{1,3})\s+(?:cuotas?|installments?)\b`)
	reLoanFirstDue     = regexp.MustCompile(`\b(?:vence|primer\s+pago|pago|primera\s+cuota|due|first\s+due)\s+(\d{4}-\d{2}-\d{2})\b`)
	reISODate          = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// ParseLoan reads messages like "Préstamo 45000 a Rosa en 3 cuotas
// vence 2026-01-15". "me prestó" flips the direction to borrowed.
func ParseLoan(text string) *ParsedLoan {
	low := strings.ToLower(strings.TrimSpace(text))
	if low == "" {
		return nil
	}

	mentionsLoan := strings.Contains(low, "prestamo") || strings.Contains(low, "préstamo") ||
		strings.Contains(low, "presté") || strings.Contains(low, "preste") ||
		strings.Contains(low, "me prest") || strings.Contains(low, "loan")
	if !mentionsLoan {
		return nil
	}

	direction := db.DirectionLent
	if strings.Contains(low, "me prest") {
		direction = db.DirectionBorrowed
	}

	currency := DetectCurrency(low)
	token := reAmountToken.FindString(low)
	if token == "" {
		return nil
	}
	amount, ok := ParseAmount(token, currency)
	if !ok {
		return nil
	}

	person := ""
	if m := reLoanPerson.FindStringSubmatch(low); m != nil {
		person = strings.TrimSpace(m[2])
	}
	person = strings.TrimSpace(reSpaces.ReplaceAllString(person, " "))
	if person == "" {
		return nil
	}
	person = titleCase(person)

	pl := &ParsedLoan{Direction: direction, PersonName: person, Amount: amount, Currency: currency}

	m := reLoanInstallments.FindStringSubmatch(low)
	if m == nil {
		m = reLoanInEn.FindStringSubmatch(low)
	}
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			pl.Installments = n
		}
	}

	if m := reLoanFirstDue.FindStringSubmatch(low); m != nil {
		if d, ok := parseDateISO(m[1]); ok {
			pl.FirstDueDate = &d
		}
	}

	return pl
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

// parseDateISO reads a strict YYYY-MM-DD date.
func parseDateISO(s string) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// parseMovementsQuery reads "Movimientos hoy", "Movements 2025-12-18"
// or "Movimientos 2025-12-10 a 2025-12-15". The second date is nil for
// single-day queries.
func parseMovementsQuery(text string, now time.Time) (*time.Time, *time.Time) {
	low := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(low, "mov") {
		return nil, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if strings.Contains(low, "hoy") || strings.Contains(low, "today") {
		return &today, nil
	}
	if strings.Contains(low, "ayer") || strings.Contains(low, "yesterday") {
		y := today.AddDate(0, 0, -1)
		return &y, nil
	}

	dates := reISODate.FindAllString(low, 2)
	if len(dates) == 0 {
		return nil, nil
	}

	d1, ok := parseDateISO(dates[0])
	if !ok {
		return nil, nil
	}
	if len(dates) >= 2 {
		if d2, ok := parseDateISO(dates[1]); ok {
			return &d1, &d2
		}
	}
	return &d1, nil
}

var reYearMonth = regexp.MustCompile(`(\d{4})-(\d{2})`)

// parseSummaryQuery reads "Resumen 2025-12" / "Summary 2025-12".
func parseSummaryQuery(text string) (time.Time, bool) {
	low := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(low, "res") && !strings.HasPrefix(low, "summary") {
		return time.Time{}, false
	}
	m := reYearMonth.FindStringSubmatch(low)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

var reSmallID = regexp.MustCompile(`\b(\d{1,10})\b`)

// parseDeleteCommand reads "Eliminar 123" / "Delete last". isDelete
// reports the delete intent even when the target is missing.
func parseDeleteCommand(text string) (isDelete bool, txID int, isLast bool) {
	low := strings.ToLower(strings.TrimSpace(text))
	if !strings.HasPrefix(low, "eliminar") && !strings.HasPrefix(low, "delete") {
		return false, 0, false
	}
	if strings.Contains(low, "último") || strings.Contains(low, "ultimo") || strings.Contains(low, "last") {
		return true, 0, true
	}
	if m := reSmallID.FindStringSubmatch(low); m != nil {
		id, _ := strconv.Atoi(m[1])
		return true, id, false
	}
	return true, 0, false
}

func isLoansListQuery(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "prestamos", "préstamos", "loans":
		return true
	}
	return false
}

func isHelpCommand(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/help", "help", "ayuda":
		return true
	}
	return false
}

// parseLanguageCommand recognizes "idioma es|en" and "language es|en",
// with or without a leading slash.
func parseLanguageCommand(text string) (string, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) != 2 {
		return "", false
	}
	switch strings.TrimPrefix(fields[0], "/") {
	case "idioma", "language", "lang":
	default:
		return "", false
	}
	switch fields[1] {
	case LangES, LangEN:
		return fields[1], true
	}
	return "", false
}

func isCancelReply(text string) bool {
	switch normalizeText(text) {
	case "c", "cancelar", "cancel", "/cancel", "/cancelar":
		return true
	}
	return false
}

// shouldOCR decides the OCR route: media with no caption always goes
// through OCR, media with a caption only when the caption hints at it.
func shouldOCR(caption string, hasMedia bool) bool {
	if !hasMedia {
		return false
	}
	t := strings.ToLower(strings.TrimSpace(caption))
	if t == "" {
		return true
	}
	for _, w := range ocrHintWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// parseCardChoice reads a numbered card answer; 0 means "no card".
func parseCardChoice(text string, maxN int) (int, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return 0, false
	}
	switch t {
	case "0", "sin tarjeta", "sintarjeta", "no card", "none", "ninguna", "sin", "no":
		return 0, true
	}
	n, err := strconv.Atoi(t)
	if err != nil || n < 0 || n > maxN {
		return 0, false
	}
	return n, true
}

// choice answers in the category/budget prompts
const (
	choiceCancel = "C"
	choiceSkip   = "0"
	choiceNew    = "N"
)

// parseChoice reads a numbered answer with the special replies C
// (cancel), 0 (skip) and N (new amount). Numeric answers come back as
// their digits.
func parseChoice(text string, maxN int) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "c", "cancelar", "cancel", "/cancel", "/cancelar":
		return choiceCancel, true
	case "0":
		return choiceSkip, true
	case "n":
		return choiceNew, true
	}
	n, err := strconv.Atoi(t)
	if err != nil || n < 1 || n > maxN {
		return "", false
	}
	return strconv.Itoa(n), true
}
