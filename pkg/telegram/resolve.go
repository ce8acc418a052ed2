package telegram

import (
	"regexp"
	"strings"

	"github.com/luisgil43/finanzasbot/pkg/db"
)

var diacriticsReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ä", "a", "â", "a",
	"é", "e", "è", "e", "ë", "e", "ê", "e",
	"í", "i", "ì", "i", "ï", "i", "î", "i",
	"ó", "o", "ò", "o", "ö", "o", "ô", "o",
	"ú", "u", "ù", "u", "ü", "u", "û", "u",
	"ñ", "n",
)

// normalizeText lowercases, strips accents and collapses whitespace so
// "Itaú" matches "itau".
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = diacriticsReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	reLast4Hint = regexp.MustCompile(`\b(\d{4})\b`)
	reWordSplit = regexp.MustCompile(`[^a-z0-9]+`)

	cardStopWords = map[string]struct{}{
		"gasto": {}, "expense": {}, "ingreso": {}, "income": {},
		"tarjeta": {}, "card": {}, "credito": {}, "credit": {},
		"clp": {}, "usd": {}, "pago": {}, "payment": {},
	}
)

// textMentionsCard reports whether the message talks about a card at
// all. A plain expense that never does skips the card prompt.
func textMentionsCard(text string) bool {
	low := normalizeText(text)
	for _, w := range []string{"tarjeta", "card", "credito", "credit"} {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

// resolveCard matches free text against the user's cards. An exact
// last-4 hit wins outright. Otherwise every word of 3+ characters
// (minus command noise) is scored as a substring of the card's
// name/bank/brand/last4 blob; a unique top scorer resolves, ties come
// back as candidates for a numbered prompt.
func resolveCard(text string, cards []db.Card) (*db.Card, []db.Card) {
	if len(cards) == 0 {
		return nil, nil
	}

	tnorm := normalizeText(text)

	if last4 := reLast4Hint.FindString(tnorm); last4 != "" {
		var hits []db.Card
		for i := range cards {
			if cards[i].Last4 == last4 {
				hits = append(hits, cards[i])
			}
		}
		if len(hits) == 1 {
			return &hits[0], hits
		}
		if len(hits) > 1 {
			return nil, hits
		}
	}

	var words []string
	for _, w := range reWordSplit.Split(tnorm, -1) {
		if len(w) < 3 {
			continue
		}
		if _, stop := cardStopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, nil
	}

	type scoredCard struct {
		score int
		card  db.Card
	}
	var scored []scoredCard
	for _, c := range cards {
		blob := normalizeText(c.Name + " " + c.Bank + " " + c.Brand + " " + c.Last4)
		score := 0
		for _, w := range words {
			if strings.Contains(blob, w) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredCard{score, c})
		}
	}
	if len(scored) == 0 {
		return nil, nil
	}

	best := scored[0].score
	for _, s := range scored[1:] {
		if s.score > best {
			best = s.score
		}
	}
	var top []db.Card
	for _, s := range scored {
		if s.score == best {
			top = append(top, s.card)
		}
	}
	if len(top) == 1 {
		return &top[0], top
	}
	return nil, top
}

var descStopWords = map[string]struct{}{
	"de": {}, "del": {}, "la": {}, "el": {}, "los": {}, "las": {},
	"y": {}, "para": {}, "por": {}, "en": {}, "a": {}, "un": {}, "una": {},
}

// keywordFromDescription extracts the budget matching keyword: the
// first content word of the description.
func keywordFromDescription(desc string) string {
	d := normalizeText(desc)
	for _, w := range reWordSplit.Split(d, -1) {
		if w == "" {
			continue
		}
		if _, stop := descStopWords[w]; stop {
			continue
		}
		return w
	}
	if len(d) > 24 {
		return d[:24]
	}
	if d == "" {
		return "—"
	}
	return d
}

// categoryForKeyword finds the category whose keyword list contains
// the normalized keyword. Comparison is accent-insensitive.
func categoryForKeyword(keyword string, cats []db.BudgetCategory) *db.BudgetCategory {
	kw := normalizeText(keyword)
	if kw == "" {
		return nil
	}
	for i := range cats {
		for _, k := range cats[i].Keywords() {
			if normalizeText(k) == kw {
				return &cats[i]
			}
		}
	}
	return nil
}
