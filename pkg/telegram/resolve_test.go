package telegram

import (
	"testing"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCards() []db.Card {
	return []db.Card{
		{ID: 1, Name: "Visa Gold", Bank: "Itaú", Brand: "Visa", Last4: "1234"},
		{ID: 2, Name: "Mastercard Black", Bank: "Santander", Brand: "Mastercard", Last4: "5678"},
		{ID: 3, Name: "Visa Débito", Bank: "BancoEstado", Brand: "Visa", Last4: "9012"},
	}
}

func TestResolveCardLast4(t *testing.T) {
	resolved, candidates := resolveCard("gasto 12000 uber 5678", testCards())
	require.NotNil(t, resolved)
	assert.Equal(t, 2, resolved.ID)
	assert.Len(t, candidates, 1)

	// duplicated last4 comes back as candidates
	cards := append(testCards(), db.Card{ID: 4, Name: "Otra", Bank: "Falabella", Last4: "5678"})
	resolved, candidates = resolveCard("pago 5678", cards)
	assert.Nil(t, resolved)
	assert.Len(t, candidates, 2)
}

func TestResolveCardByName(t *testing.T) {
	resolved, _ := resolveCard("gasto 12000 uber itau", testCards())
	require.NotNil(t, resolved)
	assert.Equal(t, 1, resolved.ID)

	resolved, _ = resolveCard("pago santander", testCards())
	require.NotNil(t, resolved)
	assert.Equal(t, 2, resolved.ID)

	// accents in the message still match
	resolved, _ = resolveCard("gasto 5000 Itaú", testCards())
	require.NotNil(t, resolved)
	assert.Equal(t, 1, resolved.ID)
}

func TestResolveCardTies(t *testing.T) {
	// "visa" matches two cards with the same score
	resolved, candidates := resolveCard("gasto 12000 visa", testCards())
	assert.Nil(t, resolved)
	assert.Len(t, candidates, 2)

	// command noise alone resolves nothing
	resolved, candidates = resolveCard("gasto tarjeta", testCards())
	assert.Nil(t, resolved)
	assert.Empty(t, candidates)

	resolved, candidates = resolveCard("gasto 12000 uber", testCards())
	assert.Nil(t, resolved)
	assert.Empty(t, candidates)
}

func TestResolveCardNoCards(t *testing.T) {
	resolved, candidates := resolveCard("itau", nil)
	assert.Nil(t, resolved)
	assert.Nil(t, candidates)
}

func TestKeywordFromDescription(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Uber al aeropuerto", "uber"},
		{"de la farmacia", "farmacia"},
		{"para el super", "super"},
		{"EN EL RESTAURANT", "restaurant"},
		{"", "—"},
		{"de", "de"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, keywordFromDescription(tt.desc))
		})
	}
}

func TestCategoryForKeyword(t *testing.T) {
	cats := []db.BudgetCategory{
		{ID: 1, Name: "Transporte", MatchKeywords: "uber,taxi,metro"},
		{ID: 2, Name: "Comida", MatchKeywords: "restaurant, sushi"},
	}

	got := categoryForKeyword("uber", cats)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)

	// keyword list entries are trimmed and accent-insensitive
	got = categoryForKeyword("Restaurant", cats)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.ID)

	assert.Nil(t, categoryForKeyword("farmacia", cats))
	assert.Nil(t, categoryForKeyword("", cats))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "itau visa", normalizeText("  Itaú   VISA "))
	assert.Equal(t, "nino", normalizeText("NIÑO"))
}
