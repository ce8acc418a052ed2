package finanzas

import (
	"context"
	"testing"

	"github.com/luisgil43/finanzasbot/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vmkteam/embedlog"
)

func TestMergeKeyword(t *testing.T) {
	cases := []struct {
		name     string
		existing string
		keyword  string
		want     string
		changed  bool
	}{
		{"appends new", "uber,metro", "taxi", "uber,metro,taxi", true},
		{"first keyword", "", "uber", "uber", true},
		{"lowercases", "uber", "TAXI ", "uber,taxi", true},
		{"duplicate is noop", "uber,metro", "metro", "uber,metro", false},
		{"duplicate case-insensitive", "uber", "UBER", "uber", false},
		{"empty is noop", "uber", "   ", "uber", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat := &db.BudgetCategory{MatchKeywords: tc.existing}
			assert.Equal(t, tc.changed, mergeKeyword(cat, tc.keyword))
			assert.Equal(t, tc.want, cat.MatchKeywords)
		})
	}
}

func TestAppendCategoryKeywordKnownKeyword(t *testing.T) {
	m := NewManager(db.DB{}, StaticRateSource{Rate: decimal.NewFromInt(950)}, embedlog.NewLogger(false, false))
	cat := &db.BudgetCategory{ID: 1, MatchKeywords: "uber,metro"}

	// an already known keyword must not hit the database at all
	err := m.AppendCategoryKeyword(context.Background(), cat, "Metro")
	assert.NoError(t, err)
	assert.Equal(t, "uber,metro", cat.MatchKeywords)
}

func TestRefreshChatIDNoop(t *testing.T) {
	m := NewManager(db.DB{}, StaticRateSource{Rate: decimal.NewFromInt(950)}, embedlog.NewLogger(false, false))
	chatID := int64(777)
	user := &db.User{ID: 1, TelegramChatID: &chatID}

	// matching id must not hit the database at all
	err := m.RefreshChatID(context.Background(), user, 777)
	assert.NoError(t, err)
	assert.Equal(t, int64(777), *user.TelegramChatID)
}
