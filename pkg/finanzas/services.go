package finanzas

import (
	"context"
	"time"

	"github.com/luisgil43/finanzasbot/pkg/fx"

	"github.com/shopspring/decimal"
)

// RateSource supplies the USD to CLP conversion rate.
type RateSource interface {
	USDToCLP(ctx context.Context) fx.Rate
}

// StaticRateSource is a RateSource returning a fixed rate, for tests
// and for running without network access.
type StaticRateSource struct {
	Rate decimal.Decimal
}

func (s StaticRateSource) USDToCLP(ctx context.Context) fx.Rate {
	return fx.Rate{Value: s.Rate, Source: "static", Timestamp: time.Now()}
}
