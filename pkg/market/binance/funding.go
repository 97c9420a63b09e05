package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// FundingRate is the latest premium index snapshot for a perpetual symbol.
type FundingRate struct {
	Symbol          string          `json:"symbol"`
	MarkPrice       decimal.Decimal `json:"mark_price"`
	IndexPrice      decimal.Decimal `json:"index_price"`
	Rate            decimal.Decimal `json:"funding_rate"`
	NextFundingTime time.Time       `json:"next_funding_time"`
	Time            time.Time       `json:"time"`
}

// FundingClient reads funding data from the USD-M futures API.
type FundingClient struct {
	client *futures.Client
}

// NewFundingClient builds a public (unsigned) futures client. A non-empty
// baseURL overrides the venue host; testnet switches to the futures testnet.
func NewFundingClient(baseURL string, testnet bool) *FundingClient {
	if testnet {
		futures.UseTestnet = true
	}
	c := binance.NewFuturesClient("", "")
	if baseURL != "" && !testnet {
		c.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &FundingClient{client: c}
}

// FundingRate fetches the premium index for one symbol.
func (f *FundingClient) FundingRate(ctx context.Context, symbol string) (FundingRate, error) {
	res, err := f.client.NewPremiumIndexService().Symbol(strings.ToUpper(symbol)).Do(ctx)
	if err != nil {
		return FundingRate{}, fmt.Errorf("premium index %s: %w", symbol, err)
	}
	if len(res) == 0 {
		return FundingRate{}, fmt.Errorf("premium index %s: empty response", symbol)
	}
	return toFundingRate(res[0])
}

// FundingRates fetches the premium index for every listed symbol.
func (f *FundingClient) FundingRates(ctx context.Context) ([]FundingRate, error) {
	res, err := f.client.NewPremiumIndexService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("premium index: %w", err)
	}
	out := make([]FundingRate, 0, len(res))
	for _, p := range res {
		fr, err := toFundingRate(p)
		if err != nil {
			continue
		}
		out = append(out, fr)
	}
	return out, nil
}

func toFundingRate(p *futures.PremiumIndex) (FundingRate, error) {
	rate, err := decimal.NewFromString(p.LastFundingRate)
	if err != nil {
		return FundingRate{}, fmt.Errorf("funding rate %q: %w", p.LastFundingRate, err)
	}
	return FundingRate{
		Symbol:          p.Symbol,
		MarkPrice:       decimalOrZero(p.MarkPrice),
		IndexPrice:      decimalOrZero(p.IndexPrice),
		Rate:            rate,
		NextFundingTime: time.UnixMilli(p.NextFundingTime),
		Time:            time.UnixMilli(p.Time),
	}, nil
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
