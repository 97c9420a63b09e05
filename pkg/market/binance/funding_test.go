package market

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const premiumIndexBody = `[{"symbol":"BTCUSDT","markPrice":"65000.10000000","indexPrice":"64990.00000000",` +
	`"estimatedSettlePrice":"64995.0","lastFundingRate":"0.00010000","interestRate":"0.00010000",` +
	`"nextFundingTime":1700006400000,"time":1700000000000},` +
	`{"symbol":"ETHUSDT","markPrice":"3500.5","indexPrice":"3499","estimatedSettlePrice":"3500",` +
	`"lastFundingRate":"-0.00020000","interestRate":"0.0001","nextFundingTime":1700006400000,"time":1700000000000}]`

func TestFundingClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
		if r.URL.Query().Get("symbol") == "BTCUSDT" {
			_, _ = io.WriteString(w, `{"symbol":"BTCUSDT","markPrice":"65000.1","indexPrice":"64990","estimatedSettlePrice":"0",`+
				`"lastFundingRate":"0.00010000","interestRate":"0.0001","nextFundingTime":1700006400000,"time":1700000000000}`)
			return
		}
		_, _ = io.WriteString(w, premiumIndexBody)
	}))
	defer srv.Close()

	c := NewFundingClient(srv.URL, false)

	fr, err := c.FundingRate(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", fr.Symbol)
	assert.Equal(t, "0.0001", fr.Rate.String())
	assert.Equal(t, "65000.1", fr.MarkPrice.String())
	assert.Equal(t, int64(1700006400000), fr.NextFundingTime.UnixMilli())

	all, err := c.FundingRates(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[1].Rate.IsNegative())
}

func TestFundingClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))
	defer srv.Close()

	_, err := NewFundingClient(srv.URL, false).FundingRate(context.Background(), "NOPE")
	assert.Error(t, err)
}
