package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FuturesWeightLimit is the USD-M futures request weight budget per minute.
const FuturesWeightLimit = 2400

// Client forwards public REST calls to the exchange and tracks weight usage.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Weight     *WeightTracker
}

// NewClient builds a REST client for baseURL, e.g. https://fapi.binance.com.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Weight:     NewWeightTracker(FuturesWeightLimit, time.Minute, log),
	}
}

// Do sends a request to path on the exchange. The caller owns the response
// body. Only the headers named in forward are copied from header.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, header http.Header, body io.Reader) (*http.Response, error) {
	u := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build exchange request: %w", err)
	}
	for _, h := range forward {
		if v := header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange %s %s: %w", method, path, err)
	}
	c.Weight.UpdateFromHeader(res.Header.Get(WeightHeader))
	return res, nil
}

var forward = []string{"Accept", "Content-Type", "X-MBX-APIKEY"}
