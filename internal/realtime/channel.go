// Package realtime keeps the live-feed subscriptions of a socket session and
// routes inbound push messages to their callbacks.
package realtime

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Channel enumerates the feed types the trading backend pushes.
type Channel string

const (
	ChannelMarkPrice  Channel = "markPrice"
	ChannelMiniTicker Channel = "publicMiniTicker"
	ChannelBookTicker Channel = "bookTicker"
	ChannelKline      Channel = "kline"
	ChannelAccount    Channel = "account"
	ChannelOrder      Channel = "order"
	ChannelPosition   Channel = "position"
)

var knownChannels = map[Channel]struct{}{
	ChannelMarkPrice:  {},
	ChannelMiniTicker: {},
	ChannelBookTicker: {},
	ChannelKline:      {},
	ChannelAccount:    {},
	ChannelOrder:      {},
	ChannelPosition:   {},
}

// Known reports whether c is one of the supported channels.
func (c Channel) Known() bool {
	_, ok := knownChannels[c]
	return ok
}

// AccountWide reports whether feeds on c are per account rather than per
// symbol. Their subscription ids carry an empty symbol.
func (c Channel) AccountWide() bool { return accountWide[c] }

// SubscribeAction is the outbound action name, e.g. "subscribeMarkPrice".
func (c Channel) SubscribeAction() string { return "subscribe" + upperFirst(string(c)) }

// UnsubscribeAction is the outbound action name, e.g. "unsubscribeMarkPrice".
func (c Channel) UnsubscribeAction() string { return "unsubscribe" + upperFirst(string(c)) }

// Market is the venue a feed belongs to.
type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures"
)

func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spot":
		return MarketSpot, nil
	case "futures", "future", "usdm", "":
		return MarketFutures, nil
	}
	return "", fmt.Errorf("unknown market %q", s)
}

const idSep = ":"

// SubscriptionID derives the registry key for a feed. Symbols are compared
// case-insensitively so "btcusdt" and "BTCUSDT" name the same feed, and are
// ignored for account-wide channels.
func SubscriptionID(channel Channel, symbol string, market Market) string {
	return string(channel) + idSep + feedSymbol(channel, symbol) + idSep + string(market)
}

// feedSymbol is the symbol a feed is keyed and subscribed under.
func feedSymbol(channel Channel, symbol string) string {
	if channel.AccountWide() {
		return ""
	}
	return normalizeSymbol(symbol)
}

// ParseSubscriptionID splits an id built by SubscriptionID.
func ParseSubscriptionID(id string) (channel Channel, symbol string, market Market, ok bool) {
	parts := strings.Split(id, idSep)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return Channel(parts[0]), parts[1], Market(parts[2]), true
}

// ParseAction splits "subscribeMarkPrice" into (true, markPrice) and
// "unsubscribeOrder" into (false, order).
func ParseAction(action string) (subscribe bool, channel Channel, err error) {
	var rest string
	switch {
	case strings.HasPrefix(action, "unsubscribe"):
		rest = strings.TrimPrefix(action, "unsubscribe")
	case strings.HasPrefix(action, "subscribe"):
		subscribe = true
		rest = strings.TrimPrefix(action, "subscribe")
	default:
		return false, "", fmt.Errorf("unsupported action %q", action)
	}
	channel = Channel(lowerFirst(rest))
	if !channel.Known() {
		return false, "", fmt.Errorf("unsupported channel in action %q", action)
	}
	return subscribe, channel, nil
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
