package events

import "time"

// Event enumerates topics on the in-process bus. Live feeds publish on a
// per-subscription topic built by FeedTopic.
type Event string

const (
	EventStreamStatus Event = "stream.status"
	EventOrderStored  Event = "order.stored"
)

const feedPrefix = "feed:"

// FeedTopic is the topic carrying messages for one subscription id.
func FeedTopic(subscriptionID string) Event {
	return Event(feedPrefix + subscriptionID)
}

// StreamStatus is published whenever the backend socket connects or drops.
type StreamStatus struct {
	Connected bool      `json:"connected"`
	URL       string    `json:"url"`
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
