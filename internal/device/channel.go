package device

import (
	"context"
	"errors"
)

// Message is one raw inbound channel message.
type Message struct {
	Topic   string
	Payload []byte
}

// Channel is the async transport to controllers: publish-by-topic,
// subscribe-by-pattern, at-least-once delivery. Implementations deliver every
// inbound message to the handler given at construction and must re-establish
// all active subscriptions after a reconnect.
type Channel interface {
	// Publish sends payload to topic with at-least-once semantics.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers a topic pattern (single-level wildcard "+").
	Subscribe(pattern string) error
	// Unsubscribe removes a previously registered pattern.
	Unsubscribe(pattern string) error
	// Close disconnects the channel. Safe to call multiple times.
	Close()
}

// ErrChannelDisconnected is returned by Disconnected for every publish.
var ErrChannelDisconnected = errors.New("device channel not configured")

// Disconnected is a Channel with no transport behind it, used when no broker
// is configured. Publishes fail, subscriptions are accepted and never deliver.
type Disconnected struct{}

func (Disconnected) Publish(context.Context, string, []byte) error {
	return ErrChannelDisconnected
}

func (Disconnected) Subscribe(string) error   { return nil }
func (Disconnected) Unsubscribe(string) error { return nil }
func (Disconnected) Close()                   {}
