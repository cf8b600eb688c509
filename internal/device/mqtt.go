package device

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// qosAtLeastOnce is QoS 1: commands and events may be duplicated but not lost.
	qosAtLeastOnce = 1
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// MQTTChannel implements Channel over an MQTT broker using paho. Active
// patterns are tracked so OnConnect can resubscribe them all after a
// reconnect.
type MQTTChannel struct {
	client    mqtt.Client
	onMessage func(Message)

	mu       sync.Mutex
	patterns map[string]struct{}
}

// NewMQTTChannel connects to brokerURL and delivers every inbound message to
// onMessage. Call Close when shutting down.
func NewMQTTChannel(brokerURL, clientID string, onMessage func(Message)) (*MQTTChannel, error) {
	c := &MQTTChannel{
		onMessage: onMessage,
		patterns:  make(map[string]struct{}),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(c.resubscribe).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("device channel: connection lost: %v", err)
		})

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("device channel: connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("device channel: connect: %w", err)
	}
	return c, nil
}

// Publish sends payload to topic at QoS 1.
func (c *MQTTChannel) Publish(ctx context.Context, topic string, payload []byte) error {
	token := c.client.Publish(topic, qosAtLeastOnce, false, payload)
	deadline := publishTimeout
	if d, ok := ctx.Deadline(); ok {
		deadline = time.Until(d)
	}
	if !token.WaitTimeout(deadline) {
		return fmt.Errorf("device channel: publish to %s timed out", topic)
	}
	return token.Error()
}

// Subscribe registers pattern at QoS 1 and remembers it for resubscription.
func (c *MQTTChannel) Subscribe(pattern string) error {
	c.mu.Lock()
	c.patterns[pattern] = struct{}{}
	c.mu.Unlock()
	return c.subscribe(pattern)
}

// Unsubscribe removes pattern from the broker and the resubscription set.
func (c *MQTTChannel) Unsubscribe(pattern string) error {
	c.mu.Lock()
	delete(c.patterns, pattern)
	c.mu.Unlock()
	token := c.client.Unsubscribe(pattern)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("device channel: unsubscribe %s timed out", pattern)
	}
	return token.Error()
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (c *MQTTChannel) Close() {
	c.client.Disconnect(uint(publishTimeout.Milliseconds()))
}

func (c *MQTTChannel) subscribe(pattern string) error {
	token := c.client.Subscribe(pattern, qosAtLeastOnce, func(_ mqtt.Client, m mqtt.Message) {
		c.onMessage(Message{Topic: m.Topic(), Payload: m.Payload()})
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("device channel: subscribe %s timed out", pattern)
	}
	return token.Error()
}

// resubscribe restores every active pattern; runs on first connect and every
// reconnect.
func (c *MQTTChannel) resubscribe(mqtt.Client) {
	c.mu.Lock()
	patterns := make([]string, 0, len(c.patterns))
	for p := range c.patterns {
		patterns = append(patterns, p)
	}
	c.mu.Unlock()
	for _, p := range patterns {
		if err := c.subscribe(p); err != nil {
			log.Printf("device channel: resubscribe %s: %v", p, err)
		}
	}
}
