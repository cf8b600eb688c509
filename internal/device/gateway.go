package device

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Handler consumes one demultiplexed controller event. Handlers run on the
// channel's delivery goroutine and must not block.
type Handler func(Event)

type registration struct {
	pattern string
	handler Handler
}

// Gateway dispatches commands to controllers and routes inbound events to
// registered handlers. Every registration whose pattern matches an incoming
// topic fires, in registration order; overlapping subscriptions all see the
// event.
type Gateway struct {
	channel    Channel
	commandTTL time.Duration

	mu            sync.RWMutex
	registrations []registration
}

// NewGateway returns a Gateway over channel. commandTTL bounds every
// dispatched command's validity.
func NewGateway(channel Channel, commandTTL time.Duration) *Gateway {
	return &Gateway{channel: channel, commandTTL: commandTTL}
}

// HandleMessage is the channel's inbound callback: it parses the raw message
// and fans it out to all matching registrations. Wire it as the onMessage
// handler when constructing the channel.
func (g *Gateway) HandleMessage(m Message) {
	event := ParseEvent(m.Topic, m.Payload)
	g.mu.RLock()
	regs := g.registrations
	g.mu.RUnlock()
	for _, r := range regs {
		if MatchTopic(r.pattern, m.Topic) {
			r.handler(event)
		}
	}
}

// Register subscribes pattern on the channel and routes matching events to
// handler.
func (g *Gateway) Register(pattern string, handler Handler) error {
	g.mu.Lock()
	g.registrations = append(g.registrations, registration{pattern: pattern, handler: handler})
	g.mu.Unlock()
	return g.channel.Subscribe(pattern)
}

// LockSlot dispatches a lock command for a slot.
func (g *Gateway) LockSlot(ctx context.Context, tenantID, siteID, shelfID, slotID string, slotIndex int) error {
	return g.dispatch(ctx, Command{
		Type:      CommandLockSlot,
		TenantID:  tenantID,
		SiteID:    siteID,
		ShelfID:   shelfID,
		SlotID:    slotID,
		SlotIndex: slotIndex,
	})
}

// Unlock dispatches an unlock command carrying the capability token the
// controller must present for verification.
func (g *Gateway) Unlock(ctx context.Context, tenantID, siteID, shelfID, slotID, capabilityToken string) error {
	return g.dispatch(ctx, Command{
		Type:     CommandUnlock,
		TenantID: tenantID,
		SiteID:   siteID,
		ShelfID:  shelfID,
		SlotID:   slotID,
		Token:    capabilityToken,
	})
}

// EmergencyUnlock dispatches an emergency unlock, bypassing the capability
// protocol. Reason is carried for the controller's local log.
func (g *Gateway) EmergencyUnlock(ctx context.Context, tenantID, siteID, shelfID, slotID, reason string) error {
	return g.dispatch(ctx, Command{
		Type:     CommandEmergencyUnlock,
		TenantID: tenantID,
		SiteID:   siteID,
		ShelfID:  shelfID,
		SlotID:   slotID,
		Reason:   reason,
	})
}

// RequestStatus dispatches a status request to a shelf controller.
func (g *Gateway) RequestStatus(ctx context.Context, tenantID, siteID, shelfID string) error {
	return g.dispatch(ctx, Command{
		Type:     CommandStatusRequest,
		TenantID: tenantID,
		SiteID:   siteID,
		ShelfID:  shelfID,
	})
}

func (g *Gateway) dispatch(ctx context.Context, cmd Command) error {
	now := time.Now().UTC()
	cmd.IssuedAt = now
	cmd.ExpiresAt = now.Add(g.commandTTL)
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal %s command: %w", cmd.Type, err)
	}
	topic := CommandTopic(cmd.TenantID, cmd.SiteID, cmd.ShelfID)
	if err := g.channel.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("dispatch %s to %s: %w", cmd.Type, topic, err)
	}
	return nil
}
