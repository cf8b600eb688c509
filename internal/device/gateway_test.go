package device

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// fakeChannel records publishes and subscriptions for tests.
type fakeChannel struct {
	published  []Message
	subscribed []string
	publishErr error
}

func (f *fakeChannel) Publish(ctx context.Context, topic string, payload []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, Message{Topic: topic, Payload: payload})
	return nil
}

func (f *fakeChannel) Subscribe(pattern string) error {
	f.subscribed = append(f.subscribed, pattern)
	return nil
}

func (f *fakeChannel) Unsubscribe(pattern string) error { return nil }
func (f *fakeChannel) Close()                           {}

func TestGateway_DispatchSetsExpiry(t *testing.T) {
	ch := &fakeChannel{}
	g := NewGateway(ch, 30*time.Second)

	if err := g.LockSlot(context.Background(), "t1", "site1", "shelf1", "slot1", 3); err != nil {
		t.Fatalf("LockSlot: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("published = %d, want 1", len(ch.published))
	}
	m := ch.published[0]
	if m.Topic != "locker/cmd/t1/site1/shelf1" {
		t.Errorf("topic = %q", m.Topic)
	}
	var cmd Command
	if err := json.Unmarshal(m.Payload, &cmd); err != nil {
		t.Fatalf("unmarshal command: %v", err)
	}
	if cmd.Type != CommandLockSlot || cmd.SlotID != "slot1" || cmd.SlotIndex != 3 {
		t.Errorf("command = %+v", cmd)
	}
	if cmd.ExpiresAt.IsZero() || !cmd.ExpiresAt.After(cmd.IssuedAt) {
		t.Errorf("command expiry not set: issued %v, expires %v", cmd.IssuedAt, cmd.ExpiresAt)
	}
}

func TestGateway_UnlockCarriesToken(t *testing.T) {
	ch := &fakeChannel{}
	g := NewGateway(ch, 30*time.Second)

	if err := g.Unlock(context.Background(), "t1", "site1", "shelf1", "slot1", "cap-token"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	var cmd Command
	if err := json.Unmarshal(ch.published[0].Payload, &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.Type != CommandUnlock || cmd.Token != "cap-token" {
		t.Errorf("command = %+v", cmd)
	}
}

func TestGateway_PublishFailureSurfaces(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("broker down")}
	g := NewGateway(ch, 30*time.Second)
	if err := g.EmergencyUnlock(context.Background(), "t1", "site1", "shelf1", "slot1", "stuck door"); err == nil {
		t.Fatal("EmergencyUnlock should surface publish failure")
	}
}

func TestGateway_AllMatchingHandlersFire(t *testing.T) {
	ch := &fakeChannel{}
	g := NewGateway(ch, 30*time.Second)

	var order []string
	if err := g.Register(SiteEventPattern("t1", "site1"), func(e Event) {
		order = append(order, "site")
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := g.Register("locker/evt/t1/site1/shelf1/+", func(e Event) {
		order = append(order, "shelf")
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := g.Register("locker/evt/t1/site2/+/+", func(e Event) {
		order = append(order, "other-site")
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	payload, _ := json.Marshal(eventPayload{SlotID: "slot1", OrderID: "o1"})
	g.HandleMessage(Message{Topic: "locker/evt/t1/site1/shelf1/unlock_success", Payload: payload})

	// overlapping subscriptions all fire, in registration order
	if len(order) != 2 || order[0] != "site" || order[1] != "shelf" {
		t.Errorf("handler order = %v, want [site shelf]", order)
	}
	if len(ch.subscribed) != 3 {
		t.Errorf("subscriptions = %d, want 3", len(ch.subscribed))
	}
}

func TestParseEvent_KnownKind(t *testing.T) {
	payload, _ := json.Marshal(eventPayload{SlotID: "slot1", OrderID: "o1", RiderID: "r1", Reason: "jam"})
	e := ParseEvent("locker/evt/t1/site1/shelf1/unlock_failed", payload)
	if e.Kind != KindUnlockFailed {
		t.Errorf("kind = %q", e.Kind)
	}
	if e.TenantID != "t1" || e.SiteID != "site1" || e.ShelfID != "shelf1" {
		t.Errorf("scope = %q/%q/%q", e.TenantID, e.SiteID, e.ShelfID)
	}
	if e.SlotID != "slot1" || e.OrderID != "o1" || e.RiderID != "r1" || e.Reason != "jam" {
		t.Errorf("payload = %+v", e)
	}
}

func TestParseEvent_UnknownKindPreserved(t *testing.T) {
	e := ParseEvent("locker/evt/t1/site1/shelf1/firmware_update", []byte(`{"version":"2.1"}`))
	if e.Kind != KindUnknown {
		t.Errorf("kind = %q, want unknown", e.Kind)
	}
	if e.RawKind != "firmware_update" {
		t.Errorf("raw kind = %q", e.RawKind)
	}
	if string(e.Raw) != `{"version":"2.1"}` {
		t.Errorf("raw payload = %s", e.Raw)
	}
}

func TestParseEvent_MalformedTopic(t *testing.T) {
	e := ParseEvent("bogus/topic", []byte(`{}`))
	if e.Kind != KindUnknown {
		t.Errorf("kind = %q, want unknown", e.Kind)
	}
}
