package device

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind is the closed set of inbound controller event kinds. Kinds this
// build does not know are preserved as KindUnknown with the raw payload.
type EventKind string

const (
	KindUnlockSuccess  EventKind = "unlock_success"
	KindUnlockFailed   EventKind = "unlock_failed"
	KindTamperDetected EventKind = "tamper_detected"
	KindDoorOpened     EventKind = "door_opened"
	KindDoorClosed     EventKind = "door_closed"
	KindStatus         EventKind = "status"
	KindUnknown        EventKind = "unknown"
)

// Event is one inbound controller report, demultiplexed from the channel.
type Event struct {
	Kind       EventKind
	TenantID   string
	SiteID     string
	ShelfID    string
	SlotID     string
	OrderID    string
	RiderID    string
	Reason     string
	ReportedAt time.Time
	// RawKind and Raw preserve unrecognized events for forward compatibility.
	RawKind string
	Raw     json.RawMessage
}

// eventPayload is the wire shape of an inbound event body.
type eventPayload struct {
	SlotID     string    `json:"slot_id"`
	OrderID    string    `json:"order_id"`
	RiderID    string    `json:"rider_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// EventTopic builds the inbound event topic for a shelf and kind:
// locker/evt/{tenant}/{site}/{shelf}/{kind}.
func EventTopic(tenantID, siteID, shelfID string, kind EventKind) string {
	return strings.Join([]string{"locker", "evt", tenantID, siteID, shelfID, string(kind)}, "/")
}

// CommandTopic builds the outbound command topic for a shelf:
// locker/cmd/{tenant}/{site}/{shelf}.
func CommandTopic(tenantID, siteID, shelfID string) string {
	return strings.Join([]string{"locker", "cmd", tenantID, siteID, shelfID}, "/")
}

// SiteEventPattern subscribes to every shelf and kind at a site.
func SiteEventPattern(tenantID, siteID string) string {
	return strings.Join([]string{"locker", "evt", tenantID, siteID, "+", "+"}, "/")
}

// AllEventsPattern subscribes to every inbound event across tenants and sites.
func AllEventsPattern() string {
	return strings.Join([]string{"locker", "evt", "+", "+", "+", "+"}, "/")
}

// ParseEvent decodes an inbound message into a typed Event. Topic segments
// supply the scope; the payload supplies slot/order binding. Unrecognized
// kinds or topics yield a KindUnknown event carrying the raw payload.
func ParseEvent(topic string, payload []byte) Event {
	parts := strings.Split(topic, "/")
	if len(parts) != 6 || parts[0] != "locker" || parts[1] != "evt" {
		return Event{Kind: KindUnknown, RawKind: topic, Raw: append(json.RawMessage(nil), payload...)}
	}
	e := Event{
		TenantID: parts[2],
		SiteID:   parts[3],
		ShelfID:  parts[4],
	}
	switch k := EventKind(parts[5]); k {
	case KindUnlockSuccess, KindUnlockFailed, KindTamperDetected, KindDoorOpened, KindDoorClosed, KindStatus:
		e.Kind = k
	default:
		e.Kind = KindUnknown
		e.RawKind = parts[5]
		e.Raw = append(json.RawMessage(nil), payload...)
		return e
	}
	var p eventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		e.Kind = KindUnknown
		e.RawKind = parts[5]
		e.Raw = append(json.RawMessage(nil), payload...)
		return e
	}
	e.SlotID = p.SlotID
	e.OrderID = p.OrderID
	e.RiderID = p.RiderID
	e.Reason = p.Reason
	e.ReportedAt = p.ReportedAt
	return e
}
