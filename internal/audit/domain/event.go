package domain

import "time"

// EventType is the closed set of security-event kinds. Unknown device-reported
// kinds are recorded as EventUnknown with the raw kind in metadata.
type EventType string

const (
	EventSlotAssigned       EventType = "slot_assigned"
	EventUnlockRequested    EventType = "unlock_requested"
	EventParcelPickedUp     EventType = "parcel_picked_up"
	EventUnlockFailed       EventType = "unlock_failed"
	EventEmergencyUnlock    EventType = "emergency_unlock"
	EventUnauthorizedUnlock EventType = "unauthorized_unlock_attempt"
	EventUnlockRateLimited  EventType = "unlock_rate_limited"
	EventTokenInvalid       EventType = "token_invalid"
	EventTokenExpired       EventType = "token_expired"
	EventTokenWrongShelf    EventType = "token_wrong_shelf"
	EventTokenReplayed      EventType = "token_replayed"
	EventStaffLogin         EventType = "staff_login"
	EventLoginFailure       EventType = "login_failure"
	EventLogout             EventType = "logout"
	EventMagicLinkIssued    EventType = "magic_link_issued"
	EventMagicLinkVerified  EventType = "magic_link_verified"
	EventStepUpFailure      EventType = "step_up_failure"
	EventTamperDetected     EventType = "tamper_detected"
	EventDeviceFault        EventType = "device_fault"
	EventSlotReset          EventType = "slot_reset"
	EventReservationSwept   EventType = "reservation_swept"
	EventUnknown            EventType = "unknown"
)

// SecurityEvent is one immutable audit-ledger record. Identifier fields are
// empty when not applicable. Events are never mutated; the retention sweep is
// the only deletion path.
type SecurityEvent struct {
	ID        string
	Type      EventType
	TenantID  string
	SiteID    string
	ShelfID   string
	SlotID    string
	OrderID   string
	RiderID   string
	UserID    string
	DeviceID  string
	Metadata  map[string]string
	CreatedAt time.Time
}
