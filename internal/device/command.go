// Package device translates orchestration intents into addressed, expiring
// commands on the async device channel, and demultiplexes inbound controller
// events back to subscribers by topic pattern. Dispatch is fire-and-forget:
// business-level timeout handling belongs to the orchestrator.
package device

import "time"

// CommandType is the closed set of outbound controller commands.
type CommandType string

const (
	CommandLockSlot        CommandType = "lock_slot"
	CommandUnlock          CommandType = "unlock"
	CommandEmergencyUnlock CommandType = "emergency_unlock"
	CommandStatusRequest   CommandType = "status_request"
)

// Command is one addressed, time-boxed controller instruction. A controller
// must discard a command received after ExpiresAt.
type Command struct {
	Type      CommandType `json:"type"`
	TenantID  string      `json:"tenant_id"`
	SiteID    string      `json:"site_id"`
	ShelfID   string      `json:"shelf_id"`
	SlotID    string      `json:"slot_id,omitempty"`
	SlotIndex int         `json:"slot_index,omitempty"`
	// Token carries the capability token for unlock commands; the controller
	// presents it back for verification before actuating.
	Token     string    `json:"token,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
