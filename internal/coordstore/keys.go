package coordstore

import "strings"

// Keys builds tenant-namespaced coordination-store keys using the scheme
// prefix:category:id[:id...].
type Keys struct {
	Prefix string
}

// NewKeys returns a Keys builder with the given prefix (e.g. "locker").
func NewKeys(prefix string) Keys {
	return Keys{Prefix: prefix}
}

func (k Keys) join(parts ...string) string {
	return k.Prefix + ":" + strings.Join(parts, ":")
}

// Reservation is the slot-reservation lease key for a slot.
func (k Keys) Reservation(tenantID, slotID string) string {
	return k.join("reservation", tenantID, slotID)
}

// UnlockJTI is the single-use marker for an unlock capability token.
func (k Keys) UnlockJTI(jti string) string {
	return k.join("jti", "unlock", jti)
}

// MagicLinkJTI is the single-use marker for a courier magic-link token.
func (k Keys) MagicLinkJTI(jti string) string {
	return k.join("jti", "magiclink", jti)
}

// Session is the server-side session state key.
func (k Keys) Session(sessionID string) string {
	return k.join("session", sessionID)
}

// UnlockRate is the per-courier unlock rate-limit counter.
func (k Keys) UnlockRate(tenantID, riderID string) string {
	return k.join("rate", "unlock", tenantID, riderID)
}

// StepUp is the pending step-up OTP hash for a staff user.
func (k Keys) StepUp(userID string) string {
	return k.join("stepup", userID)
}

// DeviceStatus is the last-reported device status key.
func (k Keys) DeviceStatus(tenantID, deviceID string) string {
	return k.join("device", "status", tenantID, deviceID)
}

// SlotReset is the pending delayed-reset marker for an open slot. Its expiry,
// not an in-process timer, decides when the slot returns to empty, so a
// restart cannot lose the pending reset.
func (k Keys) SlotReset(tenantID, slotID string) string {
	return k.join("slotreset", tenantID, slotID)
}
