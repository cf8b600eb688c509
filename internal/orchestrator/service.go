// Package orchestrator owns the order and slot lifecycles. It composes the
// coordination store, token service, device gateway, and audit ledger to run
// the assignment, unlock, confirmation, failure, and emergency-override
// workflows. All cross-request mutual exclusion goes through the coordination
// store; the orchestrator holds no in-process locks across a decision.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"locker-pickup-control-plane/backend/internal/audit"
	auditdomain "locker-pickup-control-plane/backend/internal/audit/domain"
	"locker-pickup-control-plane/backend/internal/coordstore"
	"locker-pickup-control-plane/backend/internal/device"
	orderdomain "locker-pickup-control-plane/backend/internal/order/domain"
	orderrepo "locker-pickup-control-plane/backend/internal/order/repository"
	"locker-pickup-control-plane/backend/internal/security"
	slotdomain "locker-pickup-control-plane/backend/internal/slot/domain"
	slotrepo "locker-pickup-control-plane/backend/internal/slot/repository"
	"locker-pickup-control-plane/backend/internal/token"
)

// Sentinel errors for orchestrator workflows. Callers distinguish domain
// preconditions, contention, and security violations by these values.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotReady    = errors.New("order is not in a state that allows this operation")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotUnavailable  = errors.New("slot is not empty and active")
	ErrNoAvailableSlots = errors.New("no available slots at site")
	ErrSlotTaken        = errors.New("slot taken by a concurrent assignment")
	ErrRateLimited      = errors.New("unlock rate limit exceeded")
	ErrUnauthorized     = errors.New("courier not authorized for this order")
	ErrStepUpFailed     = errors.New("step-up verification failed")
)

// AssignResult is the outcome of a successful slot assignment.
type AssignResult struct {
	SlotID       string
	ShelfID      string
	QRPayload    string
	FallbackCode string
}

// UnlockResult is the outcome of a successful unlock request.
type UnlockResult struct {
	Token     string
	SlotID    string
	ShelfID   string
	ExpiresAt time.Time
}

// TokenIssuer mints capability tokens. Implemented by the token service.
type TokenIssuer interface {
	IssueUnlockToken(ctx context.Context, tenantID, siteID, shelfID, slotID, orderID, riderID string, ttl time.Duration) (*token.UnlockToken, error)
}

// Commander dispatches controller commands. Implemented by the device gateway.
type Commander interface {
	LockSlot(ctx context.Context, tenantID, siteID, shelfID, slotID string, slotIndex int) error
	Unlock(ctx context.Context, tenantID, siteID, shelfID, slotID, capabilityToken string) error
	EmergencyUnlock(ctx context.Context, tenantID, siteID, shelfID, slotID, reason string) error
}

// Authorizer decides whether a courier may collect an order. Backed by the
// platform integration.
type Authorizer interface {
	AuthorizeUnlock(ctx context.Context, o *orderdomain.Order, riderID string) (bool, error)
}

// StepUpVerifier checks a freshly issued second-factor code. Implemented by
// the auth service.
type StepUpVerifier interface {
	VerifyStepUpAuth(ctx context.Context, tenantID, userID, code string) (bool, error)
}

// Options carries the orchestrator's tunable windows and limits.
type Options struct {
	ReservationTTL   time.Duration // lease on the atomic slot reservation
	UnlockTokenTTL   time.Duration // capability token validity, <= 60s
	CollectionWindow time.Duration // how long an open slot waits before reset
	RateLimit        int           // max unlock requests per courier per window
	RateWindow       time.Duration
}

// Orchestrator runs the pickup workflows.
type Orchestrator struct {
	orders  orderrepo.Repository
	slots   slotrepo.Repository
	tokens  TokenIssuer
	gateway Commander
	auth    AuthorizerAndStepUp
	store   coordstore.Store
	keys    coordstore.Keys
	ledger  audit.Ledger
	opts    Options
}

// AuthorizerAndStepUp bundles the two external authorization checks the
// workflows need.
type AuthorizerAndStepUp struct {
	Platform Authorizer
	StepUp   StepUpVerifier
}

// New returns an Orchestrator composed from its collaborators.
func New(
	orders orderrepo.Repository,
	slots slotrepo.Repository,
	tokens TokenIssuer,
	gateway Commander,
	auth AuthorizerAndStepUp,
	store coordstore.Store,
	keys coordstore.Keys,
	ledger audit.Ledger,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		orders:  orders,
		slots:   slots,
		tokens:  tokens,
		gateway: gateway,
		auth:    auth,
		store:   store,
		keys:    keys,
		ledger:  ledger,
		opts:    opts,
	}
}

// qrPayload is the JSON encoded into the pickup QR code.
type qrPayload struct {
	OrderID string `json:"order_id"`
	SlotID  string `json:"slot_id"`
	ShelfID string `json:"shelf_id"`
	Code    string `json:"code"`
}

// AssignOrderToSlot binds a prepared order to an empty slot. The binding is
// made atomic by a conditional reservation in the coordination store: when two
// requests race for the same slot, exactly one wins. Any failure after a
// successful reservation releases it and reverts durable state before the
// error is surfaced.
func (o *Orchestrator) AssignOrderToSlot(ctx context.Context, tenantID, orderID, staffID, preferredSlotID string) (*AssignResult, error) {
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil || order.TenantID != tenantID {
		return nil, ErrOrderNotFound
	}
	if order.Status != orderdomain.StatusPrepared {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotReady, order.Status)
	}

	slot, err := o.selectSlot(ctx, order, preferredSlotID)
	if err != nil {
		return nil, err
	}

	reservationKey := o.keys.Reservation(tenantID, slot.ID)
	ok, err := o.store.Reserve(ctx, reservationKey, order.ID, o.opts.ReservationTTL)
	if err != nil {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	if !ok {
		return nil, ErrSlotTaken
	}

	// From here every failure must undo the reservation and any durable
	// state already written, then surface the original error.
	now := time.Now().UTC()

	slot.State, err = slot.State.Transition(slotdomain.StateReserved)
	if err != nil {
		o.compensate(ctx, reservationKey, order, nil)
		return nil, err
	}
	slot.OrderID = order.ID
	slot.ReservedAt = &now
	if err := o.saveSlot(ctx, slot); err != nil {
		o.compensate(ctx, reservationKey, order, nil)
		return nil, fmt.Errorf("persist slot reservation: %w", err)
	}

	order.Status, err = order.Status.Transition(orderdomain.StatusAssigned)
	if err != nil {
		o.compensate(ctx, reservationKey, order, slot)
		return nil, err
	}
	order.SlotID = slot.ID
	order.AssignedAt = &now
	if err := o.saveOrder(ctx, order); err != nil {
		o.compensate(ctx, reservationKey, order, slot)
		return nil, fmt.Errorf("persist order assignment: %w", err)
	}

	code, err := security.GenerateNumericCode(6)
	if err != nil {
		o.compensate(ctx, reservationKey, order, slot)
		return nil, fmt.Errorf("generate fallback code: %w", err)
	}
	raw, err := json.Marshal(qrPayload{OrderID: order.ID, SlotID: slot.ID, ShelfID: slot.ShelfID, Code: code})
	if err != nil {
		o.compensate(ctx, reservationKey, order, slot)
		return nil, err
	}

	if err := o.gateway.LockSlot(ctx, tenantID, slot.SiteID, slot.ShelfID, slot.ID, slot.Index); err != nil {
		o.compensate(ctx, reservationKey, order, slot)
		return nil, fmt.Errorf("dispatch lock command: %w", err)
	}

	o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventSlotAssigned,
		TenantID: tenantID,
		SiteID:   slot.SiteID,
		ShelfID:  slot.ShelfID,
		SlotID:   slot.ID,
		OrderID:  order.ID,
		UserID:   staffID,
	})

	return &AssignResult{
		SlotID:       slot.ID,
		ShelfID:      slot.ShelfID,
		QRPayload:    string(raw),
		FallbackCode: code,
	}, nil
}

// selectSlot resolves the preferred slot or picks the first empty, active slot
// at the order's site. Listing is ordered by shelf then index, so selection is
// deterministic.
func (o *Orchestrator) selectSlot(ctx context.Context, order *orderdomain.Order, preferredSlotID string) (*slotdomain.Slot, error) {
	if preferredSlotID != "" {
		slot, err := o.slots.GetByID(ctx, preferredSlotID)
		if err != nil {
			return nil, fmt.Errorf("load slot: %w", err)
		}
		if slot == nil || slot.TenantID != order.TenantID {
			return nil, ErrSlotNotFound
		}
		if slot.State != slotdomain.StateEmpty || !slot.Active {
			return nil, ErrSlotUnavailable
		}
		return slot, nil
	}
	candidates, err := o.slots.ListEmptyBySite(ctx, order.TenantID, order.SiteID)
	if err != nil {
		return nil, fmt.Errorf("list empty slots: %w", err)
	}
	for _, slot := range candidates {
		// skip slots already under an outstanding reservation that has not
		// yet reached durable state
		_, reserved, err := o.store.Get(ctx, o.keys.Reservation(order.TenantID, slot.ID))
		if err != nil {
			return nil, fmt.Errorf("check reservation: %w", err)
		}
		if !reserved {
			return slot, nil
		}
	}
	return nil, ErrNoAvailableSlots
}

// compensate rolls back a partially applied assignment: release the
// reservation, then best-effort revert whatever durable state was written.
// Leftovers are repaired by the reconciliation sweep, and the reservation
// lease expires on its own in the worst case.
func (o *Orchestrator) compensate(ctx context.Context, reservationKey string, order *orderdomain.Order, slot *slotdomain.Slot) {
	if err := o.store.Release(ctx, reservationKey, order.ID); err != nil {
		log.Printf("orchestrator: release reservation %s: %v", reservationKey, err)
	}
	if slot != nil {
		slot.State = slotdomain.StateEmpty
		slot.OrderID = ""
		slot.ReservedAt = nil
		if err := o.saveSlot(ctx, slot); err != nil {
			log.Printf("orchestrator: revert slot %s: %v", slot.ID, err)
		}
	}
	if order.Status == orderdomain.StatusAssigned {
		order.Status = orderdomain.StatusPrepared
		order.SlotID = ""
		order.AssignedAt = nil
		if err := o.saveOrder(ctx, order); err != nil {
			log.Printf("orchestrator: revert order %s: %v", order.ID, err)
		}
	}
}

// saveSlot stamps the slot's modification time and persists it. Every
// workflow mutation goes through here so updated_at tracks the row.
func (o *Orchestrator) saveSlot(ctx context.Context, slot *slotdomain.Slot) error {
	slot.UpdatedAt = time.Now().UTC()
	return o.slots.Update(ctx, slot)
}

// saveOrder is the order-side counterpart of saveSlot.
func (o *Orchestrator) saveOrder(ctx context.Context, order *orderdomain.Order) error {
	order.UpdatedAt = time.Now().UTC()
	return o.orders.Update(ctx, order)
}

// RequestUnlock authorizes a courier to open an order's slot and mints the
// single-use capability token. Rate limiting runs first and consumes nothing
// else; authorization and rate-limit failures produce distinguishable audit
// events.
func (o *Orchestrator) RequestUnlock(ctx context.Context, tenantID, orderID, riderID, deviceFingerprint string) (*UnlockResult, error) {
	count, err := o.store.IncrWindow(ctx, o.keys.UnlockRate(tenantID, riderID), o.opts.RateWindow)
	if err != nil {
		return nil, fmt.Errorf("rate counter: %w", err)
	}
	if count > int64(o.opts.RateLimit) {
		o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventUnlockRateLimited,
			TenantID: tenantID,
			RiderID:  riderID,
			OrderID:  orderID,
			Metadata: map[string]string{"attempts": fmt.Sprintf("%d", count)},
		})
		return nil, ErrRateLimited
	}

	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil || order.TenantID != tenantID {
		return nil, ErrOrderNotFound
	}
	if order.Status != orderdomain.StatusAssigned {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotReady, order.Status)
	}
	slot, err := o.slots.GetByID(ctx, order.SlotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.State != slotdomain.StateReserved && slot.State != slotdomain.StateOccupied {
		return nil, fmt.Errorf("%w: slot is %s", ErrOrderNotReady, slot.State)
	}

	authorized, err := o.auth.Platform.AuthorizeUnlock(ctx, order, riderID)
	if err != nil {
		return nil, fmt.Errorf("platform authorization: %w", err)
	}
	if !authorized {
		o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventUnauthorizedUnlock,
			TenantID: tenantID,
			SiteID:   slot.SiteID,
			ShelfID:  slot.ShelfID,
			SlotID:   slot.ID,
			OrderID:  order.ID,
			RiderID:  riderID,
			Metadata: map[string]string{"device_fingerprint": deviceFingerprint},
		})
		return nil, ErrUnauthorized
	}

	unlockToken, err := o.tokens.IssueUnlockToken(ctx, tenantID, slot.SiteID, slot.ShelfID, slot.ID, order.ID, riderID, o.opts.UnlockTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue unlock token: %w", err)
	}

	slot.State, err = slot.State.Transition(slotdomain.StateUnlocking)
	if err != nil {
		return nil, err
	}
	if err := o.saveSlot(ctx, slot); err != nil {
		// the token and its jti record expire on their own
		return nil, fmt.Errorf("persist slot state: %w", err)
	}
	if order.RiderID == "" {
		order.RiderID = riderID
		if err := o.saveOrder(ctx, order); err != nil {
			log.Printf("orchestrator: record rider on order %s: %v", order.ID, err)
		}
	}

	// logical state is committed; the physical unlock can be retried, so a
	// dispatch failure only logs
	if err := o.gateway.Unlock(ctx, tenantID, slot.SiteID, slot.ShelfID, slot.ID, unlockToken.Token); err != nil {
		log.Printf("orchestrator: dispatch unlock for slot %s: %v", slot.ID, err)
	}

	o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventUnlockRequested,
		TenantID: tenantID,
		SiteID:   slot.SiteID,
		ShelfID:  slot.ShelfID,
		SlotID:   slot.ID,
		OrderID:  order.ID,
		RiderID:  riderID,
		Metadata: map[string]string{"device_fingerprint": deviceFingerprint},
	})

	return &UnlockResult{
		Token:     unlockToken.Token,
		SlotID:    slot.ID,
		ShelfID:   slot.ShelfID,
		ExpiresAt: unlockToken.ExpiresAt,
	}, nil
}

// ConfirmUnlock records a controller-reported successful unlock: slot to open,
// order to picked_up, delayed reset scheduled through a coordination-store
// lease so a restart cannot lose it.
func (o *Orchestrator) ConfirmUnlock(ctx context.Context, tenantID, slotID, orderID, riderID string) error {
	slot, err := o.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("load slot: %w", err)
	}
	if slot == nil || slot.TenantID != tenantID {
		return ErrSlotNotFound
	}
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil || order.TenantID != tenantID {
		return ErrOrderNotFound
	}

	now := time.Now().UTC()
	slot.State, err = slot.State.Transition(slotdomain.StateOpen)
	if err != nil {
		return err
	}
	slot.LastUnlockAt = &now
	if err := o.saveSlot(ctx, slot); err != nil {
		return fmt.Errorf("persist slot state: %w", err)
	}

	order.Status, err = order.Status.Transition(orderdomain.StatusPickedUp)
	if err != nil {
		return err
	}
	order.PickedUpAt = &now
	if err := o.saveOrder(ctx, order); err != nil {
		return fmt.Errorf("persist order state: %w", err)
	}

	// The reset lease expiring is what makes the slot eligible for reset;
	// the sweep re-derives pending resets from it after a restart.
	if err := o.store.Set(ctx, o.keys.SlotReset(tenantID, slot.ID), order.ID, o.opts.CollectionWindow); err != nil {
		log.Printf("orchestrator: schedule reset for slot %s: %v", slot.ID, err)
	}

	metadata := map[string]string{}
	if order.AssignedAt != nil {
		metadata["pickup_latency_ms"] = fmt.Sprintf("%d", now.Sub(*order.AssignedAt).Milliseconds())
	}
	o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventParcelPickedUp,
		TenantID: tenantID,
		SiteID:   slot.SiteID,
		ShelfID:  slot.ShelfID,
		SlotID:   slot.ID,
		OrderID:  order.ID,
		RiderID:  riderID,
		Metadata: metadata,
	})
	return nil
}

// HandleUnlockFailure reverts an unlocking slot to occupied, never silently
// to empty. Idempotent: a repeat report for an already reverted slot is a
// no-op.
func (o *Orchestrator) HandleUnlockFailure(ctx context.Context, tenantID, slotID, orderID, riderID, reason string) error {
	slot, err := o.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("load slot: %w", err)
	}
	if slot == nil || slot.TenantID != tenantID {
		return ErrSlotNotFound
	}
	if slot.State != slotdomain.StateUnlocking {
		return nil
	}

	slot.State, err = slot.State.Transition(slotdomain.StateOccupied)
	if err != nil {
		return err
	}
	if slot.OccupiedAt == nil {
		now := time.Now().UTC()
		slot.OccupiedAt = &now
	}
	if err := o.saveSlot(ctx, slot); err != nil {
		return fmt.Errorf("persist slot state: %w", err)
	}

	o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventUnlockFailed,
		TenantID: tenantID,
		SiteID:   slot.SiteID,
		ShelfID:  slot.ShelfID,
		SlotID:   slot.ID,
		OrderID:  orderID,
		RiderID:  riderID,
		Metadata: map[string]string{"reason": reason},
	})
	return nil
}

// EmergencyUnlock bypasses the capability-token protocol after a successful
// step-up verification. The slot is forced open regardless of lifecycle state
// and a high-severity event names the authorizing staff member and reason.
func (o *Orchestrator) EmergencyUnlock(ctx context.Context, tenantID, slotID, staffID, reason, stepUpCode string) (bool, error) {
	ok, err := o.auth.StepUp.VerifyStepUpAuth(ctx, tenantID, staffID, stepUpCode)
	if err != nil {
		return false, fmt.Errorf("step-up verification: %w", err)
	}
	if !ok {
		return false, ErrStepUpFailed
	}

	slot, err := o.slots.GetByID(ctx, slotID)
	if err != nil {
		return false, fmt.Errorf("load slot: %w", err)
	}
	if slot == nil || slot.TenantID != tenantID {
		return false, ErrSlotNotFound
	}

	if err := o.gateway.EmergencyUnlock(ctx, tenantID, slot.SiteID, slot.ShelfID, slot.ID, reason); err != nil {
		return false, fmt.Errorf("dispatch emergency unlock: %w", err)
	}

	// forced: the override is the authority, the lifecycle does not gate it
	slot.State = slotdomain.StateOpen
	now := time.Now().UTC()
	slot.LastUnlockAt = &now
	if err := o.saveSlot(ctx, slot); err != nil {
		return false, fmt.Errorf("persist slot state: %w", err)
	}
	if err := o.store.Set(ctx, o.keys.SlotReset(tenantID, slot.ID), slot.OrderID, o.opts.CollectionWindow); err != nil {
		log.Printf("orchestrator: schedule reset for slot %s: %v", slot.ID, err)
	}

	o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventEmergencyUnlock,
		TenantID: tenantID,
		SiteID:   slot.SiteID,
		ShelfID:  slot.ShelfID,
		SlotID:   slot.ID,
		OrderID:  slot.OrderID,
		UserID:   staffID,
		Metadata: map[string]string{"reason": reason},
	})
	return true, nil
}

// MarkOccupied records that staff placed the parcel and closed the door,
// moving a reserved slot to occupied.
func (o *Orchestrator) MarkOccupied(ctx context.Context, tenantID, slotID string) error {
	slot, err := o.slots.GetByID(ctx, slotID)
	if err != nil {
		return fmt.Errorf("load slot: %w", err)
	}
	if slot == nil || slot.TenantID != tenantID {
		return ErrSlotNotFound
	}
	slot.State, err = slot.State.Transition(slotdomain.StateOccupied)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	slot.OccupiedAt = &now
	return o.saveSlot(ctx, slot)
}

// HandleDeviceEvent routes one inbound controller event into the matching
// workflow. Runs on the channel's delivery goroutine; failures are logged,
// never returned, and never block dispatch paths.
func (o *Orchestrator) HandleDeviceEvent(e device.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch e.Kind {
	case device.KindUnlockSuccess:
		if err := o.ConfirmUnlock(ctx, e.TenantID, e.SlotID, e.OrderID, e.RiderID); err != nil {
			log.Printf("orchestrator: confirm unlock slot=%s order=%s: %v", e.SlotID, e.OrderID, err)
		}
	case device.KindUnlockFailed:
		if err := o.HandleUnlockFailure(ctx, e.TenantID, e.SlotID, e.OrderID, e.RiderID, e.Reason); err != nil {
			log.Printf("orchestrator: unlock failure slot=%s: %v", e.SlotID, err)
		}
	case device.KindTamperDetected:
		o.handleTamper(ctx, e)
	case device.KindDoorClosed:
		if err := o.MarkOccupied(ctx, e.TenantID, e.SlotID); err != nil {
			// door events also arrive outside the drop-off flow
			log.Printf("orchestrator: door closed slot=%s: %v", e.SlotID, err)
		}
	case device.KindDoorOpened:
		// informational only; confirm comes from unlock_success
	case device.KindStatus:
		status, _ := json.Marshal(map[string]string{
			"reason":      e.Reason,
			"reported_at": e.ReportedAt.UTC().Format(time.RFC3339),
		})
		key := o.keys.DeviceStatus(e.TenantID, e.ShelfID)
		if err := o.store.Set(ctx, key, string(status), 5*time.Minute); err != nil {
			log.Printf("orchestrator: record device status shelf=%s: %v", e.ShelfID, err)
		}
	default:
		log.Printf("orchestrator: unknown device event kind=%s topic-shelf=%s", e.RawKind, e.ShelfID)
	}
}

func (o *Orchestrator) handleTamper(ctx context.Context, e device.Event) {
	o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventTamperDetected,
		TenantID: e.TenantID,
		SiteID:   e.SiteID,
		ShelfID:  e.ShelfID,
		SlotID:   e.SlotID,
		DeviceID: e.ShelfID,
		Metadata: map[string]string{"reason": e.Reason},
	})
	if e.SlotID == "" {
		return
	}
	slot, err := o.slots.GetByID(ctx, e.SlotID)
	if err != nil || slot == nil {
		log.Printf("orchestrator: tamper on unknown slot %s: %v", e.SlotID, err)
		return
	}
	slot.State = slotdomain.StateError
	if err := o.saveSlot(ctx, slot); err != nil {
		log.Printf("orchestrator: mark slot %s errored: %v", slot.ID, err)
	}
}

// ReconcileReservations releases slots whose reservation lease lapsed without
// the assignment ever completing: the slot returns to empty and the order to
// prepared so staff can reassign it. Safe to run concurrently with foreground
// requests; a live lease is simply skipped.
func (o *Orchestrator) ReconcileReservations(ctx context.Context, tenantID string) (int, error) {
	reserved, err := o.slots.ListByState(ctx, tenantID, slotdomain.StateReserved)
	if err != nil {
		return 0, fmt.Errorf("list reserved slots: %w", err)
	}
	swept := 0
	for _, slot := range reserved {
		_, alive, err := o.store.Get(ctx, o.keys.Reservation(tenantID, slot.ID))
		if err != nil {
			return swept, fmt.Errorf("check reservation: %w", err)
		}
		if alive {
			continue
		}
		if slot.OccupiedAt != nil {
			// drop-off happened; the lease simply outlived its purpose
			continue
		}
		orderID := slot.OrderID

		slot.State = slotdomain.StateEmpty
		slot.OrderID = ""
		slot.ReservedAt = nil
		if err := o.saveSlot(ctx, slot); err != nil {
			log.Printf("orchestrator: sweep slot %s: %v", slot.ID, err)
			continue
		}
		if orderID != "" {
			order, err := o.orders.GetByID(ctx, orderID)
			if err == nil && order != nil && order.Status == orderdomain.StatusAssigned {
				// repair: the assignment never completed
				order.Status = orderdomain.StatusPrepared
				order.SlotID = ""
				order.AssignedAt = nil
				if err := o.saveOrder(ctx, order); err != nil {
					log.Printf("orchestrator: sweep order %s: %v", order.ID, err)
				}
			}
		}
		o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventReservationSwept,
			TenantID: tenantID,
			SiteID:   slot.SiteID,
			ShelfID:  slot.ShelfID,
			SlotID:   slot.ID,
			OrderID:  orderID,
		})
		swept++
	}
	return swept, nil
}

// ResetCollectedSlots returns open slots to empty once their collection
// window lease has expired, completing the bound order and releasing the
// reservation. The pending reset is derived from the lease, not an in-process
// timer, so it survives restarts.
func (o *Orchestrator) ResetCollectedSlots(ctx context.Context, tenantID string) (int, error) {
	open, err := o.slots.ListByState(ctx, tenantID, slotdomain.StateOpen)
	if err != nil {
		return 0, fmt.Errorf("list open slots: %w", err)
	}
	reset := 0
	for _, slot := range open {
		_, pending, err := o.store.Get(ctx, o.keys.SlotReset(tenantID, slot.ID))
		if err != nil {
			return reset, fmt.Errorf("check reset lease: %w", err)
		}
		if pending {
			continue
		}
		orderID := slot.OrderID

		slot.State = slotdomain.StateEmpty
		slot.OrderID = ""
		slot.ReservedAt = nil
		slot.OccupiedAt = nil
		if err := o.saveSlot(ctx, slot); err != nil {
			log.Printf("orchestrator: reset slot %s: %v", slot.ID, err)
			continue
		}
		if err := o.store.Release(ctx, o.keys.Reservation(tenantID, slot.ID), orderID); err != nil {
			log.Printf("orchestrator: release reservation for slot %s: %v", slot.ID, err)
		}
		if orderID != "" {
			order, err := o.orders.GetByID(ctx, orderID)
			if err == nil && order != nil && order.Status == orderdomain.StatusPickedUp {
				order.Status = orderdomain.StatusComplete
				if err := o.saveOrder(ctx, order); err != nil {
					log.Printf("orchestrator: complete order %s: %v", order.ID, err)
				}
			}
		}
		o.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventSlotReset,
			TenantID: tenantID,
			SiteID:   slot.SiteID,
			ShelfID:  slot.ShelfID,
			SlotID:   slot.ID,
			OrderID:  orderID,
		})
		reset++
	}
	return reset, nil
}
