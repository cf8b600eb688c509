// Package token implements the capability-token protocol: single-use,
// narrowly-scoped unlock tokens and single-use courier magic links. The
// single-use guarantee is recorded in the coordination store before a token is
// ever returned to a caller, so a crash between signing and registration can
// never leave a replayable token in the wild.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"locker-pickup-control-plane/backend/internal/audit"
	auditdomain "locker-pickup-control-plane/backend/internal/audit/domain"
	"locker-pickup-control-plane/backend/internal/coordstore"
	"locker-pickup-control-plane/backend/internal/security"
)

var (
	// ErrReplayed is returned when a token's jti has already been consumed or
	// was never registered. Verification fails closed on absence.
	ErrReplayed = errors.New("token already used")
)

// UnlockToken is an issued capability token and its expiry.
type UnlockToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Service issues and verifies single-use tokens.
type Service struct {
	provider *security.TokenProvider
	store    coordstore.Store
	keys     coordstore.Keys
	ledger   audit.Ledger
	skew     time.Duration
}

// NewService returns a token Service. skew widens jti registration TTLs past
// token expiry so a token can never outlive its replay-prevention record.
func NewService(provider *security.TokenProvider, store coordstore.Store, keys coordstore.Keys, ledger audit.Ledger, skew time.Duration) *Service {
	return &Service{
		provider: provider,
		store:    store,
		keys:     keys,
		ledger:   ledger,
		skew:     skew,
	}
}

// IssueUnlockToken mints an unlock capability token scoped to exactly one
// slot, order, and courier. The jti is registered in the coordination store
// before the token is returned; if registration fails, no token is handed out.
func (s *Service) IssueUnlockToken(ctx context.Context, tenantID, siteID, shelfID, slotID, orderID, riderID string, ttl time.Duration) (*UnlockToken, error) {
	tok, jti, expiresAt, err := s.provider.IssueUnlock(tenantID, siteID, shelfID, slotID, orderID, riderID, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign unlock token: %w", err)
	}
	if err := s.store.RegisterOnce(ctx, s.keys.UnlockJTI(jti), ttl+s.skew); err != nil {
		return nil, fmt.Errorf("register unlock jti: %w", err)
	}
	return &UnlockToken{Token: tok, JTI: jti, ExpiresAt: expiresAt}, nil
}

// VerifyUnlockToken verifies signature and time claims, checks the bound
// shelf against requestingShelf, and atomically consumes the jti. Every
// failure branch emits its own security-event type. Returns the claims only
// when all checks pass; each token can pass at most once.
func (s *Service) VerifyUnlockToken(ctx context.Context, tokenString, requestingShelf string) (*security.UnlockClaims, error) {
	claims, err := s.provider.VerifyUnlock(tokenString, requestingShelf)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventTokenExpired,
			ShelfID:  requestingShelf,
			Metadata: map[string]string{"reason": "outside validity window"},
		})
		return nil, err
	case errors.Is(err, security.ErrWrongShelf):
		e := &auditdomain.SecurityEvent{
			Type:     auditdomain.EventTokenWrongShelf,
			ShelfID:  requestingShelf,
			Metadata: map[string]string{"requesting_shelf": requestingShelf},
		}
		if claims != nil {
			e.TenantID = claims.TenantID
			e.SiteID = claims.SiteID
			e.SlotID = claims.SlotID
			e.OrderID = claims.OrderID
			e.RiderID = claims.RiderID
			e.Metadata["bound_shelf"] = claims.ShelfID
		}
		s.ledger.LogEvent(ctx, e)
		return nil, err
	case err != nil:
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:    auditdomain.EventTokenInvalid,
			ShelfID: requestingShelf,
		})
		return nil, err
	}

	consumed, err := s.store.ConsumeOnce(ctx, s.keys.UnlockJTI(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("consume unlock jti: %w", err)
	}
	if !consumed {
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventTokenReplayed,
			TenantID: claims.TenantID,
			SiteID:   claims.SiteID,
			ShelfID:  claims.ShelfID,
			SlotID:   claims.SlotID,
			OrderID:  claims.OrderID,
			RiderID:  claims.RiderID,
		})
		return nil, ErrReplayed
	}
	return claims, nil
}

// IssueMagicLink mints a single-use courier magic-link token with the same
// register-before-hand-out discipline as unlock tokens.
func (s *Service) IssueMagicLink(ctx context.Context, riderID, tenantID string, ttl time.Duration) (string, error) {
	tok, jti, _, err := s.provider.IssueMagicLink(riderID, tenantID, ttl)
	if err != nil {
		return "", fmt.Errorf("sign magic link: %w", err)
	}
	if err := s.store.RegisterOnce(ctx, s.keys.MagicLinkJTI(jti), ttl+s.skew); err != nil {
		return "", fmt.Errorf("register magic link jti: %w", err)
	}
	s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventMagicLinkIssued,
		TenantID: tenantID,
		RiderID:  riderID,
	})
	return tok, nil
}

// VerifyMagicLink validates and consumes a magic-link token, returning its
// claims. A second verification of the same link fails with ErrReplayed.
func (s *Service) VerifyMagicLink(ctx context.Context, tokenString string) (*security.MagicLinkClaims, error) {
	claims, err := s.provider.ValidateMagicLink(tokenString)
	if err != nil {
		return nil, err
	}
	consumed, err := s.store.ConsumeOnce(ctx, s.keys.MagicLinkJTI(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("consume magic link jti: %w", err)
	}
	if !consumed {
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventTokenReplayed,
			TenantID: claims.TenantID,
			RiderID:  claims.Subject,
			Metadata: map[string]string{"token": "magic_link"},
		})
		return nil, ErrReplayed
	}
	s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventMagicLinkVerified,
		TenantID: claims.TenantID,
		RiderID:  claims.Subject,
	})
	return claims, nil
}
