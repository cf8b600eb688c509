// Package auth implements staff/courier identity: password login, courier
// magic links, session refresh, logout, and the step-up verification gating
// emergency overrides. Session state lives server-side in the coordination
// store; a session token is only as good as the session it references.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"locker-pickup-control-plane/backend/internal/audit"
	auditdomain "locker-pickup-control-plane/backend/internal/audit/domain"
	"locker-pickup-control-plane/backend/internal/auth/sms"
	"locker-pickup-control-plane/backend/internal/coordstore"
	riderdomain "locker-pickup-control-plane/backend/internal/rider/domain"
	"locker-pickup-control-plane/backend/internal/security"
	userdomain "locker-pickup-control-plane/backend/internal/user/domain"
)

// Sentinel errors for the auth service.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session revoked or expired")
	ErrRiderNotFound      = errors.New("rider not found or inactive")
	ErrStepUpFailed       = errors.New("step-up verification failed")
)

// Session is an issued session and its expiry.
type Session struct {
	Token     string
	SessionID string
	SubjectID string
	TenantID  string
	Role      string
	ExpiresAt time.Time
}

// UserRepo is the minimal staff-user repository needed by the auth service.
type UserRepo interface {
	GetByEmail(ctx context.Context, tenantID, email string) (*userdomain.User, error)
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RiderRepo is the minimal rider repository needed by the auth service.
type RiderRepo interface {
	GetByID(ctx context.Context, id string) (*riderdomain.Rider, error)
}

// MagicLinks issues and consumes single-use courier link tokens. Implemented
// by the token service.
type MagicLinks interface {
	IssueMagicLink(ctx context.Context, riderID, tenantID string, ttl time.Duration) (string, error)
	VerifyMagicLink(ctx context.Context, tokenString string) (*security.MagicLinkClaims, error)
}

// sessionState is the server-side session record in the coordination store.
type sessionState struct {
	SubjectID string `json:"subject_id"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
}

// Service implements login, magic links, refresh, logout, and step-up.
type Service struct {
	users  UserRepo
	riders RiderRepo
	links  MagicLinks
	hasher *security.Hasher
	tokens *security.TokenProvider
	store  coordstore.Store
	keys   coordstore.Keys
	ledger audit.Ledger
	sender sms.Sender

	sessionTTL   time.Duration
	magicLinkTTL time.Duration
	stepUpTTL    time.Duration
}

// NewService returns an auth Service with the given dependencies. sender may
// be nil; then step-up codes cannot be delivered and StartStepUp fails.
func NewService(
	users UserRepo,
	riders RiderRepo,
	links MagicLinks,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	store coordstore.Store,
	keys coordstore.Keys,
	ledger audit.Ledger,
	sender sms.Sender,
	sessionTTL, magicLinkTTL, stepUpTTL time.Duration,
) *Service {
	return &Service{
		users:        users,
		riders:       riders,
		links:        links,
		hasher:       hasher,
		tokens:       tokens,
		store:        store,
		keys:         keys,
		ledger:       ledger,
		sender:       sender,
		sessionTTL:   sessionTTL,
		magicLinkTTL: magicLinkTTL,
		stepUpTTL:    stepUpTTL,
	}
}

// AuthenticateStaff verifies the password and issues a session token bound to
// server-side session state.
func (s *Service) AuthenticateStaff(ctx context.Context, tenantID, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventLoginFailure,
			TenantID: tenantID,
			Metadata: map[string]string{"email": email},
		})
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventLoginFailure,
			TenantID: tenantID,
			UserID:   user.ID,
		})
		return nil, ErrInvalidCredentials
	}
	sess, err := s.createSession(ctx, user.ID, tenantID, string(user.Role))
	if err != nil {
		return nil, err
	}
	s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventStaffLogin,
		TenantID: tenantID,
		UserID:   user.ID,
	})
	return sess, nil
}

// GenerateRiderMagicLink issues a single-use link token for an active rider.
func (s *Service) GenerateRiderMagicLink(ctx context.Context, riderID string) (string, error) {
	rider, err := s.riders.GetByID(ctx, riderID)
	if err != nil {
		return "", err
	}
	if rider == nil || !rider.Active {
		return "", ErrRiderNotFound
	}
	return s.links.IssueMagicLink(ctx, rider.ID, rider.TenantID, s.magicLinkTTL)
}

// VerifyMagicLink consumes a magic link and issues a courier session.
func (s *Service) VerifyMagicLink(ctx context.Context, linkToken string) (*Session, error) {
	claims, err := s.links.VerifyMagicLink(ctx, linkToken)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, claims.Subject, claims.TenantID, "courier")
}

// RefreshAccessToken issues a fresh session token for an existing session.
// The referenced session must still exist in the coordination store.
func (s *Service) RefreshAccessToken(ctx context.Context, sessionToken string) (*Session, error) {
	claims, err := s.tokens.ValidateSession(sessionToken)
	if err != nil {
		return nil, err
	}
	raw, ok, err := s.store.Get(ctx, s.keys.Session(claims.SessionID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	var state sessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	// sliding expiry: the store record and the token move together
	if err := s.store.Set(ctx, s.keys.Session(claims.SessionID), raw, s.sessionTTL); err != nil {
		return nil, err
	}
	tok, expiresAt, err := s.tokens.IssueSession(claims.SessionID, state.SubjectID, state.TenantID, state.Role, s.sessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     tok,
		SessionID: claims.SessionID,
		SubjectID: state.SubjectID,
		TenantID:  state.TenantID,
		Role:      state.Role,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveSession validates the token and confirms the referenced session
// still exists. Returns the session claims.
func (s *Service) ResolveSession(ctx context.Context, sessionToken string) (*security.SessionClaims, error) {
	claims, err := s.tokens.ValidateSession(sessionToken)
	if err != nil {
		return nil, err
	}
	_, ok, err := s.store.Get(ctx, s.keys.Session(claims.SessionID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return claims, nil
}

// Logout revokes the session referenced by the token. Invalid tokens are not
// an error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	claims, err := s.tokens.ValidateSession(sessionToken)
	if err != nil {
		return nil
	}
	if err := s.store.Del(ctx, s.keys.Session(claims.SessionID)); err != nil {
		return err
	}
	s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
		Type:     auditdomain.EventLogout,
		TenantID: claims.TenantID,
		UserID:   claims.Subject,
	})
	return nil
}

// StartStepUp generates a fresh second-factor code for the user, stores its
// hash with the narrow step-up window, and delivers it by SMS. The plain code
// is never stored or logged.
func (s *Service) StartStepUp(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.Phone == "" {
		return fmt.Errorf("step-up: user %s has no verified phone", userID)
	}
	if s.sender == nil {
		return errors.New("step-up: no SMS sender configured")
	}
	code, err := security.GenerateNumericCode(6)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.keys.StepUp(userID), security.HashCode(code), s.stepUpTTL); err != nil {
		return err
	}
	if err := s.sender.SendOTP(user.Phone, code); err != nil {
		// the stored hash expires on its own; report delivery failure
		return fmt.Errorf("step-up: send code: %w", err)
	}
	return nil
}

// VerifyStepUpAuth checks the second-factor code within its narrow window and
// consumes it on success. The compare and the consume are one atomic
// compare-and-delete in the store, so concurrent presentations of the same
// code succeed at most once; a wrong code leaves the stored code in place for
// a retry within the window. A failed or repeated attempt is an audit event;
// the emergency path must not proceed without a true result.
func (s *Service) VerifyStepUpAuth(ctx context.Context, tenantID, userID, code string) (bool, error) {
	consumed, err := s.store.ConsumeMatching(ctx, s.keys.StepUp(userID), security.HashCode(code))
	if err != nil {
		return false, err
	}
	if !consumed {
		s.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventStepUpFailure,
			TenantID: tenantID,
			UserID:   userID,
		})
		return false, nil
	}
	return true, nil
}

func (s *Service) createSession(ctx context.Context, subjectID, tenantID, role string) (*Session, error) {
	sessionID := uuid.New().String()
	raw, err := json.Marshal(sessionState{SubjectID: subjectID, TenantID: tenantID, Role: role})
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, s.keys.Session(sessionID), string(raw), s.sessionTTL); err != nil {
		return nil, err
	}
	tok, expiresAt, err := s.tokens.IssueSession(sessionID, subjectID, tenantID, role, s.sessionTTL)
	if err != nil {
		// the orphaned session record expires on its own
		return nil, err
	}
	return &Session{
		Token:     tok,
		SessionID: sessionID,
		SubjectID: subjectID,
		TenantID:  tenantID,
		Role:      role,
		ExpiresAt: expiresAt,
	}, nil
}
