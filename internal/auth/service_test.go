package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	auditdomain "locker-pickup-control-plane/backend/internal/audit/domain"
	"locker-pickup-control-plane/backend/internal/coordstore"
	riderdomain "locker-pickup-control-plane/backend/internal/rider/domain"
	"locker-pickup-control-plane/backend/internal/security"
	"locker-pickup-control-plane/backend/internal/token"
	userdomain "locker-pickup-control-plane/backend/internal/user/domain"
)

type mockUserRepo struct {
	users map[string]*userdomain.User
}

func (m *mockUserRepo) GetByEmail(_ context.Context, tenantID, email string) (*userdomain.User, error) {
	for _, u := range m.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	return m.users[id], nil
}

type mockRiderRepo struct {
	riders map[string]*riderdomain.Rider
}

func (m *mockRiderRepo) GetByID(_ context.Context, id string) (*riderdomain.Rider, error) {
	return m.riders[id], nil
}

type mockAuthLedger struct {
	mu     sync.Mutex
	events []*auditdomain.SecurityEvent
}

func (m *mockAuthLedger) LogEvent(_ context.Context, e *auditdomain.SecurityEvent) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return "evt-1"
}

func (m *mockAuthLedger) lastType() auditdomain.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return ""
	}
	return m.events[len(m.events)-1].Type
}

type captureSender struct {
	phone string
	otp   string
	err   error
}

func (c *captureSender) SendOTP(phone, otp string) error {
	c.phone = phone
	c.otp = otp
	return c.err
}

func newTestService(t *testing.T) (*Service, *coordstore.MemoryStore, *mockAuthLedger, *captureSender) {
	t.Helper()

	provider, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider() error = %v", err)
	}
	store := coordstore.NewMemoryStore()
	keys := coordstore.NewKeys("locker")
	ledger := &mockAuthLedger{}
	sender := &captureSender{}

	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("correct-horse"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	users := &mockUserRepo{users: map[string]*userdomain.User{
		"u1": {ID: "u1", TenantID: "t1", Email: "ops@example.com", Phone: "+97150000001", PasswordHash: hash, Role: userdomain.RoleManager, Status: userdomain.UserStatusActive},
		"u2": {ID: "u2", TenantID: "t1", Email: "gone@example.com", PasswordHash: hash, Role: userdomain.RoleStaff, Status: userdomain.UserStatusDisabled},
	}}
	riders := &mockRiderRepo{riders: map[string]*riderdomain.Rider{
		"r1": {ID: "r1", TenantID: "t1", Platform: "talabat", Active: true},
		"r2": {ID: "r2", TenantID: "t1", Platform: "careem", Active: false},
	}}

	links := token.NewService(provider, store, keys, ledger, time.Second)

	svc := NewService(users, riders, links, hasher, provider, store, keys, ledger, sender,
		30*time.Minute, 15*time.Minute, 2*time.Minute)
	return svc, store, ledger, sender
}

func TestAuthenticateStaff(t *testing.T) {
	svc, store, ledger, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.AuthenticateStaff(ctx, "t1", "Ops@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("AuthenticateStaff() error = %v", err)
	}
	if sess.SubjectID != "u1" || sess.Role != "manager" {
		t.Errorf("session = %+v, want subject u1 role manager", sess)
	}
	if ledger.lastType() != auditdomain.EventStaffLogin {
		t.Errorf("last event = %s, want %s", ledger.lastType(), auditdomain.EventStaffLogin)
	}

	keys := coordstore.NewKeys("locker")
	if _, ok, _ := store.Get(ctx, keys.Session(sess.SessionID)); !ok {
		t.Error("session state not stored")
	}
}

func TestAuthenticateStaffWrongPassword(t *testing.T) {
	svc, _, ledger, _ := newTestService(t)

	_, err := svc.AuthenticateStaff(context.Background(), "t1", "ops@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
	if ledger.lastType() != auditdomain.EventLoginFailure {
		t.Errorf("last event = %s, want %s", ledger.lastType(), auditdomain.EventLoginFailure)
	}
}

func TestAuthenticateStaffDisabledUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.AuthenticateStaff(context.Background(), "t1", "gone@example.com", "correct-horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateStaffUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.AuthenticateStaff(context.Background(), "t1", "nobody@example.com", "correct-horse")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestMagicLinkSessionFlow(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.GenerateRiderMagicLink(ctx, "r1")
	if err != nil {
		t.Fatalf("GenerateRiderMagicLink() error = %v", err)
	}

	sess, err := svc.VerifyMagicLink(ctx, link)
	if err != nil {
		t.Fatalf("VerifyMagicLink() error = %v", err)
	}
	if sess.SubjectID != "r1" || sess.Role != "courier" {
		t.Errorf("session = %+v, want subject r1 role courier", sess)
	}

	// single use
	if _, err := svc.VerifyMagicLink(ctx, link); err == nil {
		t.Error("second VerifyMagicLink() succeeded, want replay rejection")
	}
}

func TestGenerateRiderMagicLinkInactiveRider(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.GenerateRiderMagicLink(context.Background(), "r2"); !errors.Is(err, ErrRiderNotFound) {
		t.Fatalf("error = %v, want ErrRiderNotFound", err)
	}
	if _, err := svc.GenerateRiderMagicLink(context.Background(), "missing"); !errors.Is(err, ErrRiderNotFound) {
		t.Fatalf("error = %v, want ErrRiderNotFound", err)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.AuthenticateStaff(ctx, "t1", "ops@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("AuthenticateStaff() error = %v", err)
	}

	refreshed, err := svc.RefreshAccessToken(ctx, sess.Token)
	if err != nil {
		t.Fatalf("RefreshAccessToken() error = %v", err)
	}
	if refreshed.SessionID != sess.SessionID {
		t.Errorf("session id = %s, want %s", refreshed.SessionID, sess.SessionID)
	}
	if refreshed.SubjectID != "u1" {
		t.Errorf("subject = %s, want u1", refreshed.SubjectID)
	}
}

func TestRefreshAccessTokenRevokedSession(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	sess, err := svc.AuthenticateStaff(ctx, "t1", "ops@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("AuthenticateStaff() error = %v", err)
	}
	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, err := svc.RefreshAccessToken(ctx, sess.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.ResolveSession(ctx, sess.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("ResolveSession error = %v, want ErrSessionNotFound", err)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if err := svc.Logout(context.Background(), "not-a-token"); err != nil {
		t.Fatalf("Logout() with garbage token error = %v, want nil", err)
	}
}

func TestStepUpVerifyAndConsume(t *testing.T) {
	svc, _, ledger, sender := newTestService(t)
	ctx := context.Background()

	if err := svc.StartStepUp(ctx, "u1"); err != nil {
		t.Fatalf("StartStepUp() error = %v", err)
	}
	if sender.phone != "+97150000001" {
		t.Errorf("otp sent to %s, want +97150000001", sender.phone)
	}
	if len(sender.otp) != 6 {
		t.Fatalf("otp length = %d, want 6", len(sender.otp))
	}

	ok, err := svc.VerifyStepUpAuth(ctx, "t1", "u1", sender.otp)
	if err != nil {
		t.Fatalf("VerifyStepUpAuth() error = %v", err)
	}
	if !ok {
		t.Fatal("VerifyStepUpAuth() = false, want true")
	}

	// consumed on first success
	ok, err = svc.VerifyStepUpAuth(ctx, "t1", "u1", sender.otp)
	if err != nil {
		t.Fatalf("VerifyStepUpAuth() replay error = %v", err)
	}
	if ok {
		t.Error("VerifyStepUpAuth() accepted consumed code")
	}
	if ledger.lastType() != auditdomain.EventStepUpFailure {
		t.Errorf("last event = %s, want %s", ledger.lastType(), auditdomain.EventStepUpFailure)
	}
}

func TestStepUpWrongCode(t *testing.T) {
	svc, _, ledger, sender := newTestService(t)
	ctx := context.Background()

	if err := svc.StartStepUp(ctx, "u1"); err != nil {
		t.Fatalf("StartStepUp() error = %v", err)
	}

	ok, err := svc.VerifyStepUpAuth(ctx, "t1", "u1", "000000")
	if err != nil {
		t.Fatalf("VerifyStepUpAuth() error = %v", err)
	}
	if ok && sender.otp != "000000" {
		t.Error("VerifyStepUpAuth() accepted wrong code")
	}
	if !ok && ledger.lastType() != auditdomain.EventStepUpFailure {
		t.Errorf("last event = %s, want %s", ledger.lastType(), auditdomain.EventStepUpFailure)
	}

	// the real code still works after a failed attempt within the window
	ok, err = svc.VerifyStepUpAuth(ctx, "t1", "u1", sender.otp)
	if err != nil || !ok {
		t.Fatalf("VerifyStepUpAuth() with real code = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestStepUpConcurrentSingleUse(t *testing.T) {
	svc, _, _, sender := newTestService(t)
	ctx := context.Background()

	if err := svc.StartStepUp(ctx, "u1"); err != nil {
		t.Fatalf("StartStepUp() error = %v", err)
	}

	// Concurrent presentations of the same valid code must authorize at most
	// one override.
	const callers = 20
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.VerifyStepUpAuth(ctx, "t1", "u1", sender.otp)
			if err != nil {
				t.Errorf("VerifyStepUpAuth() error = %v", err)
				return
			}
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("concurrent VerifyStepUpAuth wins = %d, want exactly 1", wins)
	}
}

func TestStepUpNoPhone(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if err := svc.StartStepUp(context.Background(), "u2"); err == nil {
		t.Fatal("StartStepUp() for user without phone succeeded, want error")
	}
}
