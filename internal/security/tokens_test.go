package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenProvider_IssueAndVerifyUnlock(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}

	token, jti, exp, err := p.IssueUnlock("t1", "site1", "shelf1", "slot1", "o1", "r1", 60*time.Second)
	if err != nil {
		t.Fatalf("IssueUnlock: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.VerifyUnlock(token, "shelf1")
	if err != nil {
		t.Fatalf("VerifyUnlock: %v", err)
	}
	if claims.ID != jti {
		t.Errorf("jti = %q, want %q", claims.ID, jti)
	}
	if claims.TenantID != "t1" || claims.SiteID != "site1" || claims.SlotID != "slot1" {
		t.Errorf("claims scope = %q/%q/%q", claims.TenantID, claims.SiteID, claims.SlotID)
	}
	if claims.OrderID != "o1" || claims.RiderID != "r1" {
		t.Errorf("claims binding = %q/%q", claims.OrderID, claims.RiderID)
	}
}

func TestTokenProvider_VerifyUnlockWrongShelf(t *testing.T) {
	p, _ := NewTestTokenProvider()
	token, _, _, err := p.IssueUnlock("t1", "site1", "shelf1", "slot1", "o1", "r1", 60*time.Second)
	if err != nil {
		t.Fatalf("IssueUnlock: %v", err)
	}
	if _, err := p.VerifyUnlock(token, "shelf2"); !errors.Is(err, ErrWrongShelf) {
		t.Errorf("VerifyUnlock wrong shelf: got %v, want ErrWrongShelf", err)
	}
}

func TestTokenProvider_VerifyUnlockExpired(t *testing.T) {
	p, _ := NewTestTokenProvider()
	// test provider leeway is 2s; a token that expired 10s ago is out of window
	token, _, _, err := p.IssueUnlock("t1", "site1", "shelf1", "slot1", "o1", "r1", -10*time.Second)
	if err != nil {
		t.Fatalf("IssueUnlock: %v", err)
	}
	if _, err := p.VerifyUnlock(token, "shelf1"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyUnlock expired: got %v, want ErrTokenExpired", err)
	}
}

func TestTokenProvider_VerifyUnlockNotYetValid(t *testing.T) {
	p, _ := NewTestTokenProvider()
	// hand-built claims: nbf one hour out, well beyond the 2s leeway
	now := time.Now().UTC()
	token, err := p.sign(UnlockClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-future",
			Subject:   "r1",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"shelf1"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Hour)),
		},
		TenantID: "t1",
		SiteID:   "site1",
		ShelfID:  "shelf1",
		SlotID:   "slot1",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := p.VerifyUnlock(token, "shelf1"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("VerifyUnlock before nbf: got %v, want ErrTokenExpired", err)
	}
}

func TestTokenProvider_VerifyUnlockGarbage(t *testing.T) {
	p, _ := NewTestTokenProvider()
	if _, err := p.VerifyUnlock("not-a-token", "shelf1"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyUnlock garbage: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_VerifyUnlockWrongIssuer(t *testing.T) {
	p, _ := NewTestTokenProvider()
	other := NewTokenProvider(testKey, testKey.Public(), "test-kid", "other-issuer", 2*time.Second)
	token, _, _, err := other.IssueUnlock("t1", "site1", "shelf1", "slot1", "o1", "r1", 60*time.Second)
	if err != nil {
		t.Fatalf("IssueUnlock: %v", err)
	}
	if _, err := p.VerifyUnlock(token, "shelf1"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyUnlock wrong issuer: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_SessionRoundTrip(t *testing.T) {
	p, _ := NewTestTokenProvider()
	token, exp, err := p.IssueSession("sess1", "u1", "t1", "staff", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Fatal("session expires in the past")
	}
	claims, err := p.ValidateSession(token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if claims.SessionID != "sess1" || claims.Subject != "u1" || claims.TenantID != "t1" || claims.Role != "staff" {
		t.Errorf("session claims = %+v", claims)
	}
}

func TestTokenProvider_MagicLinkRoundTrip(t *testing.T) {
	p, _ := NewTestTokenProvider()
	token, jti, _, err := p.IssueMagicLink("r1", "t1", 15*time.Minute)
	if err != nil {
		t.Fatalf("IssueMagicLink: %v", err)
	}
	claims, err := p.ValidateMagicLink(token)
	if err != nil {
		t.Fatalf("ValidateMagicLink: %v", err)
	}
	if claims.ID != jti || claims.Subject != "r1" || claims.TenantID != "t1" {
		t.Errorf("magic link claims = %+v", claims)
	}
}
