package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries the wrong issuer.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token is outside its nbf/exp window
	// (beyond the configured clock-skew leeway).
	ErrTokenExpired = errors.New("token outside validity window")
	// ErrWrongShelf is returned when an unlock token is presented to a shelf
	// other than the one it was issued for.
	ErrWrongShelf = errors.New("token bound to a different shelf")
)

// UnlockClaims is the claim set of a single-use unlock capability token.
// The bound shelf doubles as the audience so a leaked token cannot be
// replayed against another shelf.
type UnlockClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	SiteID   string `json:"site_id"`
	ShelfID  string `json:"shelf_id"`
	SlotID   string `json:"slot_id"`
	OrderID  string `json:"order_id"`
	RiderID  string `json:"rider_id"`
}

// SessionClaims is the claim set of a staff/courier session token. SessionID
// resolves against server-side session state in the coordination store.
type SessionClaims struct {
	jwt.RegisteredClaims
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// MagicLinkClaims is the claim set of a single-use courier magic-link token.
type MagicLinkClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
}

// TokenProvider signs and validates the system's JWTs using RS256 or ES256.
// A key identifier (kid) is stamped into every header so verifiers can follow
// key rotation.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	keyID      string
	issuer     string
	leeway     time.Duration
}

// NewTokenProvider returns a TokenProvider signing with privateKey (RSA or
// ECDSA). leeway is the clock-skew allowance applied to time claims during
// validation.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, keyID, issuer string, leeway time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		keyID:      keyID,
		issuer:     issuer,
		leeway:     leeway,
	}
}

// IssueUnlock signs an unlock capability token scoped to one slot, one order,
// and one courier, valid from now for ttl. Returns the compact token and its
// jti; the caller must register the jti before handing the token out.
func (p *TokenProvider) IssueUnlock(tenantID, siteID, shelfID, slotID, orderID, riderID string, ttl time.Duration) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := UnlockClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   riderID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{shelfID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: tenantID,
		SiteID:   siteID,
		ShelfID:  shelfID,
		SlotID:   slotID,
		OrderID:  orderID,
		RiderID:  riderID,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// VerifyUnlock validates signature, issuer, and time claims (with leeway),
// then checks the token's bound shelf against requestingShelf. It does NOT
// consume the jti; single-use enforcement lives in the token service.
func (p *TokenProvider) VerifyUnlock(tokenString, requestingShelf string) (*UnlockClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UnlockClaims{}, p.keyFunc,
		jwt.WithLeeway(p.leeway), jwt.WithIssuer(p.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*UnlockClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ShelfID != requestingShelf || !hasAudience(claims.Audience, requestingShelf) {
		// claims are returned so the caller can audit the attempted scope
		return claims, ErrWrongShelf
	}
	return claims, nil
}

// IssueSession signs a session token for a staff member or courier. Returns
// the token and its expiry.
func (p *TokenProvider) IssueSession(sessionID, subjectID, tenantID, role string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   subjectID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID:  tenantID,
		Role:      role,
		SessionID: sessionID,
	}
	token, err := p.sign(claims)
	return token, expiresAt, err
}

// ValidateSession parses and validates a session token (signature, exp, iss).
func (p *TokenProvider) ValidateSession(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, p.keyFunc,
		jwt.WithLeeway(p.leeway), jwt.WithIssuer(p.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueMagicLink signs a single-use courier magic-link token. The caller must
// register the returned jti before sending the link.
func (p *TokenProvider) IssueMagicLink(riderID, tenantID string, ttl time.Duration) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(ttl)
	claims := MagicLinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   riderID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TenantID: tenantID,
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

// ValidateMagicLink parses and validates a magic-link token. Single-use
// enforcement (jti consumption) is the caller's responsibility.
func (p *TokenProvider) ValidateMagicLink(tokenString string) (*MagicLinkClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MagicLinkClaims{}, p.keyFunc,
		jwt.WithLeeway(p.leeway), jwt.WithIssuer(p.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*MagicLinkClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	t.Header["kid"] = p.keyID
	return t.SignedString(p.privateKey)
}

func (p *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
		return p.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
		return p.publicKey, nil
	}
	return nil, ErrInvalidToken
}

func hasAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
