package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func rsaPEMPair(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	priv := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return string(priv), string(pub)
}

func TestParsePrivateKey_InlineRSA(t *testing.T) {
	privPEM, _ := rsaPEMPair(t)
	signer, err := ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if _, ok := signer.(*rsa.PrivateKey); !ok {
		t.Fatalf("signer type = %T, want *rsa.PrivateKey", signer)
	}
}

func TestParsePrivateKey_InlineECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ecdsa key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal ec key: %v", err)
	}
	p := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	signer, err := ParsePrivateKey(string(p))
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if _, ok := signer.(*ecdsa.PrivateKey); !ok {
		t.Fatalf("signer type = %T, want *ecdsa.PrivateKey", signer)
	}
}

func TestParsePrivateKey_EscapedNewlines(t *testing.T) {
	// Env vars commonly flatten the PEM into one line with literal \n.
	privPEM, _ := rsaPEMPair(t)
	flattened := strings.ReplaceAll(privPEM, "\n", `\n`)
	if _, err := ParsePrivateKey(flattened); err != nil {
		t.Fatalf("ParsePrivateKey with escaped newlines: %v", err)
	}
}

func TestParsePrivateKey_FromFile(t *testing.T) {
	privPEM, _ := rsaPEMPair(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := os.WriteFile(path, []byte(privPEM), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	if _, err := ParsePrivateKey(path); err != nil {
		t.Fatalf("ParsePrivateKey from file: %v", err)
	}
}

func TestParsePrivateKey_Invalid(t *testing.T) {
	_, pubPEM := rsaPEMPair(t)
	cases := map[string]string{
		"empty":              "",
		"not pem":            "-----BEGIN GARBAGE-----\nzzzz\n-----END GARBAGE-----",
		"public not private": pubPEM,
	}
	for name, in := range cases {
		if _, err := ParsePrivateKey(in); err == nil {
			t.Errorf("%s: ParsePrivateKey accepted bad input", name)
		}
	}
}

func TestParsePublicKey_RoundTrip(t *testing.T) {
	_, pubPEM := rsaPEMPair(t)
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if _, ok := pub.(*rsa.PublicKey); !ok {
		t.Fatalf("public key type = %T, want *rsa.PublicKey", pub)
	}
}

func TestParsePublicKey_RejectsPrivate(t *testing.T) {
	privPEM, _ := rsaPEMPair(t)
	_, err := ParsePublicKey(privPEM)
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}

func TestParseKey_MissingFile(t *testing.T) {
	if _, err := ParsePrivateKey(filepath.Join(t.TempDir(), "absent.pem")); err == nil {
		t.Fatal("ParsePrivateKey accepted a missing file")
	}
}
