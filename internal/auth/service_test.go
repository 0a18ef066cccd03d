package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	s := &service{secret: []byte("test-secret"), tokenTTL: time.Hour}
	userID := uuid.New()

	token, err := s.issueToken(userID, RoleClaimer)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	gotID, gotRole, err := s.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotID != userID {
		t.Errorf("user id: got %s, want %s", gotID, userID)
	}
	if gotRole != RoleClaimer {
		t.Errorf("role: got %s, want %s", gotRole, RoleClaimer)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := &service{secret: []byte("secret-a"), tokenTTL: time.Hour}
	verifier := &service{secret: []byte("secret-b"), tokenTTL: time.Hour}

	token, err := issuer.issueToken(uuid.New(), RolePoster)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, _, err := verifier.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("token signed with a different secret should not validate")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	s := &service{secret: []byte("test-secret"), tokenTTL: -time.Minute}

	token, err := s.issueToken(uuid.New(), RolePoster)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, _, err := s.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("expired token should not validate")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	s := &service{secret: []byte("test-secret"), tokenTTL: time.Hour}
	if _, _, err := s.ValidateToken(context.Background(), "not.a.jwt"); err == nil {
		t.Fatal("garbage token should not validate")
	}
}
