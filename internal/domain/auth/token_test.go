package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	claims := Claims{
		UserID:      "u1",
		Username:    "SUPERADMIN",
		Jabatan:     "SUPER ADMIN",
		Destination: DestSuperAdmin,
	}

	token, err := GenerateToken("test-secret", claims, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	parsed, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("ParseToken() unexpected error: %v", err)
	}
	if parsed.UserID != claims.UserID {
		t.Fatalf("parsed UserID = %q, want %q", parsed.UserID, claims.UserID)
	}
	if parsed.Username != claims.Username {
		t.Fatalf("parsed Username = %q, want %q", parsed.Username, claims.Username)
	}
	if parsed.Jabatan != claims.Jabatan {
		t.Fatalf("parsed Jabatan = %q, want %q", parsed.Jabatan, claims.Jabatan)
	}
	if parsed.Destination != claims.Destination {
		t.Fatalf("parsed Destination = %q, want %q", parsed.Destination, claims.Destination)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("ParseToken() should reject a token signed with another secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("test-secret", Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}
	if _, err := ParseToken("test-secret", token); err == nil {
		t.Fatal("ParseToken() should reject an expired token")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseToken("test-secret", "not.a.token"); err == nil {
		t.Fatal("ParseToken() should reject malformed input")
	}
}
