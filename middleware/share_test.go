package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quillsign/quillsign/backend/config"
)

func TestShareTokenRoundTrip(t *testing.T) {
	cfg := &config.ShareConfig{
		TokenSecret:     "share-secret",
		TokenExpireDays: 7,
	}

	token, expiresAt, err := GenerateShareToken("contract-123", cfg)
	if err != nil {
		t.Fatalf("Failed to generate share token: %v", err)
	}
	if token == "" {
		t.Error("Expected non-empty token")
	}

	expectedExpiry := time.Now().Add(7 * 24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Expiry time %v is not within expected range of %v", expiresAt, expectedExpiry)
	}

	contractID, err := ParseShareToken(token, cfg)
	if err != nil {
		t.Fatalf("Failed to parse share token: %v", err)
	}
	if contractID != "contract-123" {
		t.Errorf("Expected contract-123, got %q", contractID)
	}
}

func TestParseShareTokenWrongSecret(t *testing.T) {
	cfg := &config.ShareConfig{TokenSecret: "share-secret", TokenExpireDays: 7}
	token, _, err := GenerateShareToken("contract-123", cfg)
	if err != nil {
		t.Fatalf("Failed to generate share token: %v", err)
	}

	other := &config.ShareConfig{TokenSecret: "different-secret", TokenExpireDays: 7}
	if _, err := ParseShareToken(token, other); err == nil {
		t.Error("Expected error for token signed with a different secret")
	}
}

func TestParseShareTokenExpired(t *testing.T) {
	cfg := &config.ShareConfig{TokenSecret: "share-secret", TokenExpireDays: 7}

	claims := ShareClaims{
		ContractID: "contract-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(cfg.TokenSecret))

	if _, err := ParseShareToken(tokenString, cfg); err == nil {
		t.Error("Expected error for expired share token")
	}
}

func TestParseShareTokenWithoutContract(t *testing.T) {
	cfg := &config.ShareConfig{TokenSecret: "share-secret", TokenExpireDays: 7}

	// A session token signed with the share secret still carries no
	// contract id and must be rejected.
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(cfg.TokenSecret))

	if _, err := ParseShareToken(tokenString, cfg); err == nil {
		t.Error("Expected error for token without a contract id")
	}
}

func TestParseShareTokenGarbage(t *testing.T) {
	cfg := &config.ShareConfig{TokenSecret: "share-secret", TokenExpireDays: 7}
	if _, err := ParseShareToken("not.a.token", cfg); err == nil {
		t.Error("Expected error for malformed token")
	}
}
