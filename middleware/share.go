package middleware

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quillsign/quillsign/backend/config"
)

// ShareClaims carry the contract a share link grants access to. Share links
// are unauthenticated entry points: the token itself is the only credential
// a counterparty holds.
type ShareClaims struct {
	ContractID string `json:"contract_id"`
	jwt.RegisteredClaims
}

// GenerateShareToken issues a share-link token for a contract.
func GenerateShareToken(contractID string, cfg *config.ShareConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TokenExpireDays) * 24 * time.Hour)

	claims := ShareClaims{
		ContractID: contractID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseShareToken validates a share-link token and returns the contract id
// it was issued for.
func ParseShareToken(tokenString string, cfg *config.ShareConfig) (string, error) {
	claims := &ShareClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid or expired share token")
	}
	if claims.ContractID == "" {
		return "", fmt.Errorf("share token carries no contract")
	}
	return claims.ContractID, nil
}
