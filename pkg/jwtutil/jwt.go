package jwtutil

import (
	"time"

	"asset-service/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	signingKey      []byte
	expirationHours int
)

// UserClaims represents the JWT claims for user authentication
type UserClaims struct {
	UserID      uint   `json:"user_id"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
	jwt.RegisteredClaims
}

// Initialize configures the JWT utility from application config
func Initialize(cfg *config.JWTConfig) {
	signingKey = []byte(cfg.SigningKey)
	expirationHours = cfg.ExpirationHours
}

// GenerateToken creates a signed token for the given user identity
func GenerateToken(userID uint, email, role string, isSuperuser bool) (string, error) {
	claims := &UserClaims{
		UserID:      userID,
		Email:       email,
		Role:        role,
		IsSuperuser: isSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
