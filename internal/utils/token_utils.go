package utils

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT body: the application payload plus registered claims.
type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateJWT signs the claims with HS256.
func GenerateJWT(claims TokenClaims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAndValidateJWT parses a JWT token string, validates its signature and standard claims.
// Only HS256 is accepted. Extra parser options (clock, issuer) are appended.
func ParseAndValidateJWT(tokenString string, secretKey string, opts ...jwt.ParserOption) (*TokenClaims, error) {
	claims := &TokenClaims{}

	parserOpts := append([]jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}, opts...)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	}, parserOpts...)

	if err != nil {
		return nil, err // This will include errors like token expired, signature invalid, etc.
	}

	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return claims, nil
}
