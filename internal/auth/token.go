package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/expenseflow/expenseflow/internal/shared"
)

const tokenIssuer = "expenseflow-api"

// TokenTTL is how long an issued bearer token stays valid.
const TokenTTL = 24 * time.Hour

// Claims carried inside the signed bearer token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for the credential.
func IssueToken(cred *Credential, secret string, now time.Time) (string, error) {
	claims := &Claims{
		UserID: cred.ID,
		Email:  cred.Email,
		Role:   cred.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", cred.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken parses a bearer token and yields the caller identity.
// A malformed, mis-signed or expired token yields shared.ErrTokenInvalid.
func VerifyToken(tokenString, secret string) (*shared.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, shared.ErrTokenInvalid
	}
	return &shared.Identity{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
