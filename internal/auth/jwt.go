// Package auth verifies the bearer tokens issued by the account service.
// This server never mints tokens; it only checks them and extracts the
// user identity.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chatcore/chatcore/internal/domain"
)

// Claims is the JWT payload carried by authenticated clients.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"uname"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the signature and expiry and returns the user id.
func (v *Verifier) Verify(tokenString string) (domain.UserID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return domain.UserID(uid), nil
}

// FromHeader strips the Bearer prefix from an Authorization header value.
func FromHeader(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return header
}
