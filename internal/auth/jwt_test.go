package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerify(t *testing.T) {
	v := NewVerifier("s3cret")

	uid, err := v.Verify(mint(t, "s3cret", Claims{UserID: "u1", Username: "alice"}))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if uid != "u1" {
		t.Errorf("uid = %q, want u1", uid)
	}
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	v := NewVerifier("s3cret")

	token := mint(t, "s3cret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"},
	})
	uid, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if uid != "u2" {
		t.Errorf("uid = %q, want u2", uid)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("s3cret")

	cases := []struct {
		name  string
		token string
	}{
		{"wrong secret", mint(t, "other", Claims{UserID: "u1"})},
		{"no identity", mint(t, "s3cret", Claims{})},
		{"expired", mint(t, "s3cret", Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		})},
		{"garbage", "not-a-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(tc.token); err == nil {
				t.Error("expected verification failure")
			}
		})
	}
}

func TestFromHeader(t *testing.T) {
	if got := FromHeader("Bearer abc"); got != "abc" {
		t.Errorf("FromHeader = %q, want abc", got)
	}
	if got := FromHeader("abc"); got != "abc" {
		t.Errorf("bare token mangled: %q", got)
	}
}
