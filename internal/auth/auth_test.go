package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw123456" {
		t.Fatal("hash must not equal the raw password")
	}
	if !CheckPasswordHash("pw123456", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, 42, "a@x.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 || ttl > TokenTTL {
		t.Fatalf("expiry out of range: %v", ttl)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	secret := []byte("test-secret")

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := GenerateToken([]byte("other-secret"), 1, "a@x.com")
		if _, err := ValidateToken(secret, token); err == nil {
			t.Fatal("token signed with another secret accepted")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ValidateToken(secret, "not.a.token"); err == nil {
			t.Fatal("malformed token accepted")
		}
	})

	t.Run("expired", func(t *testing.T) {
		claims := Claims{
			UserID: 1,
			Email:  "a@x.com",
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := ValidateToken(secret, token); err == nil {
			t.Fatal("expired token accepted")
		}
	})
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"Bearer   spaced  ", "spaced"},
		{"bearer abc", ""},
		{"Basic abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := BearerToken(tc.in); got != tc.out {
			t.Fatalf("BearerToken(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
