package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if _, err := StaticToken("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty token error = %v, want ErrNoToken", err)
	}
}

func TestFileTokenRereads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ft := FileToken{Path: path}

	tok, err := ft.Token(context.Background())
	if err != nil || tok != "first" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}

	if err := os.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatal(err)
	}
	if tok, _ := ft.Token(context.Background()); tok != "second" {
		t.Errorf("Token() after refresh = %q, want second", tok)
	}

	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ft.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("blank file error = %v, want ErrNoToken", err)
	}

	if _, err := (FileToken{Path: filepath.Join(t.TempDir(), "absent")}).Token(context.Background()); err == nil {
		t.Error("missing file should error")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "fan-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	got, ok := TokenExpiry(signed)
	if !ok || !got.Equal(exp) {
		t.Errorf("TokenExpiry = %v, %v; want %v", got, ok, exp)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "fan"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := TokenExpiry(noExp); ok {
		t.Error("token without exp should report ok=false")
	}
	if _, ok := TokenExpiry("opaque-token"); ok {
		t.Error("opaque token should report ok=false")
	}
}
