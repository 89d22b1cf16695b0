package jwt

import (
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func TestTokenRoundTrip(t *testing.T) {
	payload := &Payload{ID: "u1", Username: "alice", Email: "a@b.co"}

	token, err := GenerateToken(payload, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsed, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.ID != "u1" || parsed.Username != "alice" || parsed.Email != "a@b.co" {
		t.Errorf("claims mismatch: %+v", parsed)
	}
	if parsed.Issuer != TokenIssuer {
		t.Errorf("issuer %q, want %q", parsed.Issuer, TokenIssuer)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Error("expected signature validation to fail")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1"}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Error("expected an expired token to be rejected")
	}
}

func TestBearerFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	if got := BearerFromRequest(r); got != "abc123" {
		t.Errorf("header token: got %q", got)
	}

	r = httptest.NewRequest("GET", "/ws?token=query456", nil)
	if got := BearerFromRequest(r); got != "query456" {
		t.Errorf("query token: got %q", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic abc123")
	if got := BearerFromRequest(r); got != "" {
		t.Errorf("non-bearer scheme: got %q, want empty", got)
	}
}
