package session

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func unsignedToken(t *testing.T, claims string) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(claims))
	return header + "." + payload + ".sig"
}

func TestAccessExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(30 * time.Minute).Unix()
	token := unsignedToken(t, fmt.Sprintf(`{"sub":"user-1","exp":%d}`, exp))
	if got := AccessExpiry(token); got.Unix() != exp {
		t.Fatalf("unexpected expiry %v", got)
	}
}

func TestAccessExpiry_MalformedTokenIsZero(t *testing.T) {
	t.Parallel()

	if got := AccessExpiry("not-a-jwt"); !got.IsZero() {
		t.Fatalf("expected zero expiry, got %v", got)
	}
	if got := AccessExpiry(""); !got.IsZero() {
		t.Fatalf("expected zero expiry for empty token, got %v", got)
	}

	noExp := unsignedToken(t, `{"sub":"user-1"}`)
	if got := AccessExpiry(noExp); !got.IsZero() {
		t.Fatalf("expected zero expiry without exp claim, got %v", got)
	}
}

func TestIdentity_ReadsSubjectAndEmail(t *testing.T) {
	t.Parallel()

	token := unsignedToken(t, `{"sub":"user-9","email":"lee@example.com","exp":9999999999}`)
	principal := Identity(token)
	if principal.UserID != "user-9" || principal.Email != "lee@example.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if got := Identity("garbage"); got != (Principal{}) {
		t.Fatalf("expected empty principal, got %+v", got)
	}
}

func TestResolutionAuthenticated(t *testing.T) {
	t.Parallel()

	for _, state := range []State{StateValid, StateRefreshSuccess} {
		if !(Resolution{State: state}).Authenticated() {
			t.Fatalf("state %s should authenticate", state)
		}
	}
	for _, state := range []State{StateNeedsRefresh, StateRefreshInvalid, StateRefreshTransient, StateUnauthenticated} {
		if (Resolution{State: state}).Authenticated() {
			t.Fatalf("state %s should not authenticate", state)
		}
	}
}
