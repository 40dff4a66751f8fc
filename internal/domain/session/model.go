package session

import "time"

// State is the outcome of evaluating a request's session cookies.
type State string

const (
	// StateValid means the access token is present and not near expiry.
	StateValid State = "valid"
	// StateNeedsRefresh means the access token is expired or inside the
	// expiry skew window and a refresh token is available.
	StateNeedsRefresh State = "needs_refresh"
	// StateRefreshSuccess means a refresh ran and produced new tokens.
	StateRefreshSuccess State = "refresh_success"
	// StateRefreshInvalid means the auth provider rejected the refresh
	// token outright. The session is gone; cookies must be cleared.
	StateRefreshInvalid State = "refresh_invalid"
	// StateRefreshTransient means the refresh failed for a retryable
	// reason. Existing cookies are left untouched.
	StateRefreshTransient State = "refresh_transient"
	// StateUnauthenticated means no usable tokens were presented.
	StateUnauthenticated State = "unauthenticated"
)

// Tokens is one issued token pair. AccessExpiresAt comes from the access
// token's exp claim; a zero value means the claim was absent or unreadable
// and the token is treated as already expired.
type Tokens struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Principal identifies the authenticated user behind a session.
type Principal struct {
	UserID string
	Email  string
}

// Resolution is the full outcome of session evaluation for one request.
type Resolution struct {
	State     State
	Principal Principal
	Tokens    Tokens
	// Rotated reports whether Tokens holds a fresh pair the transport
	// layer must write back as cookies.
	Rotated bool
}

// Authenticated reports whether the request may proceed as the principal.
func (r Resolution) Authenticated() bool {
	return r.State == StateValid || r.State == StateRefreshSuccess
}
