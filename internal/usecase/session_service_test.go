package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fplhq/minileague/internal/domain/session"
	"github.com/fplhq/minileague/internal/observability"
	"github.com/fplhq/minileague/internal/platform/logging"
)

type stubAuthProvider struct {
	mu     sync.Mutex
	calls  atomic.Int64
	tokens session.Tokens
	errs   []error
	delay  time.Duration
}

func (p *stubAuthProvider) Refresh(_ context.Context, _ string) (session.Tokens, error) {
	n := p.calls.Add(1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(n) <= len(p.errs) && p.errs[n-1] != nil {
		return session.Tokens{}, p.errs[n-1]
	}
	return p.tokens, nil
}

func sessionToken(t *testing.T, sub string, expiresAt time.Time) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":%q,"exp":%d}`, sub, expiresAt.Unix())))
	return header + "." + payload + ".sig"
}

func newSessionFixture(provider AuthProvider) *SessionService {
	service := NewSessionService(provider, SessionConfig{}, logging.NewNop(), observability.NewInMemoryMetrics())
	service.sleep = func(time.Duration) {}
	return service
}

func TestSessionService_ValidToken(t *testing.T) {
	t.Parallel()

	provider := &stubAuthProvider{}
	service := newSessionFixture(provider)

	access := sessionToken(t, "user-1", time.Now().Add(time.Hour))
	resolution := service.Resolve(context.Background(), access, "refresh-1")

	require.Equal(t, session.StateValid, resolution.State)
	require.Equal(t, "user-1", resolution.Principal.UserID)
	require.False(t, resolution.Rotated)
	require.EqualValues(t, 0, provider.calls.Load())
}

func TestSessionService_NearExpiryTriggersRefresh(t *testing.T) {
	t.Parallel()

	fresh := sessionToken(t, "user-1", time.Now().Add(time.Hour))
	provider := &stubAuthProvider{tokens: session.Tokens{AccessToken: fresh, RefreshToken: "refresh-2"}}
	service := newSessionFixture(provider)

	// Inside the 60s skew window.
	access := sessionToken(t, "user-1", time.Now().Add(10*time.Second))
	resolution := service.Resolve(context.Background(), access, "refresh-1")

	require.Equal(t, session.StateRefreshSuccess, resolution.State)
	require.True(t, resolution.Rotated)
	require.Equal(t, "refresh-2", resolution.Tokens.RefreshToken)
	require.EqualValues(t, 1, provider.calls.Load())
}

func TestSessionService_MalformedTokenTreatedAsExpired(t *testing.T) {
	t.Parallel()

	fresh := sessionToken(t, "user-1", time.Now().Add(time.Hour))
	provider := &stubAuthProvider{tokens: session.Tokens{AccessToken: fresh, RefreshToken: "refresh-2"}}
	service := newSessionFixture(provider)

	resolution := service.Resolve(context.Background(), "garbage", "refresh-1")
	require.Equal(t, session.StateRefreshSuccess, resolution.State)
	require.EqualValues(t, 1, provider.calls.Load())
}

func TestSessionService_NoTokens(t *testing.T) {
	t.Parallel()

	service := newSessionFixture(&stubAuthProvider{})

	resolution := service.Resolve(context.Background(), "", "")
	require.Equal(t, session.StateUnauthenticated, resolution.State)

	// Expired access without a refresh token is also unauthenticated.
	expired := sessionToken(t, "user-1", time.Now().Add(-time.Hour))
	resolution = service.Resolve(context.Background(), expired, "")
	require.Equal(t, session.StateUnauthenticated, resolution.State)
}

func TestSessionService_InvalidRefreshDoesNotRetry(t *testing.T) {
	t.Parallel()

	provider := &stubAuthProvider{errs: []error{ErrUnauthorized, ErrUnauthorized}}
	service := newSessionFixture(provider)

	resolution := service.Resolve(context.Background(), "", "revoked")
	require.Equal(t, session.StateRefreshInvalid, resolution.State)
	require.EqualValues(t, 1, provider.calls.Load())
}

func TestSessionService_TransientRefreshRetriesOnce(t *testing.T) {
	t.Parallel()

	fresh := sessionToken(t, "user-1", time.Now().Add(time.Hour))
	provider := &stubAuthProvider{
		tokens: session.Tokens{AccessToken: fresh, RefreshToken: "refresh-2"},
		errs:   []error{ErrDependencyUnavailable},
	}
	service := newSessionFixture(provider)

	resolution := service.Resolve(context.Background(), "", "refresh-1")
	require.Equal(t, session.StateRefreshSuccess, resolution.State)
	require.EqualValues(t, 2, provider.calls.Load())
}

func TestSessionService_TransientTwiceGivesTransientState(t *testing.T) {
	t.Parallel()

	provider := &stubAuthProvider{errs: []error{ErrDependencyUnavailable, ErrDependencyUnavailable}}
	service := newSessionFixture(provider)

	resolution := service.Resolve(context.Background(), "", "refresh-1")
	require.Equal(t, session.StateRefreshTransient, resolution.State)
	require.EqualValues(t, 2, provider.calls.Load())
}

func TestSessionService_SingleFlightRefresh(t *testing.T) {
	t.Parallel()

	fresh := sessionToken(t, "user-1", time.Now().Add(time.Hour))
	provider := &stubAuthProvider{
		tokens: session.Tokens{AccessToken: fresh, RefreshToken: "refresh-2"},
		delay:  100 * time.Millisecond,
	}
	service := newSessionFixture(provider)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]session.Resolution, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = service.Resolve(context.Background(), "", "refresh-1")
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, provider.calls.Load(), "concurrent callers with one refresh token must share one provider call")
	for _, resolution := range results {
		require.Equal(t, session.StateRefreshSuccess, resolution.State)
		require.Equal(t, "refresh-2", resolution.Tokens.RefreshToken)
	}
}
