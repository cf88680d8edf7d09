package jellyfin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock fires every wait immediately so polling loops run without real
// delays. An optional hook runs before each wait, keyed by wait count.
type stepClock struct {
	now    time.Time
	waits  int
	onWait func(n int) bool // return false to hand back a channel that never fires
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.waits++
	c.now = c.now.Add(d)
	if c.onWait != nil && !c.onWait(c.waits) {
		return make(chan time.Time)
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestAuthenticateByPassword(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	c := New(srv.URL, "", testIdentity())
	s := NewSession(c, &stepClock{now: time.Now()})
	require.Equal(t, StateUnauthenticated, s.State())

	require.NoError(t, s.AuthenticateByPassword(context.Background(), "alice", "secret"))
	assert.Equal(t, StateAuthenticated, s.State())

	userID, token, ok := s.Credentials()
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, "token-1", c.Token(), "token must be installed on the transport")
}

func TestAuthenticateByPasswordRejected(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	c := New(srv.URL, "", testIdentity())
	s := NewSession(c, &stepClock{now: time.Now()})

	err := s.AuthenticateByPassword(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, StateFailed, s.State())

	_, _, ok := s.Credentials()
	assert.False(t, ok)
}

func TestQuickConnectAuthorizedOnFifthPoll(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.AuthorizeAfter = 5

	c := New(srv.URL, "", testIdentity())
	s := NewSession(c, &stepClock{now: time.Now()})

	code, err := s.InitiateQuickConnect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Equal(t, StateQuickConnectInitiated, s.State())

	require.NoError(t, s.WaitForQuickConnect(context.Background()))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, 5, srv.Polls(), "must succeed on poll 5, not before or after")

	userID, token, ok := s.Credentials()
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "token-1", token)
}

func TestQuickConnectTimesOutAfter100Attempts(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	// AuthorizeAfter stays 0: the server never authorizes.

	c := New(srv.URL, "", testIdentity())
	s := NewSession(c, &stepClock{now: time.Now()})

	_, err := s.InitiateQuickConnect(context.Background())
	require.NoError(t, err)

	err = s.WaitForQuickConnect(context.Background())
	assert.ErrorIs(t, err, ErrPairingTimeout)
	assert.Equal(t, StateTimedOut, s.State())
	assert.Equal(t, 100, srv.Polls(), "exactly 100 attempts before timing out")
}

func TestQuickConnectCancelledAtThirdPoll(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &stepClock{now: time.Now()}
	clock.onWait = func(n int) bool {
		if n == 3 {
			cancel()
			return false
		}
		return true
	}

	c := New(srv.URL, "", testIdentity())
	s := NewSession(c, clock)

	_, err := s.InitiateQuickConnect(ctx)
	require.NoError(t, err)

	err = s.WaitForQuickConnect(ctx)
	assert.ErrorIs(t, err, ErrPairingCancelled)
	assert.Equal(t, StateUnauthenticated, s.State(), "cancellation must allow retry, not fail the session")
	assert.Equal(t, 3, srv.Polls(), "no polling after cancellation")
}

func TestQuickConnectPollErrorsDoNotAbort(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.AuthorizeAfter = 3
	srv.FailStatus["/QuickConnect/Connect"] = 500

	clock := &stepClock{now: time.Now()}
	clock.onWait = func(n int) bool {
		if n == 2 {
			srv.mu.Lock()
			delete(srv.FailStatus, "/QuickConnect/Connect")
			srv.mu.Unlock()
		}
		return true
	}

	c := New(srv.URL, "", testIdentity())
	s := NewSession(c, clock)

	_, err := s.InitiateQuickConnect(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.WaitForQuickConnect(context.Background()))
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestWaitWithoutInitiate(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	s := NewSession(New(srv.URL, "", testIdentity()), &stepClock{now: time.Now()})
	assert.ErrorIs(t, s.WaitForQuickConnect(context.Background()), ErrBadResponse)
}

func TestRevalidate(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	c := New(srv.URL, "token-1", testIdentity())
	s := NewSession(c, &stepClock{now: time.Now()})

	require.NoError(t, s.Revalidate(context.Background(), "user-1"))
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestRevalidateStaleToken(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	c := New(srv.URL, "stale-token", testIdentity())
	s := NewSession(c, &stepClock{now: time.Now()})

	err := s.Revalidate(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, StateUnauthenticated, s.State())
}

func TestRevalidateWithoutCredentials(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	s := NewSession(New(srv.URL, "", testIdentity()), &stepClock{now: time.Now()})
	assert.ErrorIs(t, s.Revalidate(context.Background(), "user-1"), ErrUnauthorized)
}
