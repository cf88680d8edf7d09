// SPDX-License-Identifier: MIT

package jellyfin

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfpvr/jfpvr/internal/log"
)

// State is the observable authentication state of a Session.
type State string

const (
	StateUnauthenticated       State = "unauthenticated"
	StateValidating            State = "validating"
	StatePasswordPending       State = "password_pending"
	StateQuickConnectInitiated State = "quickconnect_initiated"
	StateQuickConnectPolling   State = "quickconnect_polling"
	StateAuthenticated         State = "authenticated"
	StateFailed                State = "failed"
	StateTimedOut              State = "timed_out"
)

const (
	quickConnectInterval    = 3 * time.Second
	quickConnectMaxAttempts = 100
)

// Session owns credential state and drives the three authentication paths.
// Reaching StateAuthenticated is the event that unlocks construction of the
// directory components; they receive the token implicitly through the
// shared Client.
type Session struct {
	client *Client
	clock  Clock
	log    zerolog.Logger

	mu          sync.Mutex
	state       State
	userID      string
	accessToken string
	qcSecret    string
}

// NewSession creates a session in StateUnauthenticated.
func NewSession(client *Client, clock Clock) *Session {
	if clock == nil {
		clock = RealClock{}
	}
	return &Session{
		client: client,
		clock:  clock,
		log:    log.WithComponent("auth"),
		state:  StateUnauthenticated,
	}
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Credentials returns the validated (userID, accessToken) pair. ok is false
// unless the session is authenticated.
func (s *Session) Credentials() (userID, accessToken string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return "", "", false
	}
	return s.userID, s.accessToken, true
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.log.Debug().
			Str(log.FieldOldState, string(prev)).
			Str(log.FieldNewState, string(next)).
			Msg("auth state transition")
	}
}

func (s *Session) succeed(userID, accessToken string) {
	s.mu.Lock()
	s.userID = userID
	s.accessToken = accessToken
	s.state = StateAuthenticated
	s.mu.Unlock()
	s.client.SetToken(accessToken)
	s.log.Info().Str(log.FieldUserID, userID).Msg("authenticated")
}

// AuthenticateByPassword performs the single-request password login.
func (s *Session) AuthenticateByPassword(ctx context.Context, username, password string) error {
	s.setState(StatePasswordPending)
	s.log.Info().Str("username", username).Msg("attempting password authentication")

	body := map[string]string{"Username": username, "Pw": password}
	var res AuthResponse
	if err := s.client.Post(ctx, "/Users/AuthenticateByName", nil, body, &res); err != nil {
		s.setState(StateFailed)
		return err
	}
	if res.AccessToken == "" || res.User.ID == "" {
		s.setState(StateFailed)
		return newError(ErrBadResponse, "authenticate by name", 0, nil)
	}

	s.succeed(res.User.ID, res.AccessToken)
	return nil
}

// InitiateQuickConnect starts the pairing flow and returns the short code
// the user must confirm elsewhere. The opaque secret is retained for
// polling.
func (s *Session) InitiateQuickConnect(ctx context.Context) (string, error) {
	var res QuickConnectInitiate
	if err := s.client.Get(ctx, "/QuickConnect/Initiate", nil, &res); err != nil {
		s.setState(StateFailed)
		return "", err
	}
	if res.Code == "" || res.Secret == "" {
		s.setState(StateFailed)
		return "", newError(ErrBadResponse, "quick connect initiate", 0, nil)
	}

	s.mu.Lock()
	s.qcSecret = res.Secret
	s.state = StateQuickConnectInitiated
	s.mu.Unlock()

	s.log.Info().Str("code", res.Code).Msg("quick connect initiated")
	return res.Code, nil
}

// WaitForQuickConnect polls the pairing status every 3 seconds for up to
// 100 attempts. Cancelling ctx stops polling immediately and leaves the
// session unauthenticated so the user may retry; exhausting the attempt
// ceiling is the distinct TimedOut outcome. A transport failure during one
// poll is not fatal, it counts as an unauthorized attempt.
func (s *Session) WaitForQuickConnect(ctx context.Context) error {
	s.mu.Lock()
	secret := s.qcSecret
	s.mu.Unlock()
	if secret == "" {
		return newError(ErrBadResponse, "quick connect poll", 0, nil)
	}
	s.setState(StateQuickConnectPolling)

	query := url.Values{"secret": {secret}}
	for attempt := 1; attempt <= quickConnectMaxAttempts; attempt++ {
		var state QuickConnectState
		err := s.client.Get(ctx, "/QuickConnect/Connect", query, &state)
		switch {
		case err == nil && state.Authenticated &&
			state.Authentication.AccessToken != "" && state.Authentication.UserID != "":
			s.succeed(state.Authentication.UserID, state.Authentication.AccessToken)
			return nil
		case err == nil && state.Authenticated:
			// Authorized but the nested credentials are missing; treat
			// like a miss and poll again, the server may still be
			// completing the exchange.
			s.log.Warn().Int(log.FieldAttempt, attempt).Msg("quick connect authorized but credentials missing")
		case err != nil:
			if ctx.Err() != nil {
				s.setState(StateUnauthenticated)
				return newError(ErrPairingCancelled, "quick connect poll", 0, ctx.Err())
			}
			s.log.Debug().Err(err).Int(log.FieldAttempt, attempt).Msg("quick connect poll failed")
		}

		if attempt == quickConnectMaxAttempts {
			break
		}

		// Cancellation is honoured before each wait and during it.
		if ctx.Err() != nil {
			s.setState(StateUnauthenticated)
			return newError(ErrPairingCancelled, "quick connect poll", 0, ctx.Err())
		}
		select {
		case <-s.clock.After(quickConnectInterval):
		case <-ctx.Done():
			s.setState(StateUnauthenticated)
			return newError(ErrPairingCancelled, "quick connect poll", 0, ctx.Err())
		}
	}

	s.setState(StateTimedOut)
	return newError(ErrPairingTimeout, "quick connect poll", 0, nil)
}

// Revalidate confirms a previously stored (userID, token) pair is still
// accepted by the server, skipping interactive authentication. The token
// must already be installed on the Client.
func (s *Session) Revalidate(ctx context.Context, userID string) error {
	if userID == "" || s.client.Token() == "" {
		return newError(ErrUnauthorized, "revalidate", 0, nil)
	}
	s.setState(StateValidating)

	var user UserInfo
	if err := s.client.Get(ctx, "/Users/"+url.PathEscape(userID), nil, &user); err != nil {
		s.setState(StateUnauthenticated)
		return err
	}
	if user.ID != userID {
		s.setState(StateUnauthenticated)
		return newError(ErrUnauthorized, "revalidate", 0, nil)
	}

	s.succeed(userID, s.client.Token())
	return nil
}
