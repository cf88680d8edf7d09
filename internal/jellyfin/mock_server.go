// SPDX-License-Identifier: MIT

package jellyfin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer is a configurable in-process stand-in for a Jellyfin server,
// shared by the test suites of every package that talks through the
// transport. Raw item maps keep fixtures close to real wire payloads.
type MockServer struct {
	*httptest.Server
	mu sync.Mutex

	Info SystemInfo

	// Credentials the fake server accepts.
	Username string
	Password string
	UserID   string
	Token    string

	// Quick connect behaviour: the status endpoint reports authorized on
	// poll number AuthorizeAfter (0 = never).
	QuickConnectCode   string
	QuickConnectSecret string
	AuthorizeAfter     int
	pollCount          int

	Channels      []map[string]any
	GroupChannels map[string][]map[string]any
	Groups        []map[string]any
	Programs      []map[string]any
	Recordings    []map[string]any
	Timers        []map[string]any
	PlaybackInfo  map[string]any

	// FailStatus forces a status code per path; EmptyBody forces a 200
	// with no payload per path.
	FailStatus map[string]int
	EmptyBody  map[string]bool

	deleted       []string
	createdTimers []CreateTimerRequest
	hits          map[string]int
}

// NewMockServer starts the fake server with a minimal working fixture.
func NewMockServer() *MockServer {
	m := &MockServer{
		Info:               SystemInfo{Version: "10.10.3", ServerName: "mock", ID: "srv-1"},
		Username:           "alice",
		Password:           "secret",
		UserID:             "user-1",
		Token:              "token-1",
		QuickConnectCode:   "123456",
		QuickConnectSecret: "qc-secret",
		GroupChannels:      make(map[string][]map[string]any),
		FailStatus:         make(map[string]int),
		EmptyBody:          make(map[string]bool),
		hits:               make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Hits returns how often the given path was requested.
func (m *MockServer) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// Deleted returns the paths of all DELETE requests received.
func (m *MockServer) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// CreatedTimers returns the bodies of all timer creations received.
func (m *MockServer) CreatedTimers() []CreateTimerRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreateTimerRequest(nil), m.createdTimers...)
}

// Polls returns the number of quick connect status requests received.
func (m *MockServer) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCount
}

func (m *MockServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func items(list []map[string]any) map[string]any {
	if list == nil {
		list = []map[string]any{}
	}
	return map[string]any{"Items": list, "TotalRecordCount": len(list)}
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.hits[r.URL.Path]++
	if status, ok := m.FailStatus[r.URL.Path]; ok {
		m.mu.Unlock()
		w.WriteHeader(status)
		return
	}
	if m.EmptyBody[r.URL.Path] {
		m.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		return
	}
	m.mu.Unlock()

	switch {
	case r.URL.Path == "/System/Info":
		m.writeJSON(w, m.Info)

	case r.URL.Path == "/Users/AuthenticateByName" && r.Method == http.MethodPost:
		var body struct {
			Username string `json:"Username"`
			Pw       string `json:"Pw"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Username != m.Username || body.Pw != m.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		m.writeJSON(w, AuthResponse{
			AccessToken: m.Token,
			User:        AuthUser{ID: m.UserID, Name: m.Username},
		})

	case r.URL.Path == "/QuickConnect/Initiate":
		m.writeJSON(w, QuickConnectInitiate{Code: m.QuickConnectCode, Secret: m.QuickConnectSecret})

	case r.URL.Path == "/QuickConnect/Connect":
		if r.URL.Query().Get("secret") != m.QuickConnectSecret {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		m.mu.Lock()
		m.pollCount++
		authorized := m.AuthorizeAfter > 0 && m.pollCount >= m.AuthorizeAfter
		m.mu.Unlock()
		var state QuickConnectState
		state.Authenticated = authorized
		if authorized {
			state.Authentication.AccessToken = m.Token
			state.Authentication.UserID = m.UserID
		}
		m.writeJSON(w, state)

	case strings.HasPrefix(r.URL.Path, "/Users/"):
		id := strings.TrimPrefix(r.URL.Path, "/Users/")
		if id != m.UserID || !m.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		m.writeJSON(w, UserInfo{ID: m.UserID, Name: m.Username})

	case r.URL.Path == "/LiveTv/Channels":
		if groupID := r.URL.Query().Get("groupId"); groupID != "" {
			m.writeJSON(w, items(m.GroupChannels[groupID]))
			return
		}
		m.writeJSON(w, items(m.Channels))

	case r.URL.Path == "/LiveTv/ChannelGroups":
		m.writeJSON(w, items(m.Groups))

	case r.URL.Path == "/LiveTv/Programs":
		m.writeJSON(w, items(m.Programs))

	case r.URL.Path == "/LiveTv/Recordings":
		m.writeJSON(w, items(m.Recordings))

	case strings.HasPrefix(r.URL.Path, "/LiveTv/Recordings/") && r.Method == http.MethodDelete:
		m.mu.Lock()
		m.deleted = append(m.deleted, r.URL.Path)
		m.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Path == "/LiveTv/Timers" && r.Method == http.MethodPost:
		var req CreateTimerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		m.mu.Lock()
		m.createdTimers = append(m.createdTimers, req)
		m.mu.Unlock()
		m.writeJSON(w, map[string]any{"Status": "New"})

	case r.URL.Path == "/LiveTv/Timers":
		m.writeJSON(w, items(m.Timers))

	case strings.HasPrefix(r.URL.Path, "/LiveTv/Timers/") && r.Method == http.MethodDelete:
		m.mu.Lock()
		m.deleted = append(m.deleted, r.URL.Path)
		m.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(r.URL.Path, "/Items/") && strings.HasSuffix(r.URL.Path, "/PlaybackInfo"):
		if m.PlaybackInfo == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		m.writeJSON(w, m.PlaybackInfo)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// authorized checks the MediaBrowser header carries the expected token.
func (m *MockServer) authorized(r *http.Request) bool {
	h := r.Header.Get("X-Emby-Authorization")
	return strings.Contains(h, `Token="`+m.Token+`"`)
}
