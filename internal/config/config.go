// SPDX-License-Identifier: MIT

// Package config holds the explicit session configuration for a connector
// instance. The host owns persistence; this package only models, loads and
// validates the settings and writes them back on request.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// AuthMethod selects how the session authenticates against the server.
type AuthMethod string

const (
	AuthPassword     AuthMethod = "password"
	AuthQuickConnect AuthMethod = "quickconnect"
	AuthAPIKey       AuthMethod = "apikey"
)

var ErrInvalidAuthMethod = errors.New("config: invalid auth method")

// ParseAuthMethod converts a settings string into an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch AuthMethod(strings.ToLower(strings.TrimSpace(s))) {
	case AuthPassword:
		return AuthPassword, nil
	case AuthQuickConnect:
		return AuthQuickConnect, nil
	case AuthAPIKey:
		return AuthAPIKey, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAuthMethod, s)
}

// Settings is the session configuration handed to the connector at
// construction. Acquired credentials (UserID, AccessToken) are written back
// into a copy returned to the host after authentication; nothing here is
// read from or written to any global store.
type Settings struct {
	UseHTTPS      bool   `yaml:"use_https"`
	ServerAddress string `yaml:"server_address"`
	ServerPort    int    `yaml:"server_port"`

	AuthMethod AuthMethod `yaml:"auth_method"`
	Username   string     `yaml:"username,omitempty"`
	Password   string     `yaml:"password,omitempty"`

	// UserID and AccessToken are produced by authentication and persisted
	// so later sessions can revalidate instead of re-authenticating.
	UserID      string `yaml:"user_id,omitempty"`
	AccessToken string `yaml:"access_token,omitempty"`

	// APIKey is a user-entered static key, interchangeable with an access
	// token at the transport level.
	APIKey string `yaml:"api_key,omitempty"`

	// DeviceID identifies this installation in the client identity header.
	// Generated once when empty.
	DeviceID string `yaml:"device_id,omitempty"`
}

// ServerURL assembles the base URL from its parts. The default port for the
// chosen scheme is omitted.
func (s Settings) ServerURL() string {
	scheme := "http"
	defaultPort := 80
	if s.UseHTTPS {
		scheme = "https"
		defaultPort = 443
	}
	addr := strings.TrimSuffix(s.ServerAddress, "/")
	if s.ServerPort != 0 && s.ServerPort != defaultPort {
		return fmt.Sprintf("%s://%s:%d", scheme, addr, s.ServerPort)
	}
	return fmt.Sprintf("%s://%s", scheme, addr)
}

// Token returns the bearer token for the transport: the acquired access
// token when present, otherwise the static API key.
func (s Settings) Token() string {
	if s.AccessToken != "" {
		return s.AccessToken
	}
	return s.APIKey
}

// EnsureDeviceID generates a device identifier if none is set yet.
func (s *Settings) EnsureDeviceID() {
	if s.DeviceID == "" {
		s.DeviceID = "jfpvr-" + uuid.NewString()
	}
}

// Validate reports configuration the connector cannot start with.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.ServerAddress) == "" {
		return errors.New("config: server address is required")
	}
	if s.ServerPort < 0 || s.ServerPort > 65535 {
		return fmt.Errorf("config: invalid server port %d", s.ServerPort)
	}
	switch s.AuthMethod {
	case AuthPassword:
		if s.Username == "" && s.AccessToken == "" {
			return errors.New("config: password auth requires a username or a stored token")
		}
	case AuthQuickConnect:
		// Nothing to pre-validate; the pairing flow supplies credentials.
	case AuthAPIKey:
		if s.Token() == "" {
			return errors.New("config: api key auth requires an api key")
		}
	case "":
		return errors.New("config: auth method is required")
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAuthMethod, s.AuthMethod)
	}
	return nil
}

// Redacted returns a copy safe for logging.
func (s Settings) Redacted() Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return "****"
	}
	s.Password = mask(s.Password)
	s.AccessToken = mask(s.AccessToken)
	s.APIKey = mask(s.APIKey)
	return s
}

// FromEnv builds Settings from JFPVR_* environment variables. Unset
// variables leave zero values; Validate decides whether the result is
// usable.
func FromEnv() Settings {
	s := Settings{
		ServerAddress: os.Getenv("JFPVR_SERVER_ADDRESS"),
		Username:      os.Getenv("JFPVR_USERNAME"),
		Password:      os.Getenv("JFPVR_PASSWORD"),
		UserID:        os.Getenv("JFPVR_USER_ID"),
		AccessToken:   os.Getenv("JFPVR_ACCESS_TOKEN"),
		APIKey:        os.Getenv("JFPVR_API_KEY"),
		DeviceID:      os.Getenv("JFPVR_DEVICE_ID"),
	}
	if v := os.Getenv("JFPVR_USE_HTTPS"); v != "" {
		s.UseHTTPS, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("JFPVR_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			s.ServerPort = p
		}
	}
	if v := os.Getenv("JFPVR_AUTH_METHOD"); v != "" {
		if m, err := ParseAuthMethod(v); err == nil {
			s.AuthMethod = m
		}
	}
	if s.ServerPort == 0 {
		s.ServerPort = 8096
	}
	return s
}
