// SPDX-License-Identifier: MIT

// Package jellyfin implements the transport and authentication layer for a
// remote Jellyfin server: URL building, the MediaBrowser client-identity
// header, JSON request/response plumbing and the session state machine.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfpvr/jfpvr/internal/log"
)

// Identity is the fixed client/device identity sent with every request,
// token or not.
type Identity struct {
	Client   string
	Device   string
	DeviceID string
	Version  string
}

// DefaultIdentity fills in the connector's client identity around the
// given device id.
func DefaultIdentity(deviceID string) Identity {
	return Identity{
		Client:   "jfpvr",
		Device:   "jfpvr",
		DeviceID: deviceID,
		Version:  "1.0.0",
	}
}

// Client performs authenticated JSON requests against one server.
type Client struct {
	base     string
	identity Identity
	http     *http.Client
	log      zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a transport for the given base URL. A trailing slash is
// stripped once, here; token may be empty until authentication completes.
func New(baseURL, token string, identity Identity) *Client {
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		identity: identity,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log.WithComponent("transport"),
	}
}

// BaseURL returns the configured server base URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// SetToken installs or replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently held bearer token ("" when unauthenticated).
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// authHeader renders the MediaBrowser authorization header. The Token pair
// is omitted entirely (not sent empty) while unauthenticated, so pairing
// and login requests still carry the client identity.
func (c *Client) authHeader() string {
	h := fmt.Sprintf("MediaBrowser Client=%q, Device=%q, DeviceId=%q, Version=%q",
		c.identity.Client, c.identity.Device, c.identity.DeviceID, c.identity.Version)
	if tok := c.Token(); tok != "" {
		h += fmt.Sprintf(", Token=%q", tok)
	}
	return h
}

// previewToken renders a loggable form of the current token.
func (c *Client) previewToken() string {
	tok := c.Token()
	switch {
	case tok == "":
		return "none"
	case len(tok) > 8:
		return tok[:4] + "..." + tok[len(tok)-4:]
	default:
		return "****"
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.roundTrip(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response
// into out.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.roundTrip(ctx, http.MethodPost, path, query, body, out)
}

// Delete issues a DELETE request. The response body is ignored; success is
// the transport status alone.
func (c *Client) Delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.buildURL(path, nil), nil)
	if err != nil {
		return newError(ErrUnavailable, "DELETE "+path, 0, err)
	}
	req.Header.Set("X-Emby-Authorization", c.authHeader())

	res, err := c.http.Do(req)
	if err != nil {
		observeRequest(http.MethodDelete, outcomeTransport)
		c.log.Error().Err(err).Str(log.FieldEndpoint, path).Msg("HTTP DELETE failed")
		return newError(ErrUnavailable, "DELETE "+path, 0, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if err := c.statusError(http.MethodDelete, path, res.StatusCode); err != nil {
		return err
	}
	observeRequest(http.MethodDelete, outcomeSuccess)
	return nil
}

// roundTrip is the single JSON path shared by GET and POST. Empty bodies
// and decode failures are normal failures (ErrBadResponse), never partial
// data.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return newError(ErrBadResponse, op, 0, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reqBody)
	if err != nil {
		return newError(ErrUnavailable, op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Emby-Authorization", c.authHeader())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().
		Str(log.FieldEndpoint, path).
		Str("method", method).
		Str("token", c.previewToken()).
		Msg("request")

	res, err := c.http.Do(req)
	if err != nil {
		observeRequest(method, outcomeTransport)
		c.log.Error().Err(err).Str(log.FieldEndpoint, path).Msg("request failed")
		return newError(ErrUnavailable, op, 0, err)
	}
	defer res.Body.Close()

	if err := c.statusError(method, path, res.StatusCode); err != nil {
		return err
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		observeRequest(method, outcomeTransport)
		return newError(ErrUnavailable, op, res.StatusCode, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		observeRequest(method, outcomeBadResponse)
		c.log.Error().Str(log.FieldEndpoint, path).Msg("empty response from server")
		return newError(ErrBadResponse, op, res.StatusCode, nil)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			observeRequest(method, outcomeBadResponse)
			c.log.Error().Err(err).Str(log.FieldEndpoint, path).Msg("failed to parse JSON response")
			return newError(ErrBadResponse, op, res.StatusCode, err)
		}
	}
	observeRequest(method, outcomeSuccess)
	return nil
}

// statusError maps an HTTP status onto the error taxonomy.
func (c *Client) statusError(method, path string, status int) error {
	op := method + " " + path
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		observeRequest(method, outcomeUnauthorized)
		c.log.Warn().Int("status", status).Str(log.FieldEndpoint, path).Msg("credentials rejected")
		return newError(ErrUnauthorized, op, status, nil)
	case status == http.StatusNotFound:
		observeRequest(method, outcomeNotFound)
		return newError(ErrNotFound, op, status, nil)
	default:
		observeRequest(method, outcomeServerError)
		c.log.Error().Int("status", status).Str(log.FieldEndpoint, path).Msg("server error")
		return newError(ErrServer, op, status, nil)
	}
}

// ServerInfo fetches the server's version and name.
func (c *Client) ServerInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	if err := c.Get(ctx, "/System/Info", nil, &info); err != nil {
		return SystemInfo{}, err
	}
	return info, nil
}
