package jellyfin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() Identity {
	return DefaultIdentity("jfpvr-test-device")
}

func TestNewStripsTrailingSlash(t *testing.T) {
	c := New("http://jf.local:8096/", "", testIdentity())
	assert.Equal(t, "http://jf.local:8096", c.BaseURL())
}

func TestAuthHeaderOmitsTokenWhenEmpty(t *testing.T) {
	c := New("http://jf.local", "", testIdentity())
	h := c.authHeader()
	assert.True(t, strings.HasPrefix(h, "MediaBrowser Client="))
	assert.Contains(t, h, `DeviceId="jfpvr-test-device"`)
	assert.NotContains(t, h, "Token=")

	c.SetToken("abc")
	assert.Contains(t, c.authHeader(), `Token="abc"`)
}

func TestPreviewToken(t *testing.T) {
	c := New("http://jf.local", "", testIdentity())
	assert.Equal(t, "none", c.previewToken())

	c.SetToken("short")
	assert.Equal(t, "****", c.previewToken())

	c.SetToken("abcdefghijkl")
	assert.Equal(t, "abcd...ijkl", c.previewToken())
}

func TestGetSendsIdentityHeader(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Emby-Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"Version": "1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", testIdentity())
	var out SystemInfo
	require.NoError(t, c.Get(context.Background(), "/System/Info", nil, &out))
	assert.Contains(t, gotHeader, `Client="jfpvr"`)
	assert.NotContains(t, gotHeader, "Token=")
}

func TestGetEmptyBodyIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", testIdentity())
	var out SystemInfo
	err := c.Get(context.Background(), "/System/Info", nil, &out)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestGetDecodeFailureIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", testIdentity())
	var out SystemInfo
	err := c.Get(context.Background(), "/System/Info", nil, &out)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusBadGateway, ErrServer},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := New(srv.URL, "tok", testIdentity())
		err := c.Get(context.Background(), "/x", nil, nil)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		var rich *Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, tt.status, rich.Status)
		srv.Close()
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	c := New("http://127.0.0.1:1", "", testIdentity())
	err := c.Get(context.Background(), "/System/Info", nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDeleteIgnoresBodyAndReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
		_, _ = w.Write([]byte("garbage that must be ignored"))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", testIdentity())
	assert.NoError(t, c.Delete(context.Background(), "/LiveTv/Recordings/r1"))
}

func TestDeleteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", testIdentity())
	assert.ErrorIs(t, c.Delete(context.Background(), "/LiveTv/Recordings/r1"), ErrServer)
}

func TestPostSendsJSONBody(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", testIdentity())
	var out map[string]string
	require.NoError(t, c.Post(context.Background(), "/Users/AuthenticateByName", nil,
		map[string]string{"Username": "alice", "Pw": "pw"}, &out))
	assert.Equal(t, "alice", got["Username"])
	assert.Equal(t, "pw", got["Pw"])
}

func TestNumberDecoding(t *testing.T) {
	var payload struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":5,"b":"502","c":"1.1","d":null,"e":1.5}`), &payload))

	v, ok := payload.A.Value()
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	v, ok = payload.B.Value()
	assert.True(t, ok)
	assert.Equal(t, 502, v)

	_, ok = payload.C.Value()
	assert.False(t, ok, `"1.1" is not a usable integer`)

	_, ok = payload.D.Value()
	assert.False(t, ok)

	_, ok = payload.E.Value()
	assert.False(t, ok, "non-integral numbers are treated as absent")
}
