package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srvURL string) *Client {
	return NewClient(srvURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIsIdentityLinked(t *testing.T) {
	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		switch r.URL.Path {
		case "/v1/identities/alice":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	linked, err := c.IsIdentityLinked(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, "/v1/identities/alice", requestedPath)

	linked, err = c.IsIdentityLinked(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, linked, "404 means not linked, not an error")
}

func TestIsIdentityLinked_EscapesLogin(t *testing.T) {
	var rawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.IsIdentityLinked(context.Background(), "weird/login")
	require.NoError(t, err)
	assert.Equal(t, "/v1/identities/weird%2Flogin", rawPath)
}

func TestIsIdentityLinked_ServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.http.RetryMax = 1

	_, err := c.IsIdentityLinked(context.Background(), "alice")
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "transient errors are retried")
}

func TestIsIdentityLinked_Unconfigured(t *testing.T) {
	c := testClient("")
	_, err := c.IsIdentityLinked(context.Background(), "alice")
	assert.Error(t, err)
}
