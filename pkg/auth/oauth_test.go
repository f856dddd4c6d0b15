package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClientSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(context.Background(), "secret_abc", 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer secret_abc", got)
}

func TestNewHTTPClientRequiresToken(t *testing.T) {
	_, err := NewHTTPClient(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestGetXdgHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := GetXdgHome()
	require.NoError(t, err)
	assert.Equal(t, home+"/.config/tasksync", dir)
}
