package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

func TestWriteEnv_KeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPOTIFY_CLIENT_ID=abc\nSPOTIFY_REFRESH_TOKEN=old\n"), 0o600))

	require.NoError(t, writeEnv(path, "new-token"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", env["SPOTIFY_CLIENT_ID"])
	assert.Equal(t, "new-token", env["SPOTIFY_REFRESH_TOKEN"])
}

func TestWriteEnv_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, writeEnv(path, "token"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SPOTIFY_REFRESH_TOKEN": "token"}, env)
}

func TestCallbackHandler_StateMismatch(t *testing.T) {
	tokenCh := make(chan *oauth2.Token, 1)
	handler := callbackHandler(spotifyauth.New(), tokenCh)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=x", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, tokenCh)
}
