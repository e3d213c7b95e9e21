package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asocialdev/asocial/internal/config"
	"github.com/asocialdev/asocial/internal/platform"
)

func newTestRegistry() *Registry {
	return New(config.PlatformConfig{HTTPTimeout: time.Second})
}

func TestNames(t *testing.T) {
	reg := newTestRegistry()
	assert.Equal(t, []string{"bluesky", "mastodon"}, reg.Names())
}

func TestSupported(t *testing.T) {
	reg := newTestRegistry()
	assert.True(t, reg.Supported("mastodon"))
	assert.True(t, reg.Supported("bluesky"))
	assert.False(t, reg.Supported("carrier-pigeon"))
}

func TestClient_UnknownPlatform(t *testing.T) {
	reg := newTestRegistry()

	client, err := reg.Client("carrier-pigeon", json.RawMessage(`{}`), "")
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.Is(err, platform.ErrUnknownPlatform))
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestClient_BuildsMastodon(t *testing.T) {
	reg := newTestRegistry()

	client, err := reg.Client("mastodon",
		json.RawMessage(`{"access_token":"tok"}`), "https://mastodon.example")
	require.NoError(t, err)
	assert.Equal(t, "mastodon", client.Name())

	_, ok := client.(platform.Authenticator)
	assert.False(t, ok, "mastodon is stateless and needs no session")
}

func TestClient_BuildsBluesky(t *testing.T) {
	reg := newTestRegistry()

	client, err := reg.Client("bluesky",
		json.RawMessage(`{"identifier":"alice.bsky.social","app_password":"abcd-efgh"}`), "")
	require.NoError(t, err)
	assert.Equal(t, "bluesky", client.Name())

	_, ok := client.(platform.Authenticator)
	assert.True(t, ok, "bluesky requires a session")
}

func TestClient_FactoryErrorsPassThrough(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Client("mastodon", json.RawMessage(`{}`), "https://mastodon.example")
	require.Error(t, err)
	assert.True(t, errors.Is(err, platform.ErrInvalidCredentials))
}
