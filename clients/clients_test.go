package clients_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/michaellperry/gamehub-identity/clients"
	"github.com/stretchr/testify/require"
)

func TestRedirectAllowedIsExactMatch(t *testing.T) {
	c := &clients.Client{
		ID:           "web-client",
		Type:         clients.ClientTypePublic,
		RedirectURIs: []string{"https://game.example/callback"},
	}

	require.True(t, c.RedirectAllowed("https://game.example/callback"))
	require.False(t, c.RedirectAllowed("https://game.example/callback/"))
	require.False(t, c.RedirectAllowed("https://game.example/callback?extra=1"))
	require.False(t, c.RedirectAllowed("https://evil.example/callback"))
}

func TestCheckSecret(t *testing.T) {
	hash, err := clients.HashSecret("s3cret")
	require.NoError(t, err)

	c := &clients.Client{ID: "backend", Type: clients.ClientTypeConfidential, SecretHash: hash}
	require.True(t, c.CheckSecret("s3cret"))
	require.False(t, c.CheckSecret("other"))
	require.False(t, c.CheckSecret(""))

	// Public clients carry no secret and never match.
	public := &clients.Client{ID: "web", Type: clients.ClientTypePublic}
	require.False(t, public.CheckSecret("anything"))
}

func TestRegisterValidation(t *testing.T) {
	r := clients.NewRegistry()

	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(&clients.Client{Type: clients.ClientTypePublic}))
	require.Error(t, r.Register(&clients.Client{ID: "x", Type: "mystery"}))
	require.Error(t, r.Register(&clients.Client{ID: "x", Type: clients.ClientTypeConfidential}))

	require.NoError(t, r.Register(&clients.Client{ID: "web", Type: clients.ClientTypePublic}))
	got, err := r.Get("web")
	require.NoError(t, err)
	require.True(t, got.IsPublic())

	_, err = r.Get("nobody")
	require.ErrorIs(t, err, clients.ErrClientNotFound)
}

func TestLoadRegistry(t *testing.T) {
	hash, err := clients.HashSecret("s3cret")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "clients.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "web-client", "type": "public", "redirect_uris": ["https://game.example/callback"]},
		{"id": "game-backend", "type": "confidential", "secret_hash": `+quote(hash)+`}
	]`), 0o600))

	r, err := clients.LoadRegistry(path)
	require.NoError(t, err)

	web, err := r.Get("web-client")
	require.NoError(t, err)
	require.True(t, web.RedirectAllowed("https://game.example/callback"))

	backend, err := r.Get("game-backend")
	require.NoError(t, err)
	require.True(t, backend.CheckSecret("s3cret"))
}

func TestLoadRegistryRejectsBadFiles(t *testing.T) {
	_, err := clients.LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "clients.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o600))
	_, err = clients.LoadRegistry(path)
	require.Error(t, err)
}

func quote(s string) string {
	return `"` + s + `"`
}
