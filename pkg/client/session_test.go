package client

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

func TestSession_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	_, err := LoadSession(path)
	assert.ErrorIs(t, err, ErrNoSession)

	want := Session{
		Server: "http://localhost:8080",
		Token:  "tok",
		User:   model.PublicUser{ID: "u1", Username: "alice", Email: "a@x.com"},
	}
	require.NoError(t, SaveSession(path, want))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	got, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path), "clearing twice is fine")
	_, err = LoadSession(path)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLoadSession_Invalid(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o600))
	_, err := LoadSession(garbage)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)

	noToken := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(noToken, []byte(`{"server":"x"}`), 0o600))
	_, err = LoadSession(noToken)
	assert.ErrorIs(t, err, ErrNoSession)
}
