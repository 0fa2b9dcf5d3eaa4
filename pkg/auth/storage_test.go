package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() Session {
	return Session{
		Token: AuthToken{
			AccessToken:  "AT1",
			TokenType:    "Bearer",
			ExpiresAt:    time.Now().Add(time.Hour),
			RefreshToken: "RT1",
		},
		User: User{ID: "555"},
	}
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	t.Run("empty store returns nil", func(t *testing.T) {
		session, err := storage.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, sampleSession()))

		session, err := storage.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "AT1", session.Token.AccessToken)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		session, err := storage.Get(ctx)
		require.NoError(t, err)
		session.Token.AccessToken = "mutated"

		again, err := storage.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AT1", again.Token.AccessToken)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, storage.Clear(ctx))
		session, err := storage.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)

		// Clearing an empty store is fine
		require.NoError(t, storage.Clear(ctx))
	})
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file returns nil", func(t *testing.T) {
		storage, err := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
		require.NoError(t, err)

		session, err := storage.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("set then get across instances", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")

		first, err := NewFileStorage(path)
		require.NoError(t, err)
		require.NoError(t, first.Set(ctx, sampleSession()))

		second, err := NewFileStorage(path)
		require.NoError(t, err)
		session, err := second.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "RT1", session.Token.RefreshToken)
	})

	t.Run("session file is private", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		storage, err := NewFileStorage(path)
		require.NoError(t, err)
		require.NoError(t, storage.Set(ctx, sampleSession()))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

		storage, err := NewFileStorage(path)
		require.NoError(t, err)

		_, err = storage.Get(ctx)
		assert.Error(t, err)
	})

	t.Run("clear removes the file and is idempotent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.json")
		storage, err := NewFileStorage(path)
		require.NoError(t, err)
		require.NoError(t, storage.Set(ctx, sampleSession()))

		require.NoError(t, storage.Clear(ctx))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))

		require.NoError(t, storage.Clear(ctx))
	})
}
