package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"codepair/internal/model"
)

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Set(KeyRefreshToken, "token-r"))
	require.NoError(t, store.Set(KeyUser, `{"email":"dev@example.com","name":"Dev One"}`))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	got, ok := reopened.Get(KeyAccessToken)
	require.True(t, ok)
	require.Equal(t, "token-a", got)

	sess, err := LoadSession(reopened)
	require.NoError(t, err)
	require.Equal(t, "token-a", sess.AccessToken)
	require.Equal(t, "token-r", sess.RefreshToken)
	require.NotNil(t, sess.User)
	require.Equal(t, "dev@example.com", sess.User.Email)
}

func TestFileStoreClearRemovesKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Clear())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok := reopened.Get(KeyAccessToken)
	require.False(t, ok)
}

func TestFileStoreRecoversFromCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, writeFile(path, "{not json"))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok := store.Get(KeyAccessToken)
	require.False(t, ok)
}

func writeFile(path string, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestLoadSessionMalformedUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Set(KeyUser, "{definitely-not-json"))

	_, err := LoadSession(store)
	require.ErrorIs(t, err, model.ErrMalformedSession)
}

func TestLoadSessionTokensWithoutUser(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyAccessToken, "token-a"))
	require.NoError(t, store.Set(KeyRefreshToken, "token-r"))

	sess, err := LoadSession(store)
	require.NoError(t, err)
	require.Nil(t, sess.User)
	require.Equal(t, "token-a", sess.AccessToken)
	require.False(t, sess.Authenticated())
}
