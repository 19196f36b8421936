package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewTemp()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, tokenstore.SaveSession(ctx, s,
		models.TokenPair{AccessToken: "a", RefreshToken: "r"}, `{"id":"u"}`))

	v, ok, err := s.Get(ctx, tokenstore.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r", v)

	require.NoError(t, tokenstore.Clear(ctx, s))
	for _, k := range tokenstore.AllKeys {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		require.False(t, ok, k)
	}
}

// Сессия переживает перезапуск процесса.
func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s1, err := New(path)
	require.NoError(t, err)
	require.NoError(t, tokenstore.SavePair(ctx, s1, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s1.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	require.Equal(t, "a", tokenstore.Lookup(ctx, s2, tokenstore.KeyAccessToken))
	require.Equal(t, "r", tokenstore.Lookup(ctx, s2, tokenstore.KeyRefreshToken))
}
