package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopuda/shopclient/dto"
)

func pair(access string) dto.CredentialPair {
	return dto.CredentialPair{
		AccessToken:  access,
		RefreshToken: "r1",
		Subject:      &dto.User{ID: 1, Username: "kim"},
	}
}

func TestStore_RoundTripSurvivesReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir, zerolog.Nop())
	require.NoError(t, s.Set(pair("a1")))

	// New store over the same dir simulates a process restart.
	s2 := New(dir, zerolog.Nop())
	got, ok := s2.Get()
	require.True(t, ok)
	require.Equal(t, "a1", got.AccessToken)
	require.Equal(t, "r1", got.RefreshToken)
	require.Equal(t, "kim", got.Subject.Username)
}

func TestStore_ClearDropsEverythingAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(dir, zerolog.Nop())
	require.NoError(t, s.Set(pair("a1")))
	require.NoError(t, s.Clear())

	_, ok := s.Get()
	require.False(t, ok)

	_, err := os.Stat(filepath.Join(dir, credentialFile))
	require.True(t, os.IsNotExist(err))

	s2 := New(dir, zerolog.Nop())
	_, ok = s2.Get()
	require.False(t, ok)
}

func TestStore_MemoryOnlyFallback(t *testing.T) {
	t.Parallel()

	// A file where the dir should be makes MkdirAll fail.
	blocked := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o600))

	s := New(blocked, zerolog.Nop())
	require.NoError(t, s.Set(pair("a1")))

	got, ok := s.Get()
	require.True(t, ok)
	require.Equal(t, "a1", got.AccessToken)

	// Nothing persisted, but nothing fatal either.
	s2 := New(blocked, zerolog.Nop())
	_, ok = s2.Get()
	require.False(t, ok)
}

func TestStore_CorruptFileIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, credentialFile), []byte("{not json"), 0o600))

	s := New(dir, zerolog.Nop())
	_, ok := s.Get()
	require.False(t, ok)
}

func TestStore_EmptyPairReadsAsAbsent(t *testing.T) {
	t.Parallel()

	s := New("", zerolog.Nop())
	require.NoError(t, s.Set(dto.CredentialPair{}))
	_, ok := s.Get()
	require.False(t, ok)
}
