package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/kv"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemoryStore(0)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStore_Quota(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemoryStore(10)

	require.NoError(t, s.Set(ctx, "a", "123456789"))
	err := s.Set(ctx, "b", "x")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrCodeQuotaExceeded))

	// Overwriting a key only counts the new value.
	require.NoError(t, s.Set(ctx, "a", "12345"))
	require.NoError(t, s.Set(ctx, "b", "x"))
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "portal.json")

	s, err := kv.NewFileStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "portal.progress", `{"completedDays":{}}`))

	reopened, err := kv.NewFileStore(path, 0)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "portal.progress")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"completedDays":{}}`, v)
	assert.Equal(t, path, reopened.Path())
}

func TestFileStore_QuotaLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")

	s, err := kv.NewFileStore(path, 32)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "small"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = s.Set(ctx, "k", strings.Repeat("x", 64))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ErrCodeQuotaExceeded))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	v, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "small", v)
}

func TestFileStore_ReloadSeesExternalWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")

	s, err := kv.NewFileStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`{"k":"from another process"}`), 0o644))

	require.NoError(t, s.Reload())
	v, ok, _ := s.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "from another process", v)
}

func TestFileStore_CorruptFileIsSetAside(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	s, err := kv.NewFileStore(path, 0)
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	backup := s.TakeRecovered()
	require.NotEmpty(t, backup)
	assert.True(t, strings.HasPrefix(backup, path+".corrupt-"), backup)
	kept, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(kept))
	assert.NoFileExists(t, path)
	assert.Empty(t, s.TakeRecovered(), "reported once")

	require.NoError(t, s.Set(ctx, "k", "v"))
	reopened, err := kv.NewFileStore(path, 0)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Empty(t, reopened.TakeRecovered())
}

func TestFileStore_UnchangedValueSkipsWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")

	s, err := kv.NewFileStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))

	// Replace the file behind the store's back; an identical Set must not rewrite it.
	require.NoError(t, os.WriteFile(path, []byte(`{"k":"v","other":"x"}`), 0o644))
	require.NoError(t, s.Set(ctx, "k", "v"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "other"))
}
