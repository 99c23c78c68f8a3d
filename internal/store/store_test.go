package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestLoad_MissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "config.json"))

	cfg, err := s.Load()
	require.NoError(t, err)
	assert.False(t, cfg.HasAddress())
	assert.False(t, cfg.HasCredential())
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{ipAddress: oops"), 0o600))

	_, err := New(path).Load()
	require.Error(t, err)

	var corrupt *CorruptError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, path, corrupt.Path)
	assert.Contains(t, err.Error(), "JSON validator")

	// The file is never discarded
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{ipAddress: oops", string(data))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "dir", "config.json"))

	cfg := &Configuration{
		Address:        "10.0.0.5",
		Name:           strPtr("Kitchen"),
		AdditionalInfo: map[string]any{"modelid": "BSB002", "swversion": "1967054020"},
		UserName:       strPtr("abc123"),
	}
	require.NoError(t, s.Save(cfg))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSave_WritesNullCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := New(path)

	cfg := &Configuration{}
	cfg.MergeIdentity("10.0.0.5", "Kitchen", map[string]any{})
	require.NoError(t, s.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ipAddress": "10.0.0.5"`)
	assert.Contains(t, string(data), `"name": "Kitchen"`)
	assert.Contains(t, string(data), `"userName": null`)
}

func TestMergeIdentity_KeepsCredential(t *testing.T) {
	cfg := &Configuration{UserName: strPtr("abc123")}
	cfg.MergeIdentity("10.0.0.9", "", nil)

	assert.Equal(t, "10.0.0.9", cfg.Address)
	assert.Nil(t, cfg.Name)
	assert.Equal(t, "abc123", cfg.Credential())
}

func TestHasCredential_EmptyString(t *testing.T) {
	cfg := &Configuration{Address: "10.0.0.5", UserName: strPtr("")}
	assert.False(t, cfg.HasCredential())
	assert.Equal(t, "", cfg.Credential())
}
