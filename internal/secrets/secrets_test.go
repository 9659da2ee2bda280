// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecret(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadCredentialDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, KeyElsevier, "  els-123  \n")
	writeSecret(t, dir, KeyOpenAI, "sk-456")
	writeSecret(t, dir, KeyUniParser, "\tarticle\n")
	writeSecret(t, dir, KeyAnthropic, "   \n")
	writeSecret(t, dir, ".gitkeep", "")
	writeSecret(t, dir, ".hidden", "nope")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	store, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Store{
		KeyElsevier:  "els-123",
		KeyOpenAI:    "sk-456",
		KeyUniParser: "article",
	}, store)
	assert.Equal(t, []string{KeyElsevier, KeyOpenAI, KeyUniParser}, store.Names())
}

func TestLoadMissingDirectory(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, store)
	assert.Empty(t, store.Names())
}

func TestLoadSkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeSecret(t, dir, KeyOpenAI, "sk-ok")
	locked := filepath.Join(dir, KeyElsevier)
	require.NoError(t, os.WriteFile(locked, []byte("els"), 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o644) })

	store, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Store{KeyOpenAI: "sk-ok"}, store)
}

func TestStoreGet(t *testing.T) {
	store := Store{KeyOpenAI: "sk-file"}

	assert.Equal(t, "sk-config", store.Get(KeyOpenAI, "sk-config"), "configured value wins")
	assert.Equal(t, "sk-file", store.Get(KeyOpenAI, ""))
	assert.Empty(t, store.Get(KeyElsevier, ""))

	var none Store
	assert.Empty(t, none.Get(KeyOpenAI, ""), "nil store is usable")
}
