// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardSingleRun(t *testing.T) {
	g := NewGuard()
	require.NoError(t, g.Start())
	assert.ErrorIs(t, g.Start(), ErrRunInProgress)
	assert.True(t, g.Status().Running)

	g.Finish("run-1", "out.xlsx", nil)
	st := g.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "out.xlsx", st.LastOutput)
	assert.Equal(t, "run-1", st.RunID)
	assert.NotNil(t, st.LastStart)
	assert.NotNil(t, st.LastFinish)

	require.NoError(t, g.Start(), "guard is reusable after finish")
	g.Finish("run-2", "", errors.New("export failed"))
	assert.Equal(t, "export failed", g.Status().LastError)
}

func TestGuardRunIDWhileRunning(t *testing.T) {
	g := NewGuard()
	g.SetRunID("ignored")
	assert.Empty(t, g.Status().RunID, "idle guard ignores run ids")

	require.NoError(t, g.Start())
	assert.Empty(t, g.Status().RunID)
	g.SetRunID("run-7")
	st := g.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "run-7", st.RunID)

	g.Finish("run-7", "out.xlsx", nil)
	assert.Equal(t, "run-7", g.Status().RunID)
}

func TestGuardConcurrentStart(t *testing.T) {
	g := NewGuard()
	var wg sync.WaitGroup
	var admitted int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Start() == nil {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted)
}

func TestDefaultPathsAndEnsureDirs(t *testing.T) {
	root := t.TempDir()
	p := DefaultPaths(root)
	assert.Equal(t, filepath.Join(root, "input", "doi.xlsx"), p.Identifiers)
	assert.Equal(t, filepath.Join(root, "output", "extracted_xlsx"), p.Exports)

	require.NoError(t, EnsureDirs(p))
	for _, dir := range []string{p.Library, p.Parsed, p.Cleaned, p.Info, p.Exports} {
		assert.DirExists(t, dir)
	}
}

func TestLatestExport(t *testing.T) {
	dir := t.TempDir()
	got, err := LatestExport(dir)
	require.NoError(t, err)
	assert.Empty(t, got)

	older := filepath.Join(dir, "extracted_20260101_000000.xlsx")
	newer := filepath.Join(dir, "extracted_20260102_000000.xlsx")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	got, err = LatestExport(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}
