package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/steward-action/pkg/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	return NewManager(Config{
		Dir:      filepath.Join(root, "scala-steward"),
		CacheDir: filepath.Join(root, "cache"),
	}, logging.Discard())
}

func TestPrepareWritesWorkspaceFiles(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Prepare(context.Background(), "- acme/widgets", "to'ken", "PEM")
	require.NoError(t, err)

	repos, err := os.ReadFile(h.ReposFile())
	require.NoError(t, err)
	assert.Equal(t, "- acme/widgets", string(repos))

	askpass, err := os.ReadFile(h.AskPassFile())
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n\necho 'to'\\''ken'\n", string(askpass))

	info, err := os.Stat(h.AskPassFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	key, err := os.Stat(h.AppKeyFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), key.Mode().Perm())
}

func TestPrepareWithoutAppKey(t *testing.T) {
	m := newTestManager(t)

	h, err := m.Prepare(context.Background(), "", "token", "")
	require.NoError(t, err)

	_, err = os.Stat(h.AppKeyFile())
	assert.True(t, os.IsNotExist(err), "app.pem should not be written without a key")
}

func TestHandlePaths(t *testing.T) {
	h := Handle("/home/runner/scala-steward")
	assert.Equal(t, "/home/runner/scala-steward/workspace", h.WorkspaceDir())
	assert.Equal(t, "/home/runner/scala-steward/repos.md", h.ReposFile())
	assert.Equal(t, "/home/runner/scala-steward/askpass.sh", h.AskPassFile())
	assert.Equal(t, "/home/runner/scala-steward/app.pem", h.AppKeyFile())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	h, err := m.Prepare(ctx, "- acme/widgets", "token", "")
	require.NoError(t, err)

	writeFile(t, filepath.Join(h.WorkspaceDir(), "store", "versions", "v1", "data.json"), `{"v":1}`)
	writeFile(t, filepath.Join(h.WorkspaceDir(), "store", "refresh_error", "x.json"), "stale")
	writeFile(t, filepath.Join(h.WorkspaceDir(), "repos", "acme", "widgets", "build.sbt"), "clone")
	writeFile(t, filepath.Join(h.WorkspaceDir(), "run-summary.md"), "summary")

	require.NoError(t, m.SaveCache(ctx, h))

	require.NoError(t, os.RemoveAll(h.WorkspaceDir()))
	require.NoError(t, m.RestoreCache(ctx, h))

	data, err := os.ReadFile(filepath.Join(h.WorkspaceDir(), "store", "versions", "v1", "data.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	for _, rel := range uncached {
		_, err := os.Stat(filepath.Join(h.WorkspaceDir(), rel))
		assert.True(t, os.IsNotExist(err), "%s should not be cached", rel)
	}
}

func TestRestoreCacheMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	h, err := m.Prepare(ctx, "- acme/widgets", "token", "")
	require.NoError(t, err)

	assert.NoError(t, m.RestoreCache(ctx, h))
	_, err = os.Stat(h.WorkspaceDir())
	assert.True(t, os.IsNotExist(err))
}

func TestRestoreCacheSkipsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	h, err := m.Prepare(ctx, "- acme/widgets", "token", "")
	require.NoError(t, err)

	hash, err := reposHash(h)
	require.NoError(t, err)
	writeFile(t, filepath.Join(m.cacheDir, cachePrefix+hash+"-1"+blobSuffix), "not zstd")

	assert.NoError(t, m.RestoreCache(ctx, h))
}

func TestRestoreFallsBackToAnyBlob(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	other, err := m.Prepare(ctx, "- acme/other", "token", "")
	require.NoError(t, err)
	writeFile(t, filepath.Join(other.WorkspaceDir(), "store", "marker"), "other")
	require.NoError(t, m.SaveCache(ctx, other))

	h, err := m.Prepare(ctx, "- acme/widgets", "token", "")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(h.WorkspaceDir()))
	require.NoError(t, m.RestoreCache(ctx, h))

	data, err := os.ReadFile(filepath.Join(h.WorkspaceDir(), "store", "marker"))
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}

func TestSaveCachePrunesOldBlobs(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	m.keep = 2

	clock := time.UnixMilli(1_700_000_000_000)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	h, err := m.Prepare(ctx, "- acme/widgets", "token", "")
	require.NoError(t, err)
	writeFile(t, filepath.Join(h.WorkspaceDir(), "store", "a"), "a")

	for i := 0; i < 4; i++ {
		require.NoError(t, m.SaveCache(ctx, h))
	}

	blobs, err := m.listBlobs()
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Greater(t, blobs[0].created, blobs[1].created)
}

func TestSaveCacheWithoutWorkspaceDir(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	h, err := m.Prepare(ctx, "- acme/widgets", "token", "")
	require.NoError(t, err)

	require.NoError(t, m.SaveCache(ctx, h))
	blobs, err := m.listBlobs()
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestParseBlobName(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		hash    string
		created int64
	}{
		{"scala-steward-abc123-1700000000000.tar.zst", true, "abc123", 1700000000000},
		{"scala-steward-abc123.tar.zst", false, "", 0},
		{"scala-steward-abc-notanumber.tar.zst", false, "", 0},
		{".0b1c.tmp", false, "", 0},
		{"other-abc-1.tar.zst", false, "", 0},
	}

	for _, tt := range tests {
		b, ok := parseBlobName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.hash, b.hash, tt.name)
			assert.Equal(t, tt.created, b.created, tt.name)
		}
	}
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	assert.True(t, within("/a/b", "/a/b/c"))
	assert.True(t, within("/a/b", "/a/b"))
	assert.False(t, within("/a/b", "/a/bc"))
	assert.False(t, within("/a/b", "/a"))
}
