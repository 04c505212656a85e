package workspace

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const (
	cachePrefix = "scala-steward-"
	blobSuffix  = ".tar.zst"
)

// Paths under workspace/ that are never cached
var uncached = []string{
	filepath.Join("store", "refresh_error"),
	"repos",
	"run-summary.md",
}

type blob struct {
	path    string
	hash    string
	created int64
}

// RestoreCache extracts the newest cache blob for this repos list into the
// workspace. Blobs for other repos lists are used when no exact match
// exists. A miss or an unreadable blob is logged and not treated as an error.
func (m *Manager) RestoreCache(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	hash, err := reposHash(h)
	if err != nil {
		return err
	}

	b, ok, err := m.findBlob(hash)
	if err != nil {
		return err
	}
	if !ok {
		m.logger.Info("✕ No cache hit", map[string]interface{}{"key": cachePrefix + hash})
		return nil
	}

	if err := os.RemoveAll(h.WorkspaceDir()); err != nil {
		return fmt.Errorf("clearing %s: %w", h.WorkspaceDir(), err)
	}
	if err := os.MkdirAll(h.WorkspaceDir(), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", h.WorkspaceDir(), err)
	}

	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("opening cache blob: %w", err)
	}
	defer f.Close()

	if err := unpack(f, h.WorkspaceDir()); err != nil {
		m.logger.Warn("Ignoring unreadable cache blob", map[string]interface{}{"blob": b.path, "error": err.Error()})
		if err := os.RemoveAll(h.WorkspaceDir()); err != nil {
			return fmt.Errorf("clearing %s: %w", h.WorkspaceDir(), err)
		}
		return nil
	}

	m.logger.Info("✓ Scala Steward workspace cache restored", map[string]interface{}{"blob": filepath.Base(b.path)})
	return nil
}

// SaveCache archives the workspace state into a new blob and prunes
// older blobs for the same repos list.
func (m *Manager) SaveCache(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := os.Stat(h.WorkspaceDir()); errors.Is(err, fs.ErrNotExist) {
		m.logger.Info("Nothing to cache, Scala Steward did not create its workspace")
		return nil
	}

	for _, rel := range uncached {
		if err := os.RemoveAll(filepath.Join(h.WorkspaceDir(), rel)); err != nil {
			return fmt.Errorf("removing %s before caching: %w", rel, err)
		}
	}

	hash, err := reposHash(h)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	name := fmt.Sprintf("%s%s-%d%s", cachePrefix, hash, m.now().UnixMilli(), blobSuffix)
	tmp := filepath.Join(m.cacheDir, "."+uuid.NewString()+".tmp")

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating cache blob: %w", err)
	}
	if err := pack(h.WorkspaceDir(), f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing cache blob: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(m.cacheDir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storing cache blob: %w", err)
	}

	m.logger.Info("✓ Scala Steward workspace saved to cache", map[string]interface{}{"blob": name})
	m.prune(hash)
	return nil
}

// prune removes all but the newest m.keep blobs for hash. Failures only
// cost disk space, so they are logged.
func (m *Manager) prune(hash string) {
	blobs, err := m.listBlobs()
	if err != nil {
		m.logger.Warn("Listing cache blobs failed", map[string]interface{}{"error": err.Error()})
		return
	}

	var same []blob
	for _, b := range blobs {
		if b.hash == hash {
			same = append(same, b)
		}
	}
	if len(same) <= m.keep {
		return
	}
	for _, b := range same[m.keep:] {
		if err := os.Remove(b.path); err != nil {
			m.logger.Warn("Removing old cache blob failed", map[string]interface{}{"blob": b.path, "error": err.Error()})
		}
	}
}

func (m *Manager) findBlob(hash string) (blob, bool, error) {
	blobs, err := m.listBlobs()
	if err != nil {
		return blob{}, false, err
	}
	for _, b := range blobs {
		if b.hash == hash {
			return b, true, nil
		}
	}
	if len(blobs) > 0 {
		return blobs[0], true, nil
	}
	return blob{}, false, nil
}

// listBlobs returns the cache blobs, newest first
func (m *Manager) listBlobs() ([]blob, error) {
	entries, err := os.ReadDir(m.cacheDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache dir: %w", err)
	}

	var blobs []blob
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, ok := parseBlobName(e.Name())
		if !ok {
			continue
		}
		b.path = filepath.Join(m.cacheDir, e.Name())
		blobs = append(blobs, b)
	}

	sort.Slice(blobs, func(i, j int) bool {
		return blobs[i].created > blobs[j].created
	})
	return blobs, nil
}

func parseBlobName(name string) (blob, bool) {
	if !strings.HasPrefix(name, cachePrefix) || !strings.HasSuffix(name, blobSuffix) {
		return blob{}, false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), blobSuffix)
	i := strings.LastIndex(key, "-")
	if i <= 0 {
		return blob{}, false
	}
	created, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return blob{}, false
	}
	return blob{hash: key[:i], created: created}, true
}

// reposHash keys the cache on the repos list so different repo sets do
// not share state unless nothing better exists.
func reposHash(h Handle) (string, error) {
	data, err := os.ReadFile(h.ReposFile())
	if err != nil {
		return "", fmt.Errorf("reading repos file: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}
