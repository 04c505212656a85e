// Package toolcache downloads single-file tools into a versioned directory
// and reuses them on later runs.
package toolcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// InstallError reports a tool that could not be installed. Its message
// names only the tool; the cause is kept for errors.As and debug logs.
type InstallError struct {
	Tool string
	Err  error
}

func (e *InstallError) Error() string { return "Unable to install " + e.Tool }
func (e *InstallError) Unwrap() error { return e.Err }

// Cache is a directory of downloaded tools laid out as <name>/<version>/<file>
type Cache struct {
	dir    string
	client *http.Client
}

// New creates a cache rooted at dir
func New(dir string, client *http.Client) *Cache {
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{dir: dir, client: client}
}

// BinDir is where installers put executables
func (c *Cache) BinDir() string {
	return filepath.Join(c.dir, "bin")
}

// Find returns the cached path of a tool, if present
func (c *Cache) Find(name, version, file string) (string, bool) {
	path := filepath.Join(c.dir, name, version, file)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Fetch returns the cached tool or downloads it from url. Downloaded
// files are made executable.
func (c *Cache) Fetch(ctx context.Context, url, name, version, file string) (string, error) {
	if path, ok := c.Find(name, version, file); ok {
		return path, nil
	}

	dir := filepath.Join(c.dir, name, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: HTTP %d", url, resp.StatusCode)
	}

	tmp := filepath.Join(dir, "."+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}

	path := filepath.Join(dir, file)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, os.Chmod(path, 0o755)
}
