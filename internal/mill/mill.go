// Package mill installs the Mill build tool so Scala Steward can update
// Mill projects.
package mill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/psantana5/steward-action/internal/toolcache"
	"github.com/psantana5/steward-action/pkg/logging"
)

// DefaultReleaseURL is formatted with the version twice
const DefaultReleaseURL = "https://github.com/com-lihaoyi/mill/releases/download/%[1]s/%[1]s"

// Installer places a Mill launcher on the tools PATH
type Installer struct {
	cache      *toolcache.Cache
	version    string
	releaseURL string
	logger     *logging.Logger
}

// New creates an installer for version. An empty releaseURL uses the
// GitHub releases page.
func New(cache *toolcache.Cache, version, releaseURL string, logger *logging.Logger) *Installer {
	if releaseURL == "" {
		releaseURL = DefaultReleaseURL
	}
	return &Installer{
		cache:      cache,
		version:    version,
		releaseURL: releaseURL,
		logger:     logger.WithField("component", "mill"),
	}
}

// Install downloads Mill once and links it into the tools bin directory
func (i *Installer) Install(ctx context.Context) error {
	url := fmt.Sprintf(i.releaseURL, i.version)
	cached, err := i.cache.Fetch(ctx, url, "mill", i.version, "mill")
	if err != nil {
		i.logger.Debug(err.Error())
		return &toolcache.InstallError{Tool: "Mill", Err: err}
	}

	if err := link(cached, filepath.Join(i.cache.BinDir(), "mill")); err != nil {
		i.logger.Debug(err.Error())
		return &toolcache.InstallError{Tool: "Mill", Err: err}
	}

	i.logger.Info(fmt.Sprintf("✓ Mill (%s) installed", i.version))
	return nil
}

// link points dst at src, replacing whatever dst was
func link(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(src, dst)
}
