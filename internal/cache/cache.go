// Package cache prunes files hlsplay leaves behind: rotated logs and mpv
// sockets orphaned by a crash.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hlsplay/hlsplay/filesystem"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/where"
	"github.com/spf13/afero"
)

// TTL is how long a log file is kept.
const TTL = 7 * 24 * time.Hour

// SocketTTL is the age after which a socket no longer belongs to a running mpv.
const SocketTTL = 24 * time.Hour

// CollectGarbage removes expired logs and stale sockets.
func CollectGarbage() {
	Prune(where.Logs(), TTL, func(path string) bool {
		return strings.HasSuffix(path, ".log")
	})
	Prune(where.Sockets(), SocketTTL, nil)
}

// Prune deletes regular files under dir whose modification time is older than
// ttl. match filters the candidates when non-nil. It returns how many files were
// removed.
func Prune(dir string, ttl time.Duration, match func(path string) bool) int {
	fs := filesystem.API()
	now := time.Now()

	var removed int
	_ = afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if match != nil && !match(path) {
			return nil
		}
		if now.Sub(info.ModTime()) <= ttl {
			return nil
		}

		if err := fs.Remove(path); err != nil {
			log.Warnf("prune %s: %v", filepath.Base(path), err)
			return nil
		}
		removed++
		return nil
	})

	if removed > 0 {
		log.Infof("pruned %d files from %s", removed, dir)
	}
	return removed
}
