package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Rendered-HTML file cache for live entries. Entries are keyed by
// (username, page id) and explicitly invalidated on publish, unpublish
// and delete, so a cached page can never outlive its snapshot.

// GetCachePath returns the cache file path for a published entry.
func GetCachePath(username string, pageID uint) string {
	hash := generateHash(fmt.Sprintf("%s/%d", username, pageID))
	shortHash := hash[:16]
	cacheDir := filepath.Join("cache", username)
	return filepath.Join(cacheDir, fmt.Sprintf("%d_%s.html", pageID, shortHash))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// EnsureCacheDir ensures the user's cache directory exists
func EnsureCacheDir(username string) error {
	cacheDir := filepath.Join("cache", username)
	return os.MkdirAll(cacheDir, 0755)
}

// WriteCache writes rendered HTML to the cache file
func WriteCache(username string, pageID uint, html string) error {
	if err := EnsureCacheDir(username); err != nil {
		return err
	}
	return os.WriteFile(GetCachePath(username, pageID), []byte(html), 0644)
}

// ReadCache reads cached HTML if it exists and is not expired
func ReadCache(username string, pageID uint, maxAge time.Duration) (string, bool) {
	cachePath := GetCachePath(username, pageID)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// ClearCache removes the cache file for one entry
func ClearCache(username string, pageID uint) error {
	err := os.Remove(GetCachePath(username, pageID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearUserCache removes all cached entries of a user
func ClearUserCache(username string) error {
	return os.RemoveAll(filepath.Join("cache", username))
}

// ClearOldCache removes cache files older than the specified duration
func ClearOldCache(maxAge time.Duration) error {
	cacheRoot := "cache"

	return filepath.Walk(cacheRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if !strings.HasSuffix(path, ".html") {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}

		return nil
	})
}
