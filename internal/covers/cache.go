package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrOutsideCache  = errors.New("path is outside the cover cache")
	ErrCoverTooLarge = errors.New("cover exceeds size limit")
)

// maxCoverBytes bounds a single downloaded cover.
const maxCoverBytes = 10 << 20

// Cache stores cover images under a single directory. File names are derived
// from the image content so the same cover is only stored once.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
	userAgent  string
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string, timeout time.Duration) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	abs, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Cache{
		cacheDir:   abs,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "Bookshelf/1.0",
	}, nil
}

// ResolveCoverURI returns the local file when it exists inside the cache,
// otherwise the remote URL. An empty result means the book has no cover.
func (c *Cache) ResolveCoverURI(localPath, remoteURL string) string {
	if localPath != "" && c.Contains(localPath) {
		if info, err := os.Stat(localPath); err == nil && info.Mode().IsRegular() {
			return localPath
		}
	}
	return remoteURL
}

// PersistLocal copies a file into the cache and returns the cached path.
func (c *Cache) PersistLocal(sourcePath string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("open cover: %w", err)
	}
	defer f.Close()

	return c.store(f, filepath.Ext(sourcePath))
}

// PersistRemote downloads a cover and returns the cached path.
func (c *Cache) PersistRemote(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("cover URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	if resp.ContentLength > maxCoverBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrCoverTooLarge, resp.ContentLength)
	}

	return c.store(&limitedReader{r: resp.Body, remaining: maxCoverBytes}, extensionFor(resp.Header.Get("Content-Type"), url))
}

// Delete removes a cached cover. A missing file is not an error.
func (c *Cache) Delete(localPath string) error {
	if localPath == "" {
		return nil
	}
	if !c.Contains(localPath) {
		return fmt.Errorf("%w: %s", ErrOutsideCache, localPath)
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}

// Contains reports whether path names a file inside the cache directory.
func (c *Cache) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(c.cacheDir, abs)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// store writes r to a temp file while hashing it, then renames it to its
// content address.
func (c *Cache) store(r io.Reader, ext string) (string, error) {
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmpFile, hash), r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("cover is empty")
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	cachePath := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%x%s", hash.Sum(nil)[:16], ext))
	if err := os.Rename(tmpPath, cachePath); err != nil {
		return "", err
	}
	return cachePath, nil
}

// limitedReader fails with ErrCoverTooLarge instead of truncating once more
// than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrCoverTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrCoverTooLarge
	}
	return n, err
}

func extensionFor(contentType, url string) string {
	switch strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/jpeg":
		return ".jpg"
	}
	switch ext := strings.ToLower(filepath.Ext(strings.SplitN(url, "?", 2)[0])); ext {
	case ".png", ".gif", ".webp", ".jpg", ".jpeg":
		return ext
	}
	return ".jpg"
}
