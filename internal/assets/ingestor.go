package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/electricfoxes1989/the-triton-sub000/internal/ports"
)

// sizeSuffixExpr matches WordPress size-suffixed filenames like
// photo-800x600.jpg; stripping it yields the largest available variant.
var sizeSuffixExpr = regexp.MustCompile(`-\d+x\d+(\.[A-Za-z0-9]+)$`)

// minAssetBytes guards against tracking pixels and broken placeholders that
// answer 200 with a near-empty body.
const minAssetBytes = 1024

// Ingestor resolves remote media URLs to uploaded assets with a persisted
// URL-to-asset cache, so a URL is uploaded at most once across runs.
// Concurrent resolutions of the same canonical URL share one in-flight
// upload.
type Ingestor struct {
	store  ports.AssetStore
	client *http.Client
	logger *slog.Logger
	path   string

	mu     sync.Mutex
	cache  map[string]string
	dirty  bool
	flight singleflight.Group
}

var _ ports.AssetResolver = (*Ingestor)(nil)

// NewIngestor loads the cache file at cachePath; an absent file starts an
// empty cache.
func NewIngestor(store ports.AssetStore, client *http.Client, cachePath string, logger *slog.Logger) (*Ingestor, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	i := &Ingestor{
		store:  store,
		client: client,
		logger: logger,
		path:   cachePath,
		cache:  map[string]string{},
	}

	raw, err := os.ReadFile(cachePath)
	if errors.Is(err, os.ErrNotExist) {
		return i, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read asset cache %s: %w", cachePath, err)
	}
	if err := json.Unmarshal(raw, &i.cache); err != nil {
		return nil, fmt.Errorf("parse asset cache %s: %w", cachePath, err)
	}
	return i, nil
}

// Resolve returns the asset id for a media URL, consulting the cache by both
// the exact URL and its canonical largest-variant form before any network
// I/O. Failures return ok=false and are not cached, so a later run retries.
func (i *Ingestor) Resolve(ctx context.Context, rawURL string) (string, bool) {
	canonical := CanonicalURL(rawURL)

	i.mu.Lock()
	if id, ok := i.cache[rawURL]; ok {
		i.mu.Unlock()
		return id, true
	}
	if id, ok := i.cache[canonical]; ok {
		i.cache[rawURL] = id
		i.dirty = true
		i.mu.Unlock()
		return id, true
	}
	i.mu.Unlock()

	v, err, _ := i.flight.Do(canonical, func() (any, error) {
		return i.ingest(ctx, rawURL, canonical)
	})
	if err != nil {
		i.logger.Warn("asset resolution failed", "url", rawURL, "error", err)
		return "", false
	}
	id := v.(string)

	i.mu.Lock()
	if i.cache[rawURL] != id {
		i.cache[rawURL] = id
		i.dirty = true
	}
	i.mu.Unlock()
	return id, true
}

// ingest runs as the single flight for a canonical URL: fetch, size-check,
// upload, cache.
func (i *Ingestor) ingest(ctx context.Context, rawURL, canonical string) (string, error) {
	i.mu.Lock()
	if id, ok := i.cache[canonical]; ok {
		i.mu.Unlock()
		return id, nil
	}
	i.mu.Unlock()

	data, contentType, err := i.fetch(ctx, canonical)
	if err != nil && canonical != rawURL {
		i.logger.Debug("canonical variant unavailable, falling back", "url", canonical, "error", err)
		data, contentType, err = i.fetch(ctx, rawURL)
	}
	if err != nil {
		return "", err
	}
	if len(data) < minAssetBytes {
		return "", fmt.Errorf("payload too small (%d bytes)", len(data))
	}

	id, err := i.store.UploadAsset(ctx, data, contentType, filenameOf(canonical))
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}

	i.mu.Lock()
	i.cache[canonical] = id
	i.dirty = true
	i.mu.Unlock()
	return id, nil
}

// Flush persists the cache via an atomic replace. A no-op when nothing
// changed since the last flush.
func (i *Ingestor) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.dirty {
		return nil
	}

	raw, err := json.MarshalIndent(i.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal asset cache: %w", err)
	}

	tmp := i.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write asset cache: %w", err)
	}
	if err := os.Rename(tmp, i.path); err != nil {
		return fmt.Errorf("replace asset cache: %w", err)
	}
	i.dirty = false
	return nil
}

func (i *Ingestor) fetch(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read media body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// CanonicalURL strips a -WxH size suffix from the filename, pointing at the
// largest available variant. URLs without a suffix pass through unchanged.
func CanonicalURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	stripped := sizeSuffixExpr.ReplaceAllString(parsed.Path, "$1")
	if stripped == parsed.Path {
		return rawURL
	}
	parsed.Path = stripped
	return parsed.String()
}

func filenameOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "asset"
	}
	return name
}
