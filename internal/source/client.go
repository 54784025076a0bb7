package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/covidmx-labs/covidsync/internal/provenance"
)

// defaultTimeout bounds a single probe or download. The cases archive is
// several hundred megabytes, so downloads get a generous window.
const defaultTimeout = 30 * time.Minute

// Client talks to the open-data endpoints. It issues single attempts only;
// network flakiness is the operator's problem, not this client's.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client. A nil logger discards output.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

// Probe issues a header-only request against rawURL and returns a
// provenance record carrying the response headers. The body is never
// transferred.
func (c *Client) Probe(ctx context.Context, rawURL string) (*provenance.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building probe request for %s: %w", rawURL, err)
	}

	c.logger.Debug("probing remote source", "url", rawURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: probing %s: %v", ErrRemoteUnavailable, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: probing %s: status %d", ErrRemoteUnavailable, rawURL, resp.StatusCode)
	}

	return provenance.New("", time.Time{}, flattenHeaders(resp.Header)), nil
}

// Fetch downloads the archive at rawURL into destDir, named after the last
// URL path segment. Any existing file of the same name is overwritten;
// idempotency is enforced at the extraction step, not here. Returns the
// local path and the response headers.
func (c *Client) Fetch(ctx context.Context, rawURL, destDir string) (string, map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("building download request for %s: %w", rawURL, err)
	}

	c.logger.Debug("downloading archive", "url", rawURL, "dest_dir", destDir)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: downloading %s: %v", ErrRemoteUnavailable, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("%w: downloading %s: status %d", ErrRemoteUnavailable, rawURL, resp.StatusCode)
	}

	name, err := archiveName(rawURL)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", nil, fmt.Errorf("creating data directory %s: %w", destDir, err)
	}

	destPath := filepath.Join(destDir, name)
	out, err := os.Create(destPath)
	if err != nil {
		return "", nil, fmt.Errorf("creating archive file %s: %w", destPath, err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return "", nil, fmt.Errorf("writing archive %s: %w", destPath, err)
	}

	c.logger.Debug("archive downloaded", "path", destPath, "bytes", written)

	return destPath, flattenHeaders(resp.Header), nil
}

// archiveName derives the local file name from the URL path.
func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing archive URL %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("archive URL %s has no file name", rawURL)
	}
	return name, nil
}

// flattenHeaders lowercases header names and keeps the first value of each,
// matching the sidecar representation.
func flattenHeaders(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		flat[strings.ToLower(name)] = values[0]
	}
	return flat
}
