package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Get performs an HTTP GET and returns the response body. A non-2xx status is an
// error. If client is nil, http.DefaultClient is used.
func Get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	resp, err := do(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http get %q: read body: %w", url, err)
	}
	return body, nil
}

// Download fetches url into dir/<last url segment> and returns the file path.
// When the file already exists it is returned without a request. The body is
// written to a temporary file first, so an interrupted download never leaves a
// partial file behind.
func Download(ctx context.Context, client *http.Client, url, dir string) (string, error) {
	name := fileName(url)
	if name == "" {
		return "", fmt.Errorf("http download %q: url has no file name", url)
	}
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("http download %q: %w", url, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("http download %q: %w", url, err)
	}

	resp, err := do(ctx, client, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("http download %q: %w", url, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("http download %q: read body: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("http download %q: %w", url, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("http download %q: %w", url, err)
	}
	return dest, nil
}

func do(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http get: new request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %q: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("http get %q: status %d", url, resp.StatusCode)
	}
	return resp, nil
}

func fileName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url[strings.LastIndex(url, "/")+1:]
}
