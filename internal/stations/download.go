package stations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// Downloader fetches a static GTFS zip and builds a directory from its
// stops.txt.
type Downloader struct {
	client *http.Client
	logger *slog.Logger
}

// NewDownloader creates a Downloader. A nil client uses http.DefaultClient.
func NewDownloader(client *http.Client, logger *slog.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Downloader{client: client, logger: logger}
}

// IsURL reports whether source should be downloaded rather than opened.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open loads a directory from a GTFS zip URL or, for anything else, a local
// path as Load does.
func (d *Downloader) Open(ctx context.Context, source string) (*Directory, error) {
	if !IsURL(source) {
		return Load(source)
	}
	path, err := d.download(ctx, source)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)
	return loadZip(path)
}

// download saves the zip at url to a temp file and returns its path.
func (d *Downloader) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	d.logger.Info("downloading GTFS static feed", "url", url)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "gtfs-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmpFile.Close()

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("write file: %w", err)
	}

	d.logger.Info("GTFS static feed downloaded",
		"size_mb", fmt.Sprintf("%.1f", float64(written)/(1024*1024)),
	)
	return tmpFile.Name(), nil
}
