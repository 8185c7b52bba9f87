// Package fetch downloads the monthly trip archives and the service-area
// boundary file into the local data directory. Archives are read directly
// by the ingest package, so nothing is unzipped here.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Downloader fetches trip archives named YYYYMM-<slug>.zip from a static
// file host.
type Downloader struct {
	client  *http.Client
	baseURL string
	slug    string
	dir     string
	logger  *slog.Logger
}

// NewDownloader creates a Downloader. baseURL is the directory URL the
// archives live under; slug is the provider's file suffix (for example
// "divvy-tripdata").
func NewDownloader(baseURL, slug, dir string, logger *slog.Logger) *Downloader {
	return &Downloader{
		client:  &http.Client{Timeout: 5 * time.Minute},
		baseURL: baseURL,
		slug:    slug,
		dir:     dir,
		logger:  logger,
	}
}

// ArchiveName returns the provider's file name for a month.
func (d *Downloader) ArchiveName(year int, month time.Month) string {
	return fmt.Sprintf("%04d%02d-%s.zip", year, int(month), d.slug)
}

// FetchMonths downloads the archives for the given months with bounded
// parallelism. Existing files are kept unless overwrite is set. The first
// failure is returned; other downloads still finish.
func (d *Downloader) FetchMonths(ctx context.Context, year int, months []time.Month, overwrite bool, workers int) ([]string, error) {
	if workers <= 0 {
		workers = 4
	}

	paths := make([]string, len(months))
	errs := make([]error, len(months))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, m := range months {
		wg.Add(1)
		go func(i int, m time.Month) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			paths[i], errs[i] = d.fetchMonth(ctx, year, m, overwrite)
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (d *Downloader) fetchMonth(ctx context.Context, year int, month time.Month, overwrite bool) (string, error) {
	name := d.ArchiveName(year, month)
	dest := filepath.Join(d.dir, name)

	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			d.logger.Info("archive already present", "file", name)
			return dest, nil
		}
	}

	url := d.baseURL + "/" + name
	return dest, d.download(ctx, url, dest)
}

// FetchBoundary downloads the service-area boundary file (GeoJSON) to
// dest inside the data directory.
func (d *Downloader) FetchBoundary(ctx context.Context, url, dest string, overwrite bool) (string, error) {
	path := filepath.Join(d.dir, dest)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			d.logger.Info("boundary already present", "file", dest)
			return path, nil
		}
	}
	return path, d.download(ctx, url, path)
}

// download fetches url into dest via a temp file so a failed transfer
// never leaves a truncated archive behind.
func (d *Downloader) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	d.logger.Info("downloading", "url", url)
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	written, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), dest); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}

	d.logger.Info("downloaded",
		"file", filepath.Base(dest),
		"size_mb", fmt.Sprintf("%.1f", float64(written)/(1024*1024)),
	)
	return nil
}
