package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/ktweb-minutes/internal/logging"
	"github.com/JakeFAU/ktweb-minutes/internal/markup"
	"github.com/JakeFAU/ktweb-minutes/internal/metrics"
)

const pageContentType = "text/html; charset=utf-8"

// DownloaderDeps wires a Downloader.
type DownloaderDeps struct {
	Fetcher   Fetcher
	Pages     PageStore
	Limiter   Limiter
	Encodings Encodings
	// Archive optionally mirrors every freshly written page.
	Archive       BlobStore
	ArchivePrefix string
	// Retry is optional; without it every page gets a single attempt.
	Retry RetryPolicy
	// Hasher is optional; with it forced downloads leave unchanged pages alone.
	Hasher Hasher
	Logger *zap.Logger
}

// Hasher digests stored page content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Downloader fetches pages, normalizes them and stores them atomically.
// It is not safe for concurrent use; the politeness gate assumes serial callers.
type Downloader struct {
	fetcher       Fetcher
	pages         PageStore
	limiter       Limiter
	encodings     Encodings
	archive       BlobStore
	archivePrefix string
	retry         RetryPolicy
	hasher        Hasher
	logger        *zap.Logger
}

// NewDownloader validates deps and builds a Downloader.
func NewDownloader(deps DownloaderDeps) (*Downloader, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if deps.Pages == nil {
		return nil, fmt.Errorf("page store is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	enc := deps.Encodings
	if enc == (Encodings{}) {
		enc = DefaultEncodings()
	}
	return &Downloader{
		fetcher:       deps.Fetcher,
		pages:         deps.Pages,
		limiter:       deps.Limiter,
		encodings:     enc,
		archive:       deps.Archive,
		archivePrefix: deps.ArchivePrefix,
		retry:         deps.Retry,
		hasher:        deps.Hasher,
		logger:        logging.OrNop(deps.Logger).Named("downloader"),
	}, nil
}

// Download stores req.URL below the download root. When the file already
// exists and Force is false, no request is made and the returned Page is Cached.
func (d *Downloader) Download(ctx context.Context, req FetchRequest) (Page, error) {
	key, err := LocalKey(req.URL)
	if err != nil {
		return Page{}, &FetchError{URL: req.URL, Err: err}
	}
	localPath, err := d.pages.Path(key)
	if err != nil {
		return Page{}, &FetchError{URL: req.URL, Err: err}
	}
	page := Page{URL: req.URL, Key: key, Path: localPath}

	if !req.Force {
		exists, err := d.pages.Exists(key)
		if err != nil {
			return Page{}, fmt.Errorf("check %s: %w", localPath, err)
		}
		if exists {
			metrics.ObservePage(req.URL, string(req.Kind), "cached", 0)
			page.Cached = true
			return page, nil
		}
	}

	doc, body, err := d.fetchWithRetry(ctx, req.URL, req.Kind)
	if err != nil {
		return Page{}, err
	}
	page.Doc = doc
	if d.hasher != nil {
		digest, unchanged, err := d.compare(localPath, body)
		if err != nil {
			return Page{}, err
		}
		page.Digest = digest
		if unchanged {
			d.logger.Debug("page unchanged", zap.String("url", req.URL), zap.String("digest", digest))
			page.Unchanged = true
			return page, nil
		}
	}
	if _, err := d.pages.PutObject(ctx, key, pageContentType, bytes.NewReader(body)); err != nil {
		return Page{}, fmt.Errorf("store %s: %w", localPath, err)
	}
	d.mirror(ctx, key, body)

	d.logger.Debug("page stored", zap.String("url", req.URL), zap.String("path", localPath))
	return page, nil
}

// compare digests body and reports whether the file at localPath already
// holds the same content.
func (d *Downloader) compare(localPath string, body []byte) (string, bool, error) {
	digest, err := d.hasher.Hash(body)
	if err != nil {
		return "", false, fmt.Errorf("hash %s: %w", localPath, err)
	}
	existing, err := os.ReadFile(localPath) //nolint:gosec // path is confined to the page store
	if errors.Is(err, fs.ErrNotExist) {
		return digest, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", localPath, err)
	}
	previous, err := d.hasher.Hash(existing)
	if err != nil {
		return "", false, fmt.Errorf("hash %s: %w", localPath, err)
	}
	return digest, previous == digest, nil
}

// FetchDocument retrieves and normalizes a page without storing it.
func (d *Downloader) FetchDocument(ctx context.Context, url string, kind PageKind) (*html.Node, error) {
	doc, _, err := d.fetchWithRetry(ctx, url, kind)
	return doc, err
}

// fetchWithRetry repeats fetch while the retry policy allows. Every attempt
// passes the politeness gate again.
func (d *Downloader) fetchWithRetry(ctx context.Context, url string, kind PageKind) (*html.Node, []byte, error) {
	for attempt := 1; ; attempt++ {
		doc, body, err := d.fetch(ctx, url, kind)
		if err == nil || d.retry == nil || !d.retry.ShouldRetry(err, attempt) {
			return doc, body, err
		}
		wait := d.retry.Backoff(attempt)
		d.logger.Warn("retrying page",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if serr := sleepContext(ctx, wait); serr != nil {
			return nil, nil, &FetchError{URL: url, Err: serr}
		}
	}
}

func (d *Downloader) fetch(ctx context.Context, url string, kind PageKind) (*html.Node, []byte, error) {
	if err := d.limiter.Wait(ctx, url); err != nil {
		return nil, nil, &FetchError{URL: url, Err: err}
	}

	start := time.Now()
	resp, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObservePage(url, string(kind), "error", 0)
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, nil, fe
		}
		return nil, nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObservePage(url, string(kind), "error", len(resp.Body))
		return nil, nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	doc, err := markup.Parse(bytes.NewReader(resp.Body), d.encodings.For(kind))
	if err != nil {
		metrics.ObservePage(url, string(kind), "error", len(resp.Body))
		return nil, nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	body, err := markup.Render(doc)
	if err != nil {
		return nil, nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	metrics.ObservePage(url, string(kind), "ok", len(resp.Body))
	d.logger.Info("page fetched",
		zap.String("url", url),
		zap.String("kind", string(kind)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return doc, body, nil
}

func (d *Downloader) mirror(ctx context.Context, key string, body []byte) {
	if d.archive == nil {
		return
	}
	target := path.Join(d.archivePrefix, key)
	if _, err := d.archive.PutObject(ctx, target, pageContentType, bytes.NewReader(body)); err != nil {
		d.logger.Warn("archive mirror failed", zap.String("key", target), zap.Error(err))
	}
}
