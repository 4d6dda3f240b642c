package crawler

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/logging"
	"github.com/JakeFAU/ktweb-minutes/internal/minutes"
)

// PlannerConfig tunes a Planner.
type PlannerConfig struct {
	// PolicymakerURLTemplate has one %s for the policymaker identifier.
	PolicymakerURLTemplate string
	// IndexHeadingPrefix optionally restricts which h3 headings are followed.
	IndexHeadingPrefix string
	// Force re-downloads issue pages that already exist locally.
	Force bool
}

// Planner walks a policymaker's meeting documents through a Downloader.
type Planner struct {
	downloader *Downloader
	pages      PageStore
	cfg        PlannerConfig
	logger     *zap.Logger
}

// NewPlanner builds a Planner. Pages receives the origin_url sidecars.
func NewPlanner(downloader *Downloader, pages PageStore, cfg PlannerConfig, logger *zap.Logger) (*Planner, error) {
	if downloader == nil || pages == nil {
		return nil, fmt.Errorf("downloader and page store are required")
	}
	if strings.Count(cfg.PolicymakerURLTemplate, "%s") != 1 {
		return nil, fmt.Errorf("policymaker url template must contain exactly one %%s")
	}
	return &Planner{
		downloader: downloader,
		pages:      pages,
		cfg:        cfg,
		logger:     logging.OrNop(logger).Named("planner"),
	}, nil
}

// PolicymakerURL returns the listing URL for a policymaker identifier.
func (p *Planner) PolicymakerURL(policymaker string) string {
	return fmt.Sprintf(p.cfg.PolicymakerURLTemplate, policymaker)
}

// Download fetches every meeting document listed for policymaker, calling emit
// once per document in listing order. Only a failure to read the listing itself,
// or cancellation, is returned as an error.
func (p *Planner) Download(ctx context.Context, policymaker string, emit func(DocumentResult)) error {
	listingURL := p.PolicymakerURL(policymaker)
	base, err := url.Parse(listingURL)
	if err != nil {
		return fmt.Errorf("parse policymaker url: %w", err)
	}
	doc, err := p.downloader.FetchDocument(ctx, listingURL, KindPolicymaker)
	if err != nil {
		return fmt.Errorf("fetch policymaker listing: %w", err)
	}

	indices := IndexURLs(doc, base, p.cfg.IndexHeadingPrefix)
	p.logger.Info("meeting documents discovered",
		zap.String("policymaker", policymaker),
		zap.Int("count", len(indices)),
	)
	for _, indexURL := range indices {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("download %s: %w", policymaker, err)
		}
		result := p.DownloadDocument(ctx, indexURL)
		if emit != nil {
			emit(result)
		}
	}
	return ctx.Err()
}

// DownloadDocument fetches one meeting document: its index page, the
// origin_url sidecar, the cover page and every issue page. Each failure is
// recorded and the remaining pages are still attempted.
func (p *Planner) DownloadDocument(ctx context.Context, indexURL string) DocumentResult {
	result := DocumentResult{IndexURL: indexURL}
	logger := p.logger.With(zap.String("index_url", indexURL))

	index, err := p.downloader.Download(ctx, FetchRequest{URL: indexURL, Kind: KindIndex, Force: true})
	if err != nil {
		logger.Warn("index page failed", zap.Error(err))
		result.Failures = append(result.Failures, Diagnostic{URL: indexURL, Kind: KindIndex, Err: err})
		return result
	}
	result.Dir = filepath.Dir(index.Path)
	result.Pages = append(result.Pages, index.Path)

	sidecar := path.Join(path.Dir(index.Key), minutes.OriginURLFile)
	if _, err := p.pages.PutObject(ctx, sidecar, "text/plain; charset=utf-8", strings.NewReader(indexURL)); err != nil {
		logger.Warn("origin url sidecar failed", zap.Error(err))
		result.Failures = append(result.Failures, Diagnostic{URL: indexURL, Kind: KindIndex, Err: err})
	}

	base, err := url.Parse(indexURL)
	if err != nil {
		result.Failures = append(result.Failures, Diagnostic{URL: indexURL, Kind: KindIndex, Err: err})
		return result
	}

	p.fetchInto(ctx, &result, base, minutes.CoverPageFile, KindCover, true)

	for _, issueURL := range IssueURLs(index.Doc, base) {
		p.fetchInto(ctx, &result, base, issueURL, KindIssue, p.cfg.Force)
	}

	logger.Info("meeting document downloaded",
		zap.String("dir", result.Dir),
		zap.Int("pages", len(result.Pages)),
		zap.Int("failures", len(result.Failures)),
	)
	return result
}

func (p *Planner) fetchInto(ctx context.Context, result *DocumentResult, base *url.URL, ref string, kind PageKind, force bool) {
	target, err := Resolve(base, ref)
	if err != nil {
		result.Failures = append(result.Failures, Diagnostic{URL: ref, Kind: kind, Err: err})
		return
	}
	page, err := p.downloader.Download(ctx, FetchRequest{URL: target, Kind: kind, Force: force})
	if err != nil {
		p.logger.Warn("page failed", zap.String("url", target), zap.String("kind", string(kind)), zap.Error(err))
		result.Failures = append(result.Failures, Diagnostic{URL: target, Kind: kind, Err: err})
		return
	}
	result.Pages = append(result.Pages, page.Path)
}
