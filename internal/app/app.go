// Package app builds the long-lived services every command shares from a
// loaded configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/api"
	"github.com/JakeFAU/ktweb-minutes/internal/clock/system"
	"github.com/JakeFAU/ktweb-minutes/internal/config"
	"github.com/JakeFAU/ktweb-minutes/internal/crawler"
	collyfetcher "github.com/JakeFAU/ktweb-minutes/internal/fetcher/colly"
	"github.com/JakeFAU/ktweb-minutes/internal/hash/sha256"
	"github.com/JakeFAU/ktweb-minutes/internal/id/uuid"
	"github.com/JakeFAU/ktweb-minutes/internal/ingest"
	"github.com/JakeFAU/ktweb-minutes/internal/logging"
	"github.com/JakeFAU/ktweb-minutes/internal/markup"
	"github.com/JakeFAU/ktweb-minutes/internal/parser"
	"github.com/JakeFAU/ktweb-minutes/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/ktweb-minutes/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/ktweb-minutes/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/ktweb-minutes/internal/storage/gcs"
	localstorage "github.com/JakeFAU/ktweb-minutes/internal/storage/local"
	memorystorage "github.com/JakeFAU/ktweb-minutes/internal/storage/memory"
	pgstore "github.com/JakeFAU/ktweb-minutes/internal/storage/postgres"
	"github.com/JakeFAU/ktweb-minutes/internal/store"
	"github.com/JakeFAU/ktweb-minutes/internal/telemetry"
)

// Publisher is an ingest publisher that can be shut down.
type Publisher interface {
	ingest.Publisher
	Close()
}

// App holds the services built from one configuration.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Pages      *localstorage.BlobStore
	Downloader *crawler.Downloader
	Planner    *crawler.Planner
	Parser     *parser.Parser
	Repository store.Repository
	Publisher  Publisher
	Ingester   *ingest.Ingester

	archive         *gcsstorage.BlobStore
	shutdownTracing telemetry.Shutdown
}

// New builds every service. Network clients for Postgres, Pub/Sub and GCS
// are only created when their configuration asks for them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{Config: cfg, Logger: logger}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	_, shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.TracingEnabled,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracing = shutdown

	loc, err := time.LoadLocation(cfg.Ingest.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Ingest.Timezone, err)
	}

	pages, err := localstorage.New(localstorage.Config{BaseDir: cfg.Crawler.DownloadDir})
	if err != nil {
		return fmt.Errorf("init page store: %w", err)
	}
	a.Pages = pages

	if cfg.Storage.ArchiveBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		archive, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: cfg.Storage.ArchiveBucket,
			Prefix: cfg.Storage.ArchivePrefix,
		})
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("init archive: %w", err)
		}
		a.archive = archive
		a.Logger.Info("mirroring pages to gcs", zap.String("bucket", cfg.Storage.ArchiveBucket))
	}

	if err := a.buildCrawler(); err != nil {
		return err
	}

	a.Parser = parser.New(loc, a.Logger)

	if err := a.buildRepository(ctx); err != nil {
		return err
	}
	if err := a.buildPublisher(ctx); err != nil {
		return err
	}

	ingester, err := ingest.New(ingest.Deps{
		Parser:          a.Parser,
		Repository:      a.Repository,
		Publisher:       a.Publisher,
		IDs:             uuid.New(),
		Clock:           system.New(),
		PolicymakerName: cfg.PolicymakerName,
		Logger:          a.Logger,
	}, ingest.Config{
		Concurrency: cfg.Ingest.Concurrency,
		Topic:       cfg.PubSub.TopicName,
	})
	if err != nil {
		return fmt.Errorf("init ingester: %w", err)
	}
	a.Ingester = ingester
	return nil
}

func (a *App) buildCrawler() error {
	cfg := a.Config
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
	})
	deps := crawler.DownloaderDeps{
		Fetcher: fetcher,
		Pages:   a.Pages,
		Limiter: ratelimit.New(ratelimit.Config{MinInterval: cfg.Crawler.MinInterval}),
		Encodings: crawler.Encodings{
			Policymaker: markup.Encoding(cfg.Crawler.Encodings.Policymaker),
			Index:       markup.Encoding(cfg.Crawler.Encodings.Index),
			Cover:       markup.Encoding(cfg.Crawler.Encodings.Cover),
			Issue:       markup.Encoding(cfg.Crawler.Encodings.Issue),
		},
		ArchivePrefix: cfg.Storage.ArchivePrefix,
		Retry: crawler.NewExponentialRetryPolicy(crawler.RetryConfig{
			MaxAttempts: cfg.Crawler.MaxAttempts,
			BaseDelay:   cfg.Crawler.RetryBaseDelay,
			MaxDelay:    cfg.Crawler.RetryMaxDelay,
		}),
		Hasher: sha256.New(),
		Logger: a.Logger,
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	downloader, err := crawler.NewDownloader(deps)
	if err != nil {
		return fmt.Errorf("init downloader: %w", err)
	}
	a.Downloader = downloader

	planner, err := crawler.NewPlanner(downloader, a.Pages, crawler.PlannerConfig{
		PolicymakerURLTemplate: cfg.Crawler.PolicymakerURLTemplate,
		IndexHeadingPrefix:     cfg.Crawler.IndexHeadingPrefix,
		Force:                  cfg.Crawler.Force,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("init planner: %w", err)
	}
	a.Planner = planner
	return nil
}

func (a *App) buildRepository(ctx context.Context) error {
	cfg := a.Config
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		repo, err := pgstore.New(ctx, pgstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxConns), //nolint:gosec // bounded by config validation
			MinConns: int32(cfg.DB.MinConns), //nolint:gosec // bounded by config validation
		})
		if err != nil {
			return fmt.Errorf("init postgres repository: %w", err)
		}
		a.Repository = repo
		if cfg.DB.AutoMigrate {
			if err := repo.EnsureSchema(ctx); err != nil {
				return err
			}
		}
	default:
		a.Logger.Info("using in-memory repository; data is lost on exit")
		a.Repository = memorystorage.NewRepository()
	}
	return nil
}

func (a *App) buildPublisher(ctx context.Context) error {
	cfg := a.Config
	if cfg.PubSub.ProjectID == "" {
		a.Publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	pub, err := gcppublisher.New(client)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.Publisher = pub
	a.Logger.Info("publishing ingest events",
		zap.String("project", cfg.PubSub.ProjectID),
		zap.String("topic", cfg.PubSub.TopicName),
	)
	return nil
}

// Migrate creates the database schema. It is a no-op for the memory driver.
func (a *App) Migrate(ctx context.Context) error {
	migrator, ok := a.Repository.(interface{ EnsureSchema(context.Context) error })
	if !ok {
		a.Logger.Info("repository has no schema to migrate", zap.String("driver", a.Config.DB.Driver))
		return nil
	}
	if err := migrator.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.Logger.Info("schema is up to date")
	return nil
}

// Handler returns the REST API handler.
func (a *App) Handler() http.Handler {
	return api.NewServer(a.Repository, a.Config, a.Logger).Handler()
}

// Close releases every client the App opened.
func (a *App) Close() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.Logger.Warn("archive close failed", zap.Error(err))
		}
	}
	if a.Repository != nil {
		a.Repository.Close()
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
