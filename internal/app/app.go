// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/clock/system"
	"github.com/LeoVertizBP/content-scan-engine/internal/config"
	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
	sha256hash "github.com/LeoVertizBP/content-scan-engine/internal/hash/sha256"
	uuidgen "github.com/LeoVertizBP/content-scan-engine/internal/id/uuid"
	"github.com/LeoVertizBP/content-scan-engine/internal/ingest"
	"github.com/LeoVertizBP/content-scan-engine/internal/logging"
	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
	"github.com/LeoVertizBP/content-scan-engine/internal/monitor"
	notifymem "github.com/LeoVertizBP/content-scan-engine/internal/notify/memory"
	notifypubsub "github.com/LeoVertizBP/content-scan-engine/internal/notify/pubsub"
	"github.com/LeoVertizBP/content-scan-engine/internal/orchestrator"
	"github.com/LeoVertizBP/content-scan-engine/internal/platform"
	"github.com/LeoVertizBP/content-scan-engine/internal/provider/apify"
	providermem "github.com/LeoVertizBP/content-scan-engine/internal/provider/memory"
	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
	"github.com/LeoVertizBP/content-scan-engine/internal/sitemap"
	"github.com/LeoVertizBP/content-scan-engine/internal/storage/gcs"
	storagemem "github.com/LeoVertizBP/content-scan-engine/internal/storage/memory"
	"github.com/LeoVertizBP/content-scan-engine/internal/storage/postgres"
	"github.com/LeoVertizBP/content-scan-engine/internal/webcrawl"
)

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and passed to the components that need it.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Jobs         scan.JobStore
	Content      scan.ContentStore
	Blobs        scan.BlobStore
	Provider     scan.Provider
	Notifier     scan.Notifier
	Orchestrator *orchestrator.Orchestrator
	Monitor      *monitor.Monitor
	Crawler      *webcrawl.Crawler
	Sitemap      *sitemap.Resolver

	closers []func() error
}

// New creates and wires all services from configuration. It fails fast if
// any critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{Config: cfg, Logger: logger}

	if err := a.initStores(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.initProvider(cfg); err != nil {
		return nil, err
	}
	if err := a.initNotifier(ctx, cfg); err != nil {
		return nil, err
	}

	clock := system.New()
	ids := uuidgen.New()
	hasher := sha256hash.New()

	pipeline := ingest.New(
		platform.DefaultRegistry(),
		a.Provider,
		fetch.NewClient(fetch.Config{
			Timeout:      cfg.CrawlTimeout(),
			UserAgent:    cfg.Crawler.UserAgent,
			MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
		}),
		a.Content,
		a.Blobs,
		a.Notifier,
		hasher,
		clock,
		ids,
		ingest.Config{BlobPrefix: cfg.Storage.Prefix},
		logger.Named("ingest"),
	)

	a.Orchestrator = orchestrator.New(a.Jobs, a.Provider, ids, clock, logger.Named("orchestrator"))
	a.Monitor = monitor.New(a.Jobs, a.Provider, pipeline, a.Orchestrator,
		monitor.Config{Interval: cfg.PollInterval()}, logger.Named("monitor"))

	crawlClient := fetch.NewClient(fetch.Config{
		Timeout:      cfg.CrawlTimeout(),
		UserAgent:    cfg.Crawler.UserAgent,
		MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
	})
	a.Crawler = webcrawl.New(crawlClient, logger.Named("webcrawl"))
	a.Sitemap = sitemap.New(crawlClient, logger.Named("sitemap"))

	logger.Info("application services initialized",
		zap.String("db", cfg.DB.Kind),
		zap.String("storage", cfg.Storage.Kind),
		zap.String("provider", cfg.Provider.Kind),
		zap.String("notify", cfg.Notify.Kind),
	)
	return a, nil
}

func (a *App) initStores(ctx context.Context, cfg config.Config) error {
	switch cfg.DB.Kind {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: time.Hour,
		})
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		jobs, err := postgres.NewJobStore(pool)
		if err != nil {
			return fmt.Errorf("init job store: %w", err)
		}
		content, err := postgres.NewContentStore(pool)
		if err != nil {
			return fmt.Errorf("init content store: %w", err)
		}
		a.Jobs = jobs
		a.Content = content
	case "memory":
		a.Jobs = storagemem.NewJobStore()
		a.Content = storagemem.NewContentStore()
	default:
		return fmt.Errorf("unknown db kind %q", cfg.DB.Kind)
	}

	switch cfg.Storage.Kind {
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		blobs, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("init blob store: %w", err)
		}
		a.Blobs = blobs
	case "memory":
		a.Blobs = storagemem.NewBlobStore()
	default:
		return fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
	}
	return nil
}

func (a *App) initProvider(cfg config.Config) error {
	switch cfg.Provider.Kind {
	case "apify":
		actorIDs := make(map[scan.Platform]string, len(cfg.Provider.ActorIDs))
		for platformName, actorID := range cfg.Provider.ActorIDs {
			actorIDs[scan.Platform(platformName)] = actorID
		}
		client, err := apify.New(apify.Config{
			BaseURL:  cfg.Provider.BaseURL,
			APIToken: cfg.Provider.APIToken,
			Timeout:  cfg.ProviderTimeout(),
			ActorIDs: actorIDs,
		}, a.Logger.Named("apify"))
		if err != nil {
			return fmt.Errorf("init apify provider: %w", err)
		}
		a.Provider = client
	case "memory":
		a.Provider = providermem.New()
	default:
		return fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
	return nil
}

func (a *App) initNotifier(ctx context.Context, cfg config.Config) error {
	switch cfg.Notify.Kind {
	case "pubsub":
		notifier, err := notifypubsub.New(ctx, notifypubsub.Config{
			ProjectID: cfg.Notify.ProjectID,
			TopicID:   cfg.Notify.TopicName,
		}, a.Logger.Named("pubsub"))
		if err != nil {
			return fmt.Errorf("init pubsub notifier: %w", err)
		}
		a.closers = append(a.closers, notifier.Close)
		a.Notifier = notifier
	case "memory":
		a.Notifier = notifymem.New()
	default:
		return fmt.Errorf("unknown notify kind %q", cfg.Notify.Kind)
	}
	return nil
}

// Close releases every service that holds external resources.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return firstErr
}
