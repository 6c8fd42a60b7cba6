package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/handlers"
	"github.com/storefront/seo-api/internal/platform/auth"
	"github.com/storefront/seo-api/internal/platform/config"
	pfirestore "github.com/storefront/seo-api/internal/platform/firestore"
	"github.com/storefront/seo-api/internal/platform/jobs"
	"github.com/storefront/seo-api/internal/platform/observability"
	"github.com/storefront/seo-api/internal/platform/requestctx"
	"github.com/storefront/seo-api/internal/platform/secrets"
	platformstorage "github.com/storefront/seo-api/internal/platform/storage"
	"github.com/storefront/seo-api/internal/repositories"
	firestoreRepo "github.com/storefront/seo-api/internal/repositories/firestore"
	"github.com/storefront/seo-api/internal/services"
)

const (
	instrumentationName = "github.com/storefront/seo-api"
	shutdownTimeout     = 10 * time.Second
	sitemapCacheControl = "public, max-age=3600"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = requestctx.WithLogger(ctx, logger)

	lookup, err := config.Lookup()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, lookup)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(lookup, cfg, startedAt)
	meter := otel.Meter(instrumentationName)
	tracer := otel.Tracer(instrumentationName)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	seoRepo, err := firestoreRepo.NewSEORepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise seo repository", zap.Error(err))
	}
	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	categoryRepo, err := firestoreRepo.NewCategoryRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise category repository", zap.Error(err))
	}

	var (
		eventPublisher *jobs.PubSubSEOEventPublisher
		seoTopic       *pubsub.Topic
	)
	if topicID := strings.TrimSpace(cfg.PubSub.SEOTopic); topicID != "" {
		if host := strings.TrimSpace(cfg.PubSub.EmulatorHost); host != "" {
			_ = os.Setenv("PUBSUB_EMULATOR_HOST", host)
		}
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		seoTopic = pubsubClient.Topic(topicID)
		eventPublisher, err = jobs.NewPubSubSEOEventPublisher(seoTopic)
		if err != nil {
			logger.Fatal("failed to initialise seo event publisher", zap.Error(err))
		}
		defer eventPublisher.Stop()
	} else {
		logger.Info("seo events disabled; API_PUBSUB_SEO_TOPIC not set")
	}

	var sitemapWriter *platformstorage.ObjectWriter
	if bucket := strings.TrimSpace(cfg.Storage.ExportsBucket); bucket != "" {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		sitemapWriter, err = platformstorage.NewObjectWriter(storageClient, bucket, platformstorage.WithCacheControl(sitemapCacheControl))
		if err != nil {
			logger.Fatal("failed to initialise sitemap writer", zap.Error(err))
		}
	} else {
		logger.Info("sitemap publication disabled; API_STORAGE_EXPORTS_BUCKET not set")
	}

	seoDeps := services.SEOServiceDeps{
		Repository: seoRepo,
		Products:   productRepo,
		Categories: categoryRepo,
		Settings: services.SEOSettings{
			BaseDomain:      cfg.SEO.BaseDomain,
			SiteName:        cfg.SEO.SiteName,
			DefaultCurrency: cfg.SEO.DefaultCurrency,
			SocialHandle:    cfg.SEO.SocialHandle,
			BulkConcurrency: cfg.SEO.BulkConcurrency,
			AuditThreshold:  cfg.SEO.AuditThreshold,
			SitemapPrefix:   cfg.Storage.SitemapPrefix,
			Analytics: domain.SEOAnalytics{
				GoogleAnalyticsID:  cfg.SEO.Analytics.GoogleAnalyticsID,
				GoogleTagManagerID: cfg.SEO.Analytics.GoogleTagManagerID,
				FacebookPixelID:    cfg.SEO.Analytics.FacebookPixelID,
			},
		},
		Clock:  time.Now,
		Logger: logger.Named("seo"),
		Meter:  meter,
		Tracer: tracer,
	}
	if eventPublisher != nil {
		seoDeps.Events = eventPublisher
	}
	if sitemapWriter != nil {
		seoDeps.Sitemaps = sitemapWriter
	}
	seoService, err := services.NewSEOService(seoDeps)
	if err != nil {
		logger.Fatal("failed to initialise seo service", zap.Error(err))
	}

	systemService, err := newSystemService(firestoreProvider, sitemapWriter, seoTopic, fetcher, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	httpMetrics, err := observability.NewHTTPMetrics(meter)
	if err != nil {
		logger.Fatal("failed to initialise http metrics", zap.Error(err))
	}

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(httpMetrics),
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(buildInfo)}
	if systemService != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(systemService))
	}
	healthHandlers := handlers.NewHealthHandlers(healthOpts...)
	seoHandlers := handlers.NewSEOHandlers(authenticator, seoService, handlers.WithSEOStaffRoles(cfg.Security.StaffRoles...))

	router := handlers.NewRouter(
		handlers.WithRequestTimeout(cfg.Server.RequestTimeout),
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithSEORoutes(seoHandlers.Routes),
		handlers.WithSEOMiddlewares(middleware.AllowContentType("application/json")),
		handlers.WithRootRoutes(seoHandlers.RootRoutes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("seo api listening", zap.String("environment", buildInfo.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(lookup func(string) string, cfg config.Config, started time.Time) services.BuildInfo {
	version := lookup("API_BUILD_VERSION")
	if version == "" {
		version = "dev"
	}
	commit := lookup("API_BUILD_COMMIT_SHA")
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newSystemService(provider *pfirestore.Provider, writer *platformstorage.ObjectWriter, topic *pubsub.Topic, fetcher *secrets.Fetcher, build services.BuildInfo) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 4)
	if provider != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				return provider.Ping(ctx, firestoreRepo.SEOMetadataCollection)
			},
		})
	}
	if writer != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "storage",
			Timeout: 1500 * time.Millisecond,
			Check:   writer.Ping,
		})
	}
	if topic != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, lookup func(string) string) (*secrets.Fetcher, error) {
	project := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if project == "" {
		project = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
		secrets.WithMeter(otel.Meter(instrumentationName)),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}
