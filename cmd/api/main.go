package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/attaleem/api/internal/handlers"
	"github.com/attaleem/api/internal/payments"
	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/config"
	pfirestore "github.com/attaleem/api/internal/platform/firestore"
	"github.com/attaleem/api/internal/platform/idempotency"
	"github.com/attaleem/api/internal/platform/jobs"
	"github.com/attaleem/api/internal/platform/observability"
	"github.com/attaleem/api/internal/platform/secrets"
	healthRepo "github.com/attaleem/api/internal/repositories/health"
	"github.com/attaleem/api/internal/services"

	firestoreRepo "github.com/attaleem/api/internal/repositories/firestore"
	redisRepo "github.com/attaleem/api/internal/repositories/redis"
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
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithUserGetter(firebaseVerifier))

	bookRepo, err := firestoreRepo.NewBookRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise book repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	counterRepo, err := firestoreRepo.NewCounterRepository(firestoreProvider, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise counter repository", zap.Error(err))
	}
	communityRepo, err := firestoreRepo.NewCommunityRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise community repository", zap.Error(err))
	}
	cartRepo, err := redisRepo.NewCartRepository(redisClient, cfg.Redis.CartTTL)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}

	dependencyHealth, err := healthRepo.NewRepository(map[string]healthRepo.Probe{
		"firestore": firestoreRepo.HealthProbe(firestoreProvider),
		"redis":     cartRepo.HealthProbe,
	}, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}
	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		Health:      dependencyHealth,
		Version:     buildInfo.Version,
		Environment: buildInfo.Environment,
		StartedAt:   startedAt,
		Clock:       time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise system service", zap.Error(err))
	}

	var orderEvents services.OrderEventPublisher
	var mailOutbox services.MailPublisher
	if strings.TrimSpace(cfg.Jobs.ProjectID) != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Jobs.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		orderTopic := pubsubClient.Topic(cfg.Jobs.OrderEventsTopic)
		defer orderTopic.Stop()
		orderEvents, err = jobs.NewPubSubOrderEventPublisher(orderTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}

		mailTopic := pubsubClient.Topic(cfg.Jobs.MailTopic)
		defer mailTopic.Stop()
		mailOutbox, err = jobs.NewPubSubMailPublisher(mailTopic)
		if err != nil {
			logger.Fatal("failed to initialise mail publisher", zap.Error(err))
		}
	} else {
		logger.Warn("jobs project id not configured; order events and mail are disabled")
	}

	paymentsLogger := logger.Named("payments")
	sslcommerzProvider, err := payments.NewSSLCommerzProvider(payments.SSLCommerzConfig{
		StoreID:       cfg.Payments.SSLCommerz.StoreID,
		StorePassword: cfg.Payments.SSLCommerz.StorePassword,
		Sandbox:       cfg.Payments.SSLCommerz.Sandbox,
		SuccessURL:    cfg.Payments.SSLCommerz.SuccessURL,
		FailURL:       cfg.Payments.SSLCommerz.FailURL,
		CancelURL:     cfg.Payments.SSLCommerz.CancelURL,
		Logger:        eventLogger(paymentsLogger.Named("sslcommerz")),
		Clock:         time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise sslcommerz provider", zap.Error(err))
	}

	providers := map[string]payments.Provider{"sslcommerz": sslcommerzProvider}
	methodRoutes := map[string]string{
		"bkash":  "sslcommerz",
		"nagad":  "sslcommerz",
		"rocket": "sslcommerz",
		"card":   "sslcommerz",
	}
	if cfg.Features.EnableStripe {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey:     cfg.Payments.Stripe.APIKey,
			SuccessURL: cfg.Payments.Stripe.SuccessURL,
			CancelURL:  cfg.Payments.Stripe.CancelURL,
			Logger:     eventLogger(paymentsLogger.Named("stripe")),
			Clock:      time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe provider", zap.Error(err))
		}
		providers["stripe"] = stripeProvider
		methodRoutes["card"] = "stripe"
	}

	paymentManager, err := payments.NewManager(providers,
		payments.WithDefaultProvider("sslcommerz"),
		payments.WithMethodRoutes(methodRoutes),
	)
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}
	checkoutGateway, err := payments.NewCheckoutGateway(paymentManager)
	if err != nil {
		logger.Fatal("failed to initialise checkout gateway", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Books:  bookRepo,
		Clock:  time.Now,
		Logger: eventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Carts:       cartRepo,
		Books:       bookRepo,
		BundlePrice: cfg.Orders.BundlePrice,
		Clock:       time.Now,
		Logger:      eventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      orderRepo,
		Books:       bookRepo,
		Counters:    counterRepo,
		BundlePrice: cfg.Orders.BundlePrice,
		Clock:       time.Now,
		Events:      orderEvents,
		Mail:        mailOutbox,
		Logger:      eventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:   cartRepo,
		Orders:  orderService,
		Gateway: checkoutGateway,
		Clock:   time.Now,
		Logger:  eventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		idempotencyMiddleware,
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)
	bookHandlers := handlers.NewBookHandlers(catalogService)
	cartHandlers := handlers.NewCartHandlers(authenticator, cartService)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, checkoutService, paymentManager)
	orderHandlers := handlers.NewOrderHandlers(authenticator, orderService)
	adminBookHandlers := handlers.NewAdminBookHandlers(authenticator, catalogService)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(authenticator, orderService)
	webhookHandlers := handlers.NewWebhookHandlers(checkoutService, paymentManager, eventLogger(logger.Named("webhooks")))
	internalHandlers := handlers.NewInternalHandlers(orderService, cfg.Orders.PendingTTL, cfg.Orders.SweepBatchSize)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithBookRoutes(bookHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
		handlers.WithInternalRoutes(internalHandlers.Routes),
	}

	adminRegistrars := []handlers.RouteRegistrar{adminBookHandlers.Routes, adminOrderHandlers.Routes}

	if cfg.Features.EnableCommunity {
		contentService, err := services.NewContentService(services.ContentServiceDeps{
			Entries: communityRepo,
			Clock:   time.Now,
			Logger:  eventLogger(logger.Named("content")),
		})
		if err != nil {
			logger.Fatal("failed to initialise content service", zap.Error(err))
		}
		engagementService, err := services.NewEngagementService(services.EngagementServiceDeps{
			Entries: communityRepo,
			Logger:  eventLogger(logger.Named("engagement")),
		})
		if err != nil {
			logger.Fatal("failed to initialise engagement service", zap.Error(err))
		}
		communityHandlers := handlers.NewCommunityHandlers(authenticator, contentService, engagementService)
		opts = append(opts, handlers.WithCommunityRoutes(communityHandlers.Routes))
		adminRegistrars = append(adminRegistrars, communityHandlers.AdminRoutes)
	}

	opts = append(opts, handlers.WithAdminRoutes(func(r chi.Router) {
		for _, registrar := range adminRegistrars {
			registrar(r)
		}
	}))

	if oidcMiddleware := buildOIDCMiddleware(logger.Named("auth"), cfg); oidcMiddleware != nil {
		opts = append(opts, handlers.WithInternalMiddlewares(oidcMiddleware))
	}

	router := handlers.NewRouter(opts...)
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
		serverLogger.Info("attaleem api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// eventLogger adapts a zap logger to the event/fields callback the services
// and payment providers accept.
func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		Environment: environment,
		StartedAt:   started,
	}
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	if strings.TrimSpace(cfg.Security.OIDC.JWKSURL) == "" {
		return nil
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := observability.NewPrintfAdapter(logger)
	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL, auth.WithJWKSLogger(adapter))
	validator := auth.NewOIDCValidator(cache, auth.WithOIDCLogger(adapter))

	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; internal routes will reject requests")
	}
	issuers := cfg.Security.OIDC.Issuers
	if len(issuers) == 0 {
		logger.Warn("auth: OIDC issuers not configured; internal routes will reject requests")
	}

	return validator.RequireOIDC(audience, issuers)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("API_SECURITY_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	projectMap := secretProjectMapFromEnv(env)
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if pins := secretVersionPinsFromEnv(env); len(pins) > 0 {
		opts = append(opts, secrets.WithVersionPins(pins))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the config secrets that must resolve before the
// server may start. Stripe is only required when the feature flag enables it.
func requiredSecretNames(env map[string]string) []string {
	required := []string{"Payments.SSLCommerz.StorePassword"}
	if env != nil {
		switch strings.ToLower(strings.TrimSpace(env["API_FEATURE_STRIPE"])) {
		case "true", "1", "yes", "on":
			required = append(required, "Payments.Stripe.APIKey")
		}
	}
	return required
}

func secretProjectMapFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_PROJECT_IDS"]
	}
	raw = strings.TrimSpace(raw)
	projects := make(map[string]string)
	if raw == "" {
		return projects
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envLabel := strings.ToLower(strings.TrimSpace(parts[0]))
		project := strings.TrimSpace(parts[1])
		if envLabel == "" || project == "" {
			continue
		}
		projects[envLabel] = project
	}
	return projects
}

func secretVersionPinsFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_VERSION_PINS"]
	}
	raw = strings.TrimSpace(raw)
	pins := make(map[string]string)
	if raw == "" {
		return pins
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		version := strings.TrimSpace(parts[1])
		if name == "" || version == "" {
			continue
		}
		pins[name] = version
	}
	return pins
}
