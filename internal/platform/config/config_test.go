package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "attaleem-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "attaleem-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Jobs.ProjectID != "attaleem-dev" {
		t.Errorf("expected jobs project to default to firebase project, got %s", cfg.Jobs.ProjectID)
	}
	if cfg.Jobs.OrderEventsTopic != defaultOrderEventsTopic {
		t.Errorf("unexpected default order events topic: %s", cfg.Jobs.OrderEventsTopic)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected default redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Redis.CartTTL != defaultCartTTL {
		t.Errorf("unexpected default cart ttl: %s", cfg.Redis.CartTTL)
	}
	if cfg.Orders.Currency != "BDT" {
		t.Errorf("unexpected default currency: %s", cfg.Orders.Currency)
	}
	if cfg.Orders.PendingTTL != defaultOrderPendingTTL {
		t.Errorf("unexpected default pending ttl: %s", cfg.Orders.PendingTTL)
	}
	if !cfg.Payments.SSLCommerz.Sandbox {
		t.Errorf("expected sandbox mode by default")
	}
	if cfg.RateLimits.DefaultPerMinute != 120 {
		t.Errorf("unexpected default rate limit: %d", cfg.RateLimits.DefaultPerMinute)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default security environment local, got %s", cfg.Security.Environment)
	}
	if cfg.Security.OIDC.JWKSURL != defaultOIDCJWKSURL {
		t.Errorf("expected default jwks url %s, got %s", defaultOIDCJWKSURL, cfg.Security.OIDC.JWKSURL)
	}
	if len(cfg.Security.OIDC.Issuers) != 2 {
		t.Errorf("expected default issuers, got %v", cfg.Security.OIDC.Issuers)
	}
	if cfg.Idempotency.Header != defaultIdempotencyHeader {
		t.Errorf("expected default idempotency header, got %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != defaultIdempotencyTTL {
		t.Errorf("unexpected default idempotency ttl: %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupBatchSize != defaultIdempotencyBatchSize {
		t.Errorf("unexpected default cleanup batch size: %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":                        "9090",
		"API_SERVER_READ_TIMEOUT":                "20s",
		"API_SERVER_WRITE_TIMEOUT":               "25s",
		"API_SERVER_IDLE_TIMEOUT":                "2m",
		"API_FIREBASE_PROJECT_ID":                "attaleem-prod",
		"API_FIRESTORE_PROJECT_ID":               "attaleem-fire",
		"API_REDIS_ADDR":                         "redis.internal:6380",
		"API_REDIS_PASSWORD":                     "secret://redis/password",
		"API_REDIS_CART_TTL":                     "72h",
		"API_PAYMENTS_SSLCOMMERZ_STORE_ID":       "attaleem-live",
		"API_PAYMENTS_SSLCOMMERZ_STORE_PASSWORD": "secret://sslcommerz/password",
		"API_PAYMENTS_SSLCOMMERZ_SANDBOX":        "false",
		"API_PAYMENTS_STRIPE_API_KEY":            "secret://stripe/api",
		"API_ORDERS_CURRENCY":                    "BDT",
		"API_ORDERS_BUNDLE_PRICE":                "1000",
		"API_ORDERS_PENDING_TTL":                 "24h",
		"API_ORDERS_SWEEP_BATCH":                 "50",
		"API_JOBS_ORDER_EVENTS_TOPIC":            "orders-prod",
		"API_MAIL_FROM_ADDRESS":                  "orders@attaleem.example",
		"API_RATELIMIT_DEFAULT_PER_MIN":          "150",
		"API_RATELIMIT_AUTH_PER_MIN":             "300",
		"API_RATELIMIT_WEBHOOK_BURST":            "80",
		"API_FEATURE_COMMUNITY":                  "false",
		"API_FEATURE_STRIPE":                     "true",
		"API_SECURITY_ENVIRONMENT":               "prod",
		"API_SECURITY_OIDC_AUDIENCE":             "https://service.example.com",
		"API_SECURITY_OIDC_ISSUERS":              "https://accounts.google.com, https://cloud.google.com/iap",
		"API_SECURITY_OIDC_JWKS_URL":             "https://example.com/jwks.json",
		"API_IDEMPOTENCY_HEADER":                 "X-Idem-Key",
		"API_IDEMPOTENCY_TTL":                    "48h",
		"API_IDEMPOTENCY_CLEANUP_INTERVAL":       "30m",
		"API_IDEMPOTENCY_CLEANUP_BATCH":          "500",
	}

	secrets := map[string]string{
		"secret://sslcommerz/password": "store-pass",
		"secret://stripe/api":          "stripe-key",
		"secret://redis/password":      "redis-pass",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("unexpected redis addr %s", cfg.Redis.Addr)
	}
	if cfg.Redis.Password != "redis-pass" {
		t.Errorf("expected resolved redis password, got %s", cfg.Redis.Password)
	}
	if cfg.Redis.CartTTL != 72*time.Hour {
		t.Errorf("unexpected cart ttl %s", cfg.Redis.CartTTL)
	}
	if cfg.Payments.SSLCommerz.StorePassword != "store-pass" {
		t.Errorf("expected resolved store password, got %s", cfg.Payments.SSLCommerz.StorePassword)
	}
	if cfg.Payments.SSLCommerz.Sandbox {
		t.Errorf("expected sandbox disabled")
	}
	if cfg.Payments.Stripe.APIKey != "stripe-key" {
		t.Errorf("expected resolved stripe api key, got %s", cfg.Payments.Stripe.APIKey)
	}
	if cfg.Orders.BundlePrice != 1000 {
		t.Errorf("unexpected bundle price %d", cfg.Orders.BundlePrice)
	}
	if cfg.Orders.PendingTTL != 24*time.Hour {
		t.Errorf("unexpected pending ttl %s", cfg.Orders.PendingTTL)
	}
	if cfg.Orders.SweepBatchSize != 50 {
		t.Errorf("unexpected sweep batch %d", cfg.Orders.SweepBatchSize)
	}
	if cfg.Jobs.OrderEventsTopic != "orders-prod" {
		t.Errorf("unexpected order events topic %s", cfg.Jobs.OrderEventsTopic)
	}
	if cfg.Mail.FromAddress != "orders@attaleem.example" {
		t.Errorf("unexpected mail from address %s", cfg.Mail.FromAddress)
	}
	if cfg.Features.EnableCommunity {
		t.Errorf("expected community flag disabled")
	}
	if !cfg.Features.EnableStripe {
		t.Errorf("expected stripe flag enabled")
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected security environment prod, got %s", cfg.Security.Environment)
	}
	if cfg.Security.OIDC.Audience != "https://service.example.com" {
		t.Errorf("unexpected oidc audience %s", cfg.Security.OIDC.Audience)
	}
	if cfg.Security.OIDC.JWKSURL != "https://example.com/jwks.json" {
		t.Errorf("unexpected jwks url %s", cfg.Security.OIDC.JWKSURL)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" {
		t.Errorf("unexpected idempotency header %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
	if cfg.Idempotency.CleanupInterval != 30*time.Minute {
		t.Errorf("unexpected cleanup interval %s", cfg.Idempotency.CleanupInterval)
	}
	if cfg.Idempotency.CleanupBatchSize != 500 {
		t.Errorf("unexpected cleanup batch size %d", cfg.Idempotency.CleanupBatchSize)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIREBASE_PROJECT_ID=attaleem-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firebase.ProjectID != "attaleem-dot" {
		t.Errorf("expected firebase project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":     "attaleem-dev",
		"API_PAYMENTS_STRIPE_API_KEY": "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIREBASE_PROJECT_ID=dot-project\nAPI_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("API_FIREBASE_PROJECT_ID", "os-project")
	t.Setenv("API_SECRET_PROJECT_IDS", "prod=project-prod")

	overrides := map[string]string{
		"API_FIREBASE_PROJECT_ID": "override-project",
		"API_SECRET_VERSION_PINS": "secret://stripe/api=5",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["API_FIREBASE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["API_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["API_SECRET_PROJECT_IDS"]; got != "prod=project-prod" {
		t.Fatalf("expected system env project map, got %s", got)
	}
	if got := values["API_SECRET_VERSION_PINS"]; got != "secret://stripe/api=5" {
		t.Fatalf("expected override version pin, got %s", got)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "attaleem-dev",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Payments.SSLCommerz.StorePassword"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error, got nil")
	}
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	expectedRedacted := redactSecretName("Payments.SSLCommerz.StorePassword")
	if got := missing.RedactedNames(); len(got) != 1 || got[0] != expectedRedacted {
		t.Fatalf("unexpected redacted names %v", got)
	}
}

func TestLoadMissingRequiredSecretsPanic(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "attaleem-dev",
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when required secrets missing")
		}
		missing, ok := rec.(*MissingSecretsError)
		if !ok {
			t.Fatalf("expected MissingSecretsError panic, got %T", rec)
		}
		if len(missing.Names()) != 1 || missing.Names()[0] != "Payments.SSLCommerz.StorePassword" {
			t.Fatalf("unexpected missing secrets %v", missing.Names())
		}
	}()

	Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Payments.SSLCommerz.StorePassword"),
		WithPanicOnMissingSecrets(),
	)
}

func TestLoadSupportsLegacySecretScheme(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":                "attaleem-dev",
		"API_PAYMENTS_SSLCOMMERZ_STORE_PASSWORD": "sm://sslcommerz/password",
	}

	secrets := map[string]string{
		"secret://sslcommerz/password": "legacy-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errors.New("not found")}
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Payments.SSLCommerz.StorePassword != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %s", cfg.Payments.SSLCommerz.StorePassword)
	}
}
