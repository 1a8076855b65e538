package config

const (
	// EnvPrefix is the shared prefix of every configuration variable.
	EnvPrefix = "DROPMART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DROPMART_APP_ENV"
	EnvPort     = "DROPMART_APP_PORT"
	EnvLogLevel = "DROPMART_LOG_LEVEL"

	EnvDBDSN    = "DROPMART_DB_DSN"
	EnvDBDriver = "DROPMART_DB_DRIVER"
	EnvDBHost   = "DROPMART_DB_HOST"
	EnvDBUser   = "DROPMART_DB_USER"
	EnvDBName   = "DROPMART_DB_NAME"

	EnvRedisURL = "DROPMART_REDIS_URL"

	EnvJWTSecret  = "DROPMART_JWT_SECRET"
	EnvJWTIssuer  = "DROPMART_JWT_ISSUER"
	EnvJWTExpMins = "DROPMART_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey         = "DROPMART_STRIPE_API_KEY"
	EnvStripeSecret         = "DROPMART_STRIPE_SECRET"
	EnvStripeEnv            = "DROPMART_STRIPE_ENV"
	EnvStripeCurrency       = "DROPMART_STRIPE_CURRENCY"
	EnvStripeRequestTimeout = "DROPMART_STRIPE_REQUEST_TIMEOUT"

	EnvSlugMaxAttempts    = "DROPMART_CATALOG_SLUG_MAX_ATTEMPTS"
	EnvPayoutConcurrency  = "DROPMART_SETTLEMENT_PAYOUT_CONCURRENCY"
	EnvAdminEmail         = "DROPMART_ADMIN_EMAIL"
	EnvPendingOrderTTL    = "DROPMART_CRON_PENDING_ORDER_TTL"
	EnvWebhookIdemTTL     = "DROPMART_WEBHOOK_IDEMPOTENCY_TTL"
	EnvGCPProjectID       = "DROPMART_GCP_PROJECT_ID"
	EnvPubSubEventsTopic  = "DROPMART_PUBSUB_EVENTS_TOPIC"
	EnvAliExpressAppKey   = "DROPMART_ALIEXPRESS_APP_KEY"
	EnvAliExpressSecret   = "DROPMART_ALIEXPRESS_APP_SECRET"
	EnvAliExpressTracking = "DROPMART_ALIEXPRESS_TRACKING_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
