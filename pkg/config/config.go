package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Catalog      CatalogConfig
	Settlement   SettlementConfig
	Admin        AdminConfig
	AliExpress   AliExpressConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Webhooks     WebhooksConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DROPMART_APP_ENV" required:"true"`
	Port         string `envconfig:"DROPMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DROPMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DROPMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DROPMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DROPMART_DB_DSN"`
	Driver string `envconfig:"DROPMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DROPMART_DB_HOST"`
	LegacyPort     int    `envconfig:"DROPMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DROPMART_DB_USER"`
	LegacyPassword string `envconfig:"DROPMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"DROPMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"DROPMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DROPMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DROPMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DROPMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DROPMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite (local runs only).
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"DROPMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DROPMART_REDIS_ADDR"`
	Password     string        `envconfig:"DROPMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"DROPMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DROPMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DROPMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DROPMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DROPMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DROPMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DROPMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DROPMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DROPMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DROPMART_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"DROPMART_STRIPE_API_KEY"`
	Secret         string        `envconfig:"DROPMART_STRIPE_SECRET"`
	Env            string        `envconfig:"DROPMART_STRIPE_ENV" default:"test"`
	Currency       string        `envconfig:"DROPMART_STRIPE_CURRENCY" default:"usd"`
	RequestTimeout time.Duration `envconfig:"DROPMART_STRIPE_REQUEST_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CurrencyCode returns the lower-case ISO currency used for charges and transfers.
func (s StripeConfig) CurrencyCode() string {
	c := strings.TrimSpace(strings.ToLower(s.Currency))
	if c == "" {
		return "usd"
	}
	return c
}

type CatalogConfig struct {
	SlugMaxAttempts int `envconfig:"DROPMART_CATALOG_SLUG_MAX_ATTEMPTS" default:"5000"`
}

type SettlementConfig struct {
	PayoutConcurrency int `envconfig:"DROPMART_SETTLEMENT_PAYOUT_CONCURRENCY" default:"4"`
}

type AdminConfig struct {
	Email string `envconfig:"DROPMART_ADMIN_EMAIL"`
}

type AliExpressConfig struct {
	AppKey     string        `envconfig:"DROPMART_ALIEXPRESS_APP_KEY"`
	AppSecret  string        `envconfig:"DROPMART_ALIEXPRESS_APP_SECRET"`
	TrackingID string        `envconfig:"DROPMART_ALIEXPRESS_TRACKING_ID"`
	BaseURL    string        `envconfig:"DROPMART_ALIEXPRESS_BASE_URL" default:"https://api-sg.aliexpress.com/sync"`
	Timeout    time.Duration `envconfig:"DROPMART_ALIEXPRESS_TIMEOUT" default:"10s"`
}

// Enabled reports whether affiliate credentials are configured.
func (a AliExpressConfig) Enabled() bool {
	return strings.TrimSpace(a.AppKey) != "" && strings.TrimSpace(a.AppSecret) != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DROPMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DROPMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DROPMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"DROPMART_PUBSUB_EVENTS_TOPIC" default:"dropmart-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DROPMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DROPMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DROPMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"DROPMART_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"DROPMART_CRON_INTERVAL" default:"15m"`
	PendingOrderTTL time.Duration `envconfig:"DROPMART_CRON_PENDING_ORDER_TTL" default:"48h"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"DROPMART_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout     time.Duration `envconfig:"DROPMART_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"DROPMART_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"DROPMART_HTTP_SHUTDOWN_TIMEOUT" default:"20s"`
}

type WebhooksConfig struct {
	IdempotencyTTL     time.Duration `envconfig:"DROPMART_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	SupplierRateLimit  int64         `envconfig:"DROPMART_WEBHOOK_SUPPLIER_RATE_LIMIT" default:"600"`
	SupplierRateWindow time.Duration `envconfig:"DROPMART_WEBHOOK_SUPPLIER_RATE_WINDOW" default:"1m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:dropmart.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
