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
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	Firebase     FirebaseConfig
	Dispatch     DispatchConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string        `envconfig:"PUSHRELAY_APP_ENV" required:"true"`
	Port           string        `envconfig:"PUSHRELAY_APP_PORT" required:"true"`
	LogLevel       string        `envconfig:"PUSHRELAY_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"PUSHRELAY_LOG_WARN_STACK" default:"false"`
	LogFormat      string        `envconfig:"PUSHRELAY_LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"PUSHRELAY_REQUEST_TIMEOUT" default:"30s"`
	CORSOrigins    []string      `envconfig:"PUSHRELAY_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PUSHRELAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"PUSHRELAY_DB_DSN"`
	SQLitePath string `envconfig:"PUSHRELAY_SQLITE_PATH" default:"pushrelay.db"`

	LegacyHost     string `envconfig:"PUSHRELAY_DB_HOST"`
	LegacyPort     int    `envconfig:"PUSHRELAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PUSHRELAY_DB_USER"`
	LegacyPassword string `envconfig:"PUSHRELAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PUSHRELAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PUSHRELAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PUSHRELAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PUSHRELAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PUSHRELAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PUSHRELAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PUSHRELAY_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PUSHRELAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PUSHRELAY_REDIS_ADDR"`
	Password     string        `envconfig:"PUSHRELAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PUSHRELAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PUSHRELAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PUSHRELAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PUSHRELAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PUSHRELAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PUSHRELAY_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"PUSHRELAY_REDIS_KEY_PREFIX" default:"pr"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PUSHRELAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PUSHRELAY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PUSHRELAY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RateLimitConfig struct {
	SendWindow time.Duration `envconfig:"PUSHRELAY_RATE_LIMIT_SEND_WINDOW" default:"1m"`
	SendLimit  int           `envconfig:"PUSHRELAY_RATE_LIMIT_SEND_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PUSHRELAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PUSHRELAY_AUTO_MIGRATE" default:"false"`
	// DryRunOnly forces every dispatch into dry-run mode.
	DryRunOnly bool `envconfig:"PUSHRELAY_DRY_RUN_ONLY" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL     time.Duration `envconfig:"PUSHRELAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL time.Duration `envconfig:"PUSHRELAY_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PUSHRELAY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PUSHRELAY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PUSHRELAY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirebaseConfig struct {
	ProjectID       string `envconfig:"PUSHRELAY_FIREBASE_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PUSHRELAY_FIREBASE_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"PUSHRELAY_FIREBASE_CREDENTIALS_FILE"`
}

type DispatchConfig struct {
	MaxBatchSize int    `envconfig:"PUSHRELAY_DISPATCH_MAX_BATCH_SIZE" default:"500"`
	WebIcon      string `envconfig:"PUSHRELAY_DISPATCH_WEB_ICON" default:"/icon-192x192.png"`
	WebBadge     string `envconfig:"PUSHRELAY_DISPATCH_WEB_BADGE" default:"/badge-72x72.png"`
}

type PubSubConfig struct {
	SendTopic        string `envconfig:"PUSHRELAY_PUBSUB_SEND_TOPIC" default:"push-send-requests"`
	SendSubscription string `envconfig:"PUSHRELAY_PUBSUB_SEND_SUBSCRIPTION" default:"push-send-requests-worker"`
	MaxOutstanding   int    `envconfig:"PUSHRELAY_PUBSUB_MAX_OUTSTANDING" default:"32"`
	ReceiveWorkers   int    `envconfig:"PUSHRELAY_PUBSUB_RECEIVE_WORKERS" default:"2"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"PUSHRELAY_CRON_INTERVAL" default:"24h"`
	LockTTL       time.Duration `envconfig:"PUSHRELAY_CRON_LOCK_TTL" default:"10m"`
	JobTimeout    time.Duration `envconfig:"PUSHRELAY_CRON_JOB_TIMEOUT" default:"5m"`
	RetentionDays int           `envconfig:"PUSHRELAY_CRON_RETENTION_DAYS" default:"90"`
}

// Retention returns the sent-notification retention window; zero disables cleanup.
func (c CronConfig) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
