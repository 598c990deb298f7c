package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Dispatch  DispatchConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	BigQuery  BigQueryConfig
	Outbox    OutboxConfig
	Jobs      JobsConfig
	Positions PositionsConfig

	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"RAPIDUS_APP_ENV" required:"true"`
	Port         string `envconfig:"RAPIDUS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RAPIDUS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RAPIDUS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RAPIDUS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RAPIDUS_DB_DSN"`
	Driver string `envconfig:"RAPIDUS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RAPIDUS_DB_HOST"`
	LegacyPort     int    `envconfig:"RAPIDUS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RAPIDUS_DB_USER"`
	LegacyPassword string `envconfig:"RAPIDUS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RAPIDUS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RAPIDUS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RAPIDUS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RAPIDUS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RAPIDUS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RAPIDUS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"RAPIDUS_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RAPIDUS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RAPIDUS_REDIS_ADDR"`
	Password     string        `envconfig:"RAPIDUS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RAPIDUS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RAPIDUS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RAPIDUS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RAPIDUS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RAPIDUS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RAPIDUS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret               string `envconfig:"RAPIDUS_JWT_SECRET" required:"true"`
	Issuer               string `envconfig:"RAPIDUS_JWT_ISSUER" required:"true"`
	ExpirationMinutes    int    `envconfig:"RAPIDUS_JWT_EXPIRATION_MINUTES" default:"720"`
	RefreshTokenTTLHours int    `envconfig:"RAPIDUS_JWT_REFRESH_TTL_HOURS" default:"168"`
}

func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTokenTTLHours) * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RAPIDUS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RAPIDUS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RAPIDUS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RAPIDUS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RAPIDUS_ARGON_KEY_LEN" default:"32"`
}

// DispatchConfig carries the fallback commission applied when a courier has
// no commission config of their own.
type DispatchConfig struct {
	DefaultCommissionPercent int `envconfig:"RAPIDUS_DISPATCH_DEFAULT_COMMISSION_PERCENT" default:"20"`
	DefaultFixedFeeCents     int `envconfig:"RAPIDUS_DISPATCH_DEFAULT_FIXED_FEE_CENTS" default:"0"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RAPIDUS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RAPIDUS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RAPIDUS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DeliveriesTopic           string `envconfig:"RAPIDUS_PUBSUB_DELIVERIES_TOPIC" default:"rapidus-delivery-events"`
	RealtimeSubscription      string `envconfig:"RAPIDUS_PUBSUB_REALTIME_SUBSCRIPTION" required:"true"`
	NotificationsSubscription string `envconfig:"RAPIDUS_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription     string `envconfig:"RAPIDUS_PUBSUB_ANALYTICS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"RAPIDUS_BIGQUERY_DATASET" default:"rapidus"`
	SettlementsTable string `envconfig:"RAPIDUS_BIGQUERY_SETTLEMENTS_TABLE" default:"delivery_settlements"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"RAPIDUS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"RAPIDUS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"RAPIDUS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"RAPIDUS_OUTBOX_IDEMPOTENCY_TTL" default:"48h"`
}

type JobsConfig struct {
	Interval           time.Duration `envconfig:"RAPIDUS_JOBS_INTERVAL" default:"10m"`
	StaleAssignedAfter time.Duration `envconfig:"RAPIDUS_JOBS_STALE_ASSIGNED_AFTER" default:"30m"`
	OutboxRetention    time.Duration `envconfig:"RAPIDUS_JOBS_OUTBOX_RETENTION" default:"168h"`
	NotificationMaxAge time.Duration `envconfig:"RAPIDUS_JOBS_NOTIFICATION_MAX_AGE" default:"720h"`
}

// AuthRateLimitConfig throttles credential-bearing endpoints. Zero limits
// disable the corresponding counter.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RAPIDUS_AUTH_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"RAPIDUS_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"RAPIDUS_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"RAPIDUS_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"RAPIDUS_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"RAPIDUS_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

// PositionsConfig governs the best-effort courier position cache.
type PositionsConfig struct {
	TTL time.Duration `envconfig:"RAPIDUS_POSITIONS_TTL" default:"5m"`
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
