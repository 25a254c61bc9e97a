package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Eventing      EventingConfig
	Incomplete    IncompleteConfig
	Cron          CronConfig
}

// Load reads the environment, fills the DSN from its parts when needed and
// rejects combinations that would misbehave at runtime.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		dsn, err := cfg.DB.assembleDSN()
		if err != nil {
			return nil, err
		}
		cfg.DB.DSN = dsn
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

const minProdJWTSecretLen = 32

func (c *Config) validate() error {
	var err error
	if c.Cron.JobTimeout > 0 && c.Cron.LockTTL > 0 && c.Cron.JobTimeout >= c.Cron.LockTTL {
		err = multierr.Append(err, fmt.Errorf("cron job timeout %s must be shorter than lock ttl %s", c.Cron.JobTimeout, c.Cron.LockTTL))
	}
	if c.Outbox.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("outbox max attempts must be at least 1"))
	}
	if c.Outbox.BatchSize < 1 {
		err = multierr.Append(err, fmt.Errorf("outbox batch size must be at least 1"))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.App.IsProd() && len(c.JWT.Secret) < minProdJWTSecretLen {
		err = multierr.Append(err, fmt.Errorf("%s must be at least %d characters in prod", EnvJWTSecret, minProdJWTSecretLen))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"DEALERCRM_APP_ENV" required:"true"`
	Port         string `envconfig:"DEALERCRM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"DEALERCRM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DEALERCRM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DEALERCRM_SERVICE_KIND" default:"api"`

	// MetricsAddr is the scrape listener for the workers. Empty disables it;
	// the API serves /metrics on its own port.
	MetricsAddr string `envconfig:"DEALERCRM_METRICS_ADDR"`
}

type DBConfig struct {
	DSN string `envconfig:"DEALERCRM_DB_DSN"`

	// Used only when DSN is empty.
	Host     string `envconfig:"DEALERCRM_DB_HOST"`
	Port     int    `envconfig:"DEALERCRM_DB_PORT" default:"5432"`
	User     string `envconfig:"DEALERCRM_DB_USER"`
	Password string `envconfig:"DEALERCRM_DB_PASSWORD"`
	Name     string `envconfig:"DEALERCRM_DB_NAME"`
	SSLMode  string `envconfig:"DEALERCRM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DEALERCRM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DEALERCRM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DEALERCRM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DEALERCRM_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Statements slower than this are logged at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"DEALERCRM_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DEALERCRM_REDIS_URL"`
	Address      string        `envconfig:"DEALERCRM_REDIS_ADDR"`
	Password     string        `envconfig:"DEALERCRM_REDIS_PASSWORD"`
	DB           int           `envconfig:"DEALERCRM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DEALERCRM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DEALERCRM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DEALERCRM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DEALERCRM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DEALERCRM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"DEALERCRM_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"DEALERCRM_JWT_ISSUER" default:"dealercrm"`
	ExpirationMinutes      int    `envconfig:"DEALERCRM_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"DEALERCRM_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DEALERCRM_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DEALERCRM_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DEALERCRM_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DEALERCRM_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DEALERCRM_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"DEALERCRM_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"DEALERCRM_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"DEALERCRM_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	IntakeWindow    time.Duration `envconfig:"DEALERCRM_RATE_LIMIT_INTAKE_WINDOW" default:"1m"`
	IntakeIPLimit   int           `envconfig:"DEALERCRM_RATE_LIMIT_INTAKE_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DEALERCRM_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"DEALERCRM_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"DEALERCRM_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LeadEventsTopic string `envconfig:"DEALERCRM_PUBSUB_LEAD_EVENTS_TOPIC" default:"crm-lead-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DEALERCRM_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"DEALERCRM_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"DEALERCRM_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"DEALERCRM_OUTBOX_RETENTION" default:"720h"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"DEALERCRM_IDEMPOTENCY_TTL" default:"24h"`
}

type IncompleteConfig struct {
	// Sessions idle longer than this are purged by the cron worker.
	Retention time.Duration `envconfig:"DEALERCRM_INCOMPLETE_RETENTION" default:"2160h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DEALERCRM_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"DEALERCRM_CRON_LOCK_TTL" default:"10m"`
	// JobTimeout should stay below LockTTL so a stuck job cannot outlive the lock.
	JobTimeout time.Duration `envconfig:"DEALERCRM_CRON_JOB_TIMEOUT" default:"5m"`
}

func (db DBConfig) assembleDSN() (string, error) {
	parts := []struct{ env, value string }{
		{EnvDBHost, db.Host},
		{EnvDBUser, db.User},
		{EnvDBName, db.Name},
	}
	var missing []string
	for _, p := range parts {
		if p.value == "" {
			missing = append(missing, p.env)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return u.String(), nil
}
