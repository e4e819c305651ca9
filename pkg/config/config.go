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
	WebPush      WebPushConfig
	SSE          SSEConfig
	Hooks        HooksConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Eventing     EventingConfig
	Retention    RetentionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.WebPush.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MORTARLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"MORTARLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MORTARLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MORTARLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MORTARLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MORTARLINE_DB_DSN"`
	Driver string `envconfig:"MORTARLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MORTARLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"MORTARLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MORTARLINE_DB_USER"`
	LegacyPassword string `envconfig:"MORTARLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MORTARLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MORTARLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MORTARLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MORTARLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MORTARLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MORTARLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MORTARLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MORTARLINE_REDIS_ADDR"`
	Password     string        `envconfig:"MORTARLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MORTARLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MORTARLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MORTARLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MORTARLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MORTARLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MORTARLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MORTARLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MORTARLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MORTARLINE_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"MORTARLINE_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the session record TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MORTARLINE_AUTO_MIGRATE" default:"false"`
}

// WebPushConfig carries the VAPID key pair used to sign push deliveries.
type WebPushConfig struct {
	VAPIDPublicKey  string        `envconfig:"MORTARLINE_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `envconfig:"MORTARLINE_VAPID_PRIVATE_KEY"`
	Subscriber      string        `envconfig:"MORTARLINE_WEBPUSH_SUBSCRIBER" default:"ops@mortarline.com"`
	TTL             time.Duration `envconfig:"MORTARLINE_WEBPUSH_TTL" default:"24h"`
	Timeout         time.Duration `envconfig:"MORTARLINE_WEBPUSH_TIMEOUT" default:"10s"`
}

func (w WebPushConfig) validate() error {
	if (w.VAPIDPublicKey == "") != (w.VAPIDPrivateKey == "") {
		return fmt.Errorf("VAPID keys must be provided together")
	}
	return nil
}

// Enabled reports whether web push delivery is configured.
func (w WebPushConfig) Enabled() bool {
	return w.VAPIDPublicKey != "" && w.VAPIDPrivateKey != ""
}

type SSEConfig struct {
	ClientBuffer      int           `envconfig:"MORTARLINE_SSE_CLIENT_BUFFER" default:"16"`
	HeartbeatInterval time.Duration `envconfig:"MORTARLINE_SSE_HEARTBEAT" default:"25s"`
}

// HooksConfig tunes the client-side polling watchers. Cadence is a tuning
// parameter, not a contract.
type HooksConfig struct {
	PaymentsInterval time.Duration `envconfig:"MORTARLINE_HOOKS_PAYMENTS_INTERVAL" default:"30s"`
	OrdersInterval   time.Duration `envconfig:"MORTARLINE_HOOKS_ORDERS_INTERVAL" default:"20s"`
	MessagesInterval time.Duration `envconfig:"MORTARLINE_HOOKS_MESSAGES_INTERVAL" default:"10s"`

	// APIBaseURL and APIToken point the notify-agent at the counts endpoint.
	APIBaseURL string `envconfig:"MORTARLINE_HOOKS_API_BASE_URL" default:"http://localhost:8080"`
	APIToken   string `envconfig:"MORTARLINE_HOOKS_API_TOKEN"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MORTARLINE_GCP_PROJECT_ID" required:"true"`
	ApplicationCredentials string `envconfig:"MORTARLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MORTARLINE_PUBSUB_DOMAIN_TOPIC" default:"ml-domain-events"`
	DomainSubscription string `envconfig:"MORTARLINE_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MORTARLINE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// RetentionConfig governs the cron worker's cleanup jobs.
type RetentionConfig struct {
	NotificationDays int           `envconfig:"MORTARLINE_NOTIFICATION_RETENTION_DAYS" default:"30"`
	PurgeInactive    bool          `envconfig:"MORTARLINE_PURGE_INACTIVE_SUBSCRIPTIONS" default:"false"`
	InactiveDays     int           `envconfig:"MORTARLINE_INACTIVE_SUBSCRIPTION_DAYS" default:"180"`
	CronInterval     time.Duration `envconfig:"MORTARLINE_CRON_INTERVAL" default:"24h"`
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
