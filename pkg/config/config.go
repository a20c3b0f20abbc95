package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	Sensory      SensoryConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Sensory.Mode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GHOSTPASS_APP_ENV" required:"true"`
	Port         string `envconfig:"GHOSTPASS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GHOSTPASS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GHOSTPASS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// SensoryConfig carries the explicit environment mode gating the six sensory
// channels. The mode is fixed at process start from configuration and never
// inferred from the deployment environment, so a dev deployment can still
// exercise production-mode locking against real policies.
type SensoryConfig struct {
	EnvironmentMode string `envconfig:"GHOSTPASS_ENVIRONMENT_MODE" required:"true"`
}

// Mode parses the configured environment mode.
func (s SensoryConfig) Mode() (enums.EnvironmentMode, error) {
	return enums.ParseEnvironmentMode(s.EnvironmentMode)
}

type DBConfig struct {
	DSN    string `envconfig:"GHOSTPASS_DB_DSN"`
	Driver string `envconfig:"GHOSTPASS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GHOSTPASS_DB_HOST"`
	LegacyPort     int    `envconfig:"GHOSTPASS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GHOSTPASS_DB_USER"`
	LegacyPassword string `envconfig:"GHOSTPASS_DB_PASSWORD"`
	LegacyName     string `envconfig:"GHOSTPASS_DB_NAME"`
	LegacySSLMode  string `envconfig:"GHOSTPASS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GHOSTPASS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GHOSTPASS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GHOSTPASS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GHOSTPASS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GHOSTPASS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GHOSTPASS_REDIS_ADDR"`
	Password     string        `envconfig:"GHOSTPASS_REDIS_PASSWORD"`
	DB           int           `envconfig:"GHOSTPASS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GHOSTPASS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GHOSTPASS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GHOSTPASS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GHOSTPASS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GHOSTPASS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GHOSTPASS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GHOSTPASS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GHOSTPASS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GHOSTPASS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GHOSTPASS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"GHOSTPASS_PUBSUB_DOMAIN_TOPIC" default:"gp-domain-events"`
	DomainSubscription string `envconfig:"GHOSTPASS_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GHOSTPASS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GHOSTPASS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GHOSTPASS_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
