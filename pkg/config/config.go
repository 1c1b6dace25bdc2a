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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Payments     PaymentsConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ZEDEXPRESS_APP_ENV" required:"true"`
	Port         string `envconfig:"ZEDEXPRESS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ZEDEXPRESS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZEDEXPRESS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ZEDEXPRESS_DB_DSN"`
	Driver string `envconfig:"ZEDEXPRESS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ZEDEXPRESS_DB_HOST"`
	Port     int    `envconfig:"ZEDEXPRESS_DB_PORT" default:"5432"`
	User     string `envconfig:"ZEDEXPRESS_DB_USER"`
	Password string `envconfig:"ZEDEXPRESS_DB_PASSWORD"`
	Name     string `envconfig:"ZEDEXPRESS_DB_NAME"`
	SSLMode  string `envconfig:"ZEDEXPRESS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZEDEXPRESS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZEDEXPRESS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZEDEXPRESS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZEDEXPRESS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZEDEXPRESS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ZEDEXPRESS_REDIS_ADDR"`
	Password     string        `envconfig:"ZEDEXPRESS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZEDEXPRESS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZEDEXPRESS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZEDEXPRESS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZEDEXPRESS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZEDEXPRESS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZEDEXPRESS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ZEDEXPRESS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ZEDEXPRESS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ZEDEXPRESS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig holds the quote signing material. A single key is active per
// process; rotation happens by redeploying with a new key id.
type PricingConfig struct {
	HMACSecret      string `envconfig:"ZEDEXPRESS_PRICING_HMAC_SECRET" required:"true"`
	KeyID           string `envconfig:"ZEDEXPRESS_PRICING_KEY_ID" default:"calc_key_2025_10"`
	QuoteTTLSeconds int    `envconfig:"ZEDEXPRESS_PRICING_QUOTE_TTL_SECONDS" default:"900"`
}

type PaymentsConfig struct {
	AirtelEndpoint string `envconfig:"ZEDEXPRESS_PAYMENTS_AIRTEL_ENDPOINT" default:"https://api.airtel.zm"`
	AirtelAPIKey   string `envconfig:"ZEDEXPRESS_PAYMENTS_AIRTEL_API_KEY"`
	MTNEndpoint    string `envconfig:"ZEDEXPRESS_PAYMENTS_MTN_ENDPOINT" default:"https://api.mtn.zm"`
	MTNAPIKey      string `envconfig:"ZEDEXPRESS_PAYMENTS_MTN_API_KEY"`

	PushExpiry      time.Duration `envconfig:"ZEDEXPRESS_PAYMENTS_PUSH_EXPIRY" default:"5m"`
	ReadyTokenTTL   time.Duration `envconfig:"ZEDEXPRESS_PAYMENTS_READY_TOKEN_TTL" default:"5m"`
	RetryMaxAttempts int          `envconfig:"ZEDEXPRESS_PAYMENTS_RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialWait time.Duration `envconfig:"ZEDEXPRESS_PAYMENTS_RETRY_INITIAL_WAIT" default:"200ms"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ZEDEXPRESS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ZEDEXPRESS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
