package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	QR       QRConfig
	Rental   RentalConfig
	Password PasswordConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Payments PaymentsConfig
	Cron     CronConfig
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
	Env          string `envconfig:"RENTMOTO_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTMOTO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RENTMOTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTMOTO_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"RENTMOTO_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RENTMOTO_DB_DSN"`
	Driver string `envconfig:"RENTMOTO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RENTMOTO_DB_HOST"`
	Port     int    `envconfig:"RENTMOTO_DB_PORT" default:"5432"`
	User     string `envconfig:"RENTMOTO_DB_USER"`
	Password string `envconfig:"RENTMOTO_DB_PASSWORD"`
	Name     string `envconfig:"RENTMOTO_DB_NAME"`
	SSLMode  string `envconfig:"RENTMOTO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTMOTO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTMOTO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTMOTO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTMOTO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTMOTO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTMOTO_REDIS_ADDR"`
	Password     string        `envconfig:"RENTMOTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTMOTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTMOTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTMOTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTMOTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTMOTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTMOTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RENTMOTO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RENTMOTO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RENTMOTO_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type QRConfig struct {
	Secret     string        `envconfig:"RENTMOTO_QR_SECRET" required:"true"`
	MaxStale   time.Duration `envconfig:"RENTMOTO_QR_MAX_STALE" default:"5m"`
	TokenTTL   time.Duration `envconfig:"RENTMOTO_QR_TOKEN_TTL" default:"5m"`
	IssuerName string        `envconfig:"RENTMOTO_QR_ISSUER" default:"rentmoto"`
}

type RentalConfig struct {
	ConfirmationWindow    time.Duration `envconfig:"RENTMOTO_RENTAL_CONFIRMATION_WINDOW" default:"24h"`
	PaymentDeadlineOffset time.Duration `envconfig:"RENTMOTO_RENTAL_PAYMENT_DEADLINE_OFFSET" default:"48h"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTMOTO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTMOTO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTMOTO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTMOTO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTMOTO_ARGON_KEY_LEN" default:"32"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RENTMOTO_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"RENTMOTO_PUBSUB_NOTIFICATION_TOPIC" default:"rentmoto-lessor-notifications"`
}

type PaymentsConfig struct {
	CallbackDedupTTL time.Duration `envconfig:"RENTMOTO_PAYMENTS_CALLBACK_DEDUP_TTL" default:"72h"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"RENTMOTO_CRON_INTERVAL" default:"15m"`
	LockKey      string        `envconfig:"RENTMOTO_CRON_LOCK_KEY" default:"rentmoto:cron:lock"`
	LockTTL      time.Duration `envconfig:"RENTMOTO_CRON_LOCK_TTL" default:"20m"`
	SweepBatch   int           `envconfig:"RENTMOTO_CRON_SWEEP_BATCH" default:"200"`
	MetricsPort  string        `envconfig:"RENTMOTO_CRON_METRICS_PORT" default:"9091"`
	MetricsServe bool          `envconfig:"RENTMOTO_CRON_METRICS_SERVE" default:"true"`
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
