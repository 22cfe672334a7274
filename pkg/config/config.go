package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Realtime      RealtimeConfig
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
	Env          string `envconfig:"RAMIKART_APP_ENV" required:"true"`
	Port         string `envconfig:"RAMIKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RAMIKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RAMIKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RAMIKART_DB_DSN"`
	Driver string `envconfig:"RAMIKART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RAMIKART_DB_HOST"`
	Port     int    `envconfig:"RAMIKART_DB_PORT" default:"5432"`
	User     string `envconfig:"RAMIKART_DB_USER"`
	Password string `envconfig:"RAMIKART_DB_PASSWORD"`
	Name     string `envconfig:"RAMIKART_DB_NAME"`
	SSLMode  string `envconfig:"RAMIKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RAMIKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RAMIKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RAMIKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RAMIKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RAMIKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RAMIKART_REDIS_ADDR"`
	Password     string        `envconfig:"RAMIKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"RAMIKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RAMIKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RAMIKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RAMIKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RAMIKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RAMIKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RAMIKART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RAMIKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RAMIKART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RAMIKART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RAMIKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RAMIKART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RAMIKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RAMIKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RAMIKART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RAMIKART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RAMIKART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RAMIKART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RAMIKART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RAMIKART_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RAMIKART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RAMIKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RAMIKART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RAMIKART_GCP_PROJECT_ID"`
}

// PubSubConfig names the cross-instance presence/chat relay topic. Both
// fields empty means single-instance mode: presence events fan out in
// process only.
type PubSubConfig struct {
	PresenceTopic        string `envconfig:"RAMIKART_PUBSUB_PRESENCE_TOPIC"`
	PresenceSubscription string `envconfig:"RAMIKART_PUBSUB_PRESENCE_SUBSCRIPTION"`
}

func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.PresenceTopic) != "" && strings.TrimSpace(p.PresenceSubscription) != ""
}

type RealtimeConfig struct {
	WriteWait      time.Duration `envconfig:"RAMIKART_WS_WRITE_WAIT" default:"10s"`
	PongWait       time.Duration `envconfig:"RAMIKART_WS_PONG_WAIT" default:"60s"`
	MaxMessageSize int64         `envconfig:"RAMIKART_WS_MAX_MESSAGE_BYTES" default:"4096"`
	SendBuffer     int           `envconfig:"RAMIKART_WS_SEND_BUFFER" default:"64"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"RAMIKART_DB_HOST": db.Host,
		"RAMIKART_DB_USER": db.User,
		"RAMIKART_DB_NAME": db.Name,
	}
	for _, key := range []string{"RAMIKART_DB_HOST", "RAMIKART_DB_USER", "RAMIKART_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either RAMIKART_DB_DSN or %s are required", strings.Join(missing, ", "))
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
