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
	Upload   UploadConfig
	Auth     AuthConfig
	API      APIConfig
	Identity IdentityConfig
	Redis    RedisConfig
	DB       DBConfig
	Metrics  MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upload.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DMMEDIA_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"DMMEDIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DMMEDIA_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"DMMEDIA_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type UploadConfig struct {
	Endpoint        string        `envconfig:"DMMEDIA_UPLOAD_ENDPOINT" default:"https://upload.twitter.com/i/media/upload.json"`
	Origin          string        `envconfig:"DMMEDIA_UPLOAD_ORIGIN" default:"https://twitter.com"`
	DefaultCategory string        `envconfig:"DMMEDIA_UPLOAD_DEFAULT_CATEGORY"`
	SegmentBytes    int64         `envconfig:"DMMEDIA_UPLOAD_SEGMENT_BYTES" default:"0"`
	PollInterval    time.Duration `envconfig:"DMMEDIA_UPLOAD_POLL_INTERVAL" default:"1s"`
	PollMaxAttempts int           `envconfig:"DMMEDIA_UPLOAD_POLL_MAX_ATTEMPTS" default:"60"`
	PollMaxWait     time.Duration `envconfig:"DMMEDIA_UPLOAD_POLL_MAX_WAIT" default:"10m"`
	HTTPTimeout     time.Duration `envconfig:"DMMEDIA_UPLOAD_HTTP_TIMEOUT" default:"2m"`
	FFProbePath     string        `envconfig:"DMMEDIA_FFPROBE_PATH" default:"ffprobe"`
}

func (u UploadConfig) validate() error {
	if _, err := url.ParseRequestURI(u.Endpoint); err != nil {
		return fmt.Errorf("%s is not a valid url: %w", EnvUploadEndpoint, err)
	}
	if u.SegmentBytes < 0 {
		return fmt.Errorf("%s must not be negative", EnvUploadSegmentBytes)
	}
	if u.PollMaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvUploadPollMaxAttempts)
	}
	if u.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvUploadPollInterval)
	}
	return nil
}

type AuthConfig struct {
	BearerToken string `envconfig:"DMMEDIA_AUTH_BEARER_TOKEN"`
	CSRFToken   string `envconfig:"DMMEDIA_AUTH_CSRF_TOKEN"`
	Cookie      string `envconfig:"DMMEDIA_AUTH_COOKIE"`
	SelfUserID  string `envconfig:"DMMEDIA_AUTH_SELF_USER_ID"`
}

type APIConfig struct {
	BaseURL string `envconfig:"DMMEDIA_API_BASE_URL" default:"https://twitter.com/i/api/1.1"`
}

type IdentityConfig struct {
	CacheCapacity int           `envconfig:"DMMEDIA_IDENTITY_CACHE_CAPACITY" default:"1024"`
	CacheTTL      time.Duration `envconfig:"DMMEDIA_IDENTITY_CACHE_TTL" default:"24h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DMMEDIA_REDIS_URL"`
	Address      string        `envconfig:"DMMEDIA_REDIS_ADDR"`
	Password     string        `envconfig:"DMMEDIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"DMMEDIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DMMEDIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DMMEDIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DMMEDIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DMMEDIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DMMEDIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type DBConfig struct {
	DSN    string `envconfig:"DMMEDIA_DB_DSN"`
	Driver string `envconfig:"DMMEDIA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"DMMEDIA_DB_HOST"`
	Port     int    `envconfig:"DMMEDIA_DB_PORT" default:"5432"`
	User     string `envconfig:"DMMEDIA_DB_USER"`
	Password string `envconfig:"DMMEDIA_DB_PASSWORD"`
	Name     string `envconfig:"DMMEDIA_DB_NAME"`
	SSLMode  string `envconfig:"DMMEDIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DMMEDIA_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"DMMEDIA_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DMMEDIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DMMEDIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Enabled reports whether the upload journal database is configured.
func (db DBConfig) Enabled() bool {
	return db.DSN != ""
}

type MetricsConfig struct {
	Addr string `envconfig:"DMMEDIA_METRICS_ADDR"`
}

// ensureDSN assembles a DSN from discrete settings. The journal database is optional, so a
// completely empty configuration is accepted; a partial one is not.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Host == "" && db.User == "" && db.Name == "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
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
