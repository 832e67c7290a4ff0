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
	Ollama       OllamaConfig
	Matching     MatchingConfig
	CORS         CORSConfig
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
	Env          string `envconfig:"VISIONSCAN_APP_ENV" required:"true"`
	Port         string `envconfig:"VISIONSCAN_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"VISIONSCAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VISIONSCAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VISIONSCAN_DB_DSN"`
	Driver string `envconfig:"VISIONSCAN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VISIONSCAN_DB_HOST"`
	LegacyPort     int    `envconfig:"VISIONSCAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VISIONSCAN_DB_USER"`
	LegacyPassword string `envconfig:"VISIONSCAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"VISIONSCAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"VISIONSCAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VISIONSCAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VISIONSCAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VISIONSCAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VISIONSCAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VISIONSCAN_REDIS_URL"`
	Address      string        `envconfig:"VISIONSCAN_REDIS_ADDR"`
	Password     string        `envconfig:"VISIONSCAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"VISIONSCAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VISIONSCAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VISIONSCAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VISIONSCAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VISIONSCAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VISIONSCAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OllamaConfig points at the vision model used for image detection.
type OllamaConfig struct {
	Endpoint string        `envconfig:"VISIONSCAN_OLLAMA_ENDPOINT" default:"http://localhost:11434"`
	Model    string        `envconfig:"VISIONSCAN_OLLAMA_MODEL" default:"llava-phi3"`
	Timeout  time.Duration `envconfig:"VISIONSCAN_OLLAMA_TIMEOUT" default:"30s"`
}

// MatchingConfig tunes label resolution against the catalog.
type MatchingConfig struct {
	FuzzyThreshold float64 `envconfig:"VISIONSCAN_FUZZY_MATCH_THRESHOLD" default:"0.6"`
}

type CORSConfig struct {
	Origins []string `envconfig:"VISIONSCAN_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VISIONSCAN_AUTO_MIGRATE" default:"false"`
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
