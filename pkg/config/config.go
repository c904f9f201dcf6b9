package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PRODWELL"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "PRODWELL_APP_ENV"
	EnvDBDSN      = "PRODWELL_DB_DSN"
	EnvDBHost     = "PRODWELL_DB_HOST"
	EnvDBUser     = "PRODWELL_DB_USER"
	EnvDBName     = "PRODWELL_DB_NAME"
	EnvDBPassword = "PRODWELL_DB_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App AppConfig
	DB  DBConfig
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
	Env          string `envconfig:"PRODWELL_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"PRODWELL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRODWELL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRODWELL_DB_DSN"`
	Driver string `envconfig:"PRODWELL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRODWELL_DB_HOST"`
	LegacyPort     int    `envconfig:"PRODWELL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRODWELL_DB_USER"`
	LegacyPassword string `envconfig:"PRODWELL_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRODWELL_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRODWELL_DB_SSLMODE" default:"disable"`

	AutoMigrate bool `envconfig:"PRODWELL_DB_AUTO_MIGRATE" default:"false"`

	MaxOpenConns    int           `envconfig:"PRODWELL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRODWELL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRODWELL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRODWELL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
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
