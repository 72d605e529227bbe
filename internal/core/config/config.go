package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
	// optional bootstrap admin, created or promoted at admin startup
	SeedEmail    string
	SeedPassword string
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level      string
	JSON       bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
}

type Security struct {
	BcryptCost      int
	HashConcurrency int
	LoginRPS        float64
	LoginBurst      int
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UserTTL  time.Duration `mapstructure:"userttl"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	Security Security
	DB       DB
	Redis    Redis `mapstructure:"redis"`
}

var keys = map[string]any{
	"app.name":                 "auth-service",
	"app.env":                  "local",
	"app.http.host":            "0.0.0.0",
	"app.http.port":            8080,
	"app.http.readtimeoutsec":  5,
	"app.http.writetimeoutsec": 10,
	"app.http.idletimeoutsec":  60,
	"app.admin.host":           "127.0.0.1",
	"app.admin.port":           8081,
	"app.admin.seedemail":      "",
	"app.admin.seedpassword":   "",
	"log.level":                "info",
	"log.json":                 false,
	"log.file":                 "",
	"log.maxsizemb":            100,
	"log.maxbackups":           7,
	"log.maxagedays":           30,
	"log.compress":             true,
	"jwt.secret":               "",
	"jwt.issuer":               "auth-service",
	"jwt.ttl":                  "24h",
	"jwt.leeway":               "0s",
	"security.bcryptcost":      10,
	"security.hashconcurrency": 0,
	"security.loginrps":        5.0,
	"security.loginburst":      10,
	"db.driver":                "sqlite",
	"db.dsn":                   "file:auth.db?_pragma=busy_timeout(5000)",
	"db.username":              "",
	"db.password":              "",
	"db.maxopenconns":          20,
	"db.maxidleconns":          10,
	"db.connmaxlifetimemin":    30,
	"db.automigrate":           true,
	"db.loglevel":              "warn",
	"redis.addr":               "",
	"redis.password":           "",
	"redis.db":                 0,
	"redis.userttl":            "5m",
}

// Load reads an optional YAML file and then APP_* environment variables,
// e.g. APP_JWT_SECRET or APP_DB_DSN. A missing file is fine when path is
// empty; an explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, d := range keys {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows; bind them so
	// Unmarshal sees env values as well.
	for k := range keys {
		_ = v.BindEnv(k)
	}
	// bare JWT_SECRET is accepted for existing deployments
	_ = v.BindEnv("jwt.secret", "APP_JWT_SECRET", "JWT_SECRET")

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required (APP_JWT_SECRET)"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, fmt.Errorf("jwt.ttl must be positive, got %s", c.JWT.TTL))
	}
	if c.JWT.Leeway < 0 {
		errs = append(errs, errors.New("jwt.leeway must not be negative"))
	}
	if c.Security.BcryptCost != 0 && (c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31) {
		errs = append(errs, fmt.Errorf("security.bcryptcost out of range: %d", c.Security.BcryptCost))
	}
	if (c.App.Admin.SeedEmail == "") != (c.App.Admin.SeedPassword == "") {
		errs = append(errs, errors.New("app.admin.seedemail and app.admin.seedpassword must be set together"))
	}
	return errors.Join(errs...)
}
