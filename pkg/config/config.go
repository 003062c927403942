// Package config loads dbrest settings from a YAML file, DBREST_ environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edgeflare/dbrest/pkg/httputil/middleware"
	"github.com/edgeflare/dbrest/pkg/pipeline"
	"github.com/edgeflare/dbrest/pkg/workorder"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, eg DBREST_REST_PG_CONNSTRING.
const EnvPrefix = "DBREST"

// Config holds application-wide configuration
type Config struct {
	REST      RESTConfig       `mapstructure:"rest"`
	WorkOrder workorder.Config `mapstructure:"workOrder"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Pipeline  pipeline.Config  `mapstructure:"pipeline"`
	LogLevel  string           `mapstructure:"logLevel"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type RESTConfig struct {
	PG              PGConfig                    `mapstructure:"pg"`
	ListenAddr      string                      `mapstructure:"listenAddr"`
	BaseURL         string                      `mapstructure:"baseURL"`
	NullPlaceholder string                      `mapstructure:"nullPlaceholder"`
	Serialize       bool                        `mapstructure:"serialize"`
	AtomicInserts   bool                        `mapstructure:"atomicInserts"`
	ValidateFilters bool                        `mapstructure:"validateFilters"`
	AllowedTables   []string                    `mapstructure:"allowedTables"`
	RateLimit       middleware.RateLimitOptions `mapstructure:"rateLimit"`
	CORS            *middleware.CORSOptions     `mapstructure:"cors"`
	ShutdownTimeout time.Duration               `mapstructure:"shutdownTimeout"`
}

type PGConfig struct {
	ConnString     string        `mapstructure:"connString"`
	MaxConns       int32         `mapstructure:"maxConns"`
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

var ErrNoConnString = errors.New("rest.pg.connString is required")

// flagKeys maps command line flags to the keys they override.
var flagKeys = map[string]string{
	"listen-addr": "rest.listenAddr",
	"base-url":    "rest.baseURL",
	"conn-string": "rest.pg.connString",
	"log-level":   "logLevel",
}

func setDefaults(v *viper.Viper) {
	wo := workorder.DefaultConfig()

	v.SetDefault("logLevel", "info")
	v.SetDefault("rest.listenAddr", ":8080")
	v.SetDefault("rest.baseURL", "/Service")
	v.SetDefault("rest.pg.connString", "")
	v.SetDefault("rest.pg.maxConns", 0)
	v.SetDefault("rest.pg.connectTimeout", 10*time.Second)
	v.SetDefault("rest.nullPlaceholder", " ")
	v.SetDefault("rest.serialize", false)
	v.SetDefault("rest.atomicInserts", false)
	v.SetDefault("rest.validateFilters", true)
	v.SetDefault("rest.allowedTables", []string{})
	v.SetDefault("rest.rateLimit.rps", 0)
	v.SetDefault("rest.rateLimit.burst", 0)
	v.SetDefault("rest.rateLimit.ttl", 10*time.Minute)
	v.SetDefault("rest.rateLimit.trustProxy", false)
	v.SetDefault("rest.shutdownTimeout", 10*time.Second)
	v.SetDefault("workOrder.sequenceTable", wo.SequenceTable)
	v.SetDefault("workOrder.companyColumn", wo.CompanyColumn)
	v.SetDefault("workOrder.sequenceColumn", wo.SequenceColumn)
	v.SetDefault("workOrder.correlativeFunc", wo.CorrelativeFunc)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads config from file, environment and flags. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("dbrest")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.REST.PG.ConnString) == "" {
		return ErrNoConnString
	}
	if c.REST.ListenAddr == "" {
		return errors.New("rest.listenAddr is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	return nil
}
