// Package config handles loading and parsing application configuration.
// It supports two sources for the config file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// A .env file in the working directory, when present, is loaded into the
// process environment first, so every env:"..." override below can also
// live there during local development.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Supported values for Storage.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	Storage    `yaml:"storage"`
	HTTPServer `yaml:"http_server"`
	Uploads    `yaml:"uploads"`
}

// Storage selects the database backend and holds its connection parameters.
// Path is only read by the sqlite driver; the rest only by postgres.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// Path is the filesystem path to the SQLite .db file.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"storage/students.db"`

	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"students"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8081".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8081"`

	// AllowedOrigin is echoed in Access-Control-Allow-Origin. "*" allows any.
	AllowedOrigin string `yaml:"allowed_origin" env:"HTTP_ALLOWED_ORIGIN" env-default:"*"`
}

// Uploads configures where profile images are kept on disk.
type Uploads struct {
	Dir string `yaml:"dir" env:"UPLOADS_DIR" env-default:"uploads"`

	// MaxSizeMB caps a single image upload.
	MaxSizeMB int64 `yaml:"max_size_mb" env:"UPLOADS_MAX_SIZE_MB" env-default:"5"`
}

// MaxBytes is the upload cap in bytes.
func (u Uploads) MaxBytes() int64 {
	return u.MaxSizeMB << 20
}

// DSN builds a lib/pq connection string from the postgres parameters.
func (s Storage) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(s.Host, strconv.Itoa(s.Port)),
		Path:     "/" + s.Name,
		RawQuery: url.Values{"sslmode": []string{s.SSLMode}}.Encode(),
	}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Password)
	}
	return u.String()
}

// Validate checks cross-field rules cleanenv tags cannot express.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.User == "" {
			return errors.New("storage.user is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}

	if c.Uploads.Dir == "" {
		return errors.New("uploads.dir is required")
	}
	if c.MaxSizeMB <= 0 {
		return errors.New("uploads.max_size_mb must be positive")
	}
	return nil
}

// Load reads the YAML file at path, applies env overrides and validates
// the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MustLoad reads, validates, and returns the application config.
// Functions prefixed with "Must" are allowed to exit on failure: if this
// returns, the config is valid.
func MustLoad() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("cannot load .env: %s", err)
	}

	configPath := os.Getenv("CONFIG_PATH")

	// Commands may register their own flags before calling MustLoad, so
	// parse even when the env var already supplied the path.
	flags := flag.String("config", "", "Path to the configuration YAML file")
	if !flag.Parsed() {
		flag.Parse()
	}
	if configPath == "" {
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err.Error())
	}

	return cfg
}
