// Package config assembles runtime settings from defaults, an optional YAML
// file and the environment (including a .env file), in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"photo-rating/internal/utils"

	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Port     string   `yaml:"port"`
	LogLevel string   `yaml:"log_level"`
	LogJSON  bool     `yaml:"log_json"`
	Store    string   `yaml:"store"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Points   Points   `yaml:"points"`
	Storage  Storage  `yaml:"storage"`
	NATS     NATS     `yaml:"nats"`
}

type Database struct {
	URL            string        `yaml:"url"`
	ConnectRetries int           `yaml:"connect_retries"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	MaxConns       int           `yaml:"max_conns"`
	AutoMigrate    bool          `yaml:"auto_migrate"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Points struct {
	// Initial is the balance every new account starts with.
	Initial int `yaml:"initial"`
}

type Storage struct {
	Backend     string `yaml:"backend"`
	UploadDir   string `yaml:"upload_dir"`
	BaseURL     string `yaml:"base_url"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	S3          S3     `yaml:"s3"`
}

type S3 struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	PublicURL    string `yaml:"public_url"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Default returns development defaults. JWTSecret must be overridden in production.
func Default() *Config {
	return &Config{
		Port:     "5000",
		LogLevel: "info",
		Store:    StorePostgres,
		Database: Database{
			ConnectRetries: 5,
			RetryInterval:  time.Second,
			MaxConns:       10,
			AutoMigrate:    true,
		},
		Auth: Auth{
			JWTSecret: "secret",
			TokenTTL:  time.Hour,
		},
		Points: Points{Initial: 10},
		Storage: Storage{
			Backend:     StorageLocal,
			UploadDir:   "uploads",
			MaxUploadMB: 10,
			S3: S3{
				Region:       "us-east-1",
				UsePathStyle: true,
			},
		},
		NATS: NATS{Subject: "photorate.ratings"},
	}
}

// Load builds a Config. path may be empty; a missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	_ = utils.LoadEnv()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = utils.GetEnv("PORT", c.Port)
	c.LogLevel = utils.GetEnv("LOG_LEVEL", c.LogLevel)
	c.LogJSON = utils.GetEnvBool("LOG_JSON", c.LogJSON)
	c.Store = utils.GetEnv("STORE", c.Store)

	c.Database.URL = utils.GetEnv("DATABASE_URL", c.Database.URL)
	if c.Database.URL == "" {
		// Fallback to individual vars
		c.Database.URL = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "photo_rating") + "?sslmode=disable"
	}
	c.Database.ConnectRetries = utils.GetEnvInt("DB_CONNECT_RETRIES", c.Database.ConnectRetries)
	c.Database.RetryInterval = utils.GetEnvDuration("DB_RETRY_INTERVAL", c.Database.RetryInterval)
	c.Database.MaxConns = utils.GetEnvInt("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.AutoMigrate = utils.GetEnvBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Auth.JWTSecret = utils.GetEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = utils.GetEnvDuration("TOKEN_TTL", c.Auth.TokenTTL)

	c.Points.Initial = utils.GetEnvInt("INITIAL_POINTS", c.Points.Initial)

	c.Storage.Backend = utils.GetEnv("STORAGE", c.Storage.Backend)
	c.Storage.UploadDir = utils.GetEnv("UPLOAD_DIR", c.Storage.UploadDir)
	c.Storage.BaseURL = utils.GetEnv("BASE_URL", c.Storage.BaseURL)
	c.Storage.MaxUploadMB = utils.GetEnvInt("MAX_UPLOAD_MB", c.Storage.MaxUploadMB)
	c.Storage.S3.Bucket = utils.GetEnv("S3_BUCKET", c.Storage.S3.Bucket)
	c.Storage.S3.Region = utils.GetEnv("S3_REGION", c.Storage.S3.Region)
	c.Storage.S3.Endpoint = utils.GetEnv("S3_ENDPOINT", c.Storage.S3.Endpoint)
	c.Storage.S3.AccessKey = utils.GetEnv("S3_ACCESS_KEY", c.Storage.S3.AccessKey)
	c.Storage.S3.SecretKey = utils.GetEnv("S3_SECRET_KEY", c.Storage.S3.SecretKey)
	c.Storage.S3.PublicURL = utils.GetEnv("S3_PUBLIC_URL", c.Storage.S3.PublicURL)
	c.Storage.S3.UsePathStyle = utils.GetEnvBool("S3_USE_PATH_STYLE", c.Storage.S3.UsePathStyle)

	c.NATS.URL = utils.GetEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = utils.GetEnv("NATS_SUBJECT", c.NATS.Subject)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database url is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.Storage.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.UploadDir == "" {
			errs = append(errs, errors.New("upload dir is required for local storage"))
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}
