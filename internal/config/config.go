package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds application level configuration loaded from an optional TOML
// file and environment variables. Environment variables win over the file.
type Config struct {
	ServerPort  string `toml:"server_port"`
	ClientURL   string `toml:"client_url"`
	MySQLDSN    string `toml:"mysql_dsn"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	RedisPass   string `toml:"redis_password"`
	JWTSecret   string `toml:"jwt_secret"`
	SwaggerHost string `toml:"swagger_host"`

	Log    LogConfig    `toml:"log"`
	Google GoogleConfig `toml:"google"`
	SMTP   SMTPConfig   `toml:"smtp"`
	S3     S3Config     `toml:"s3"`
	Mail   MailConfig   `toml:"mail"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

// GoogleConfig configures the delegated identity provider. Google sign-in is
// disabled when ClientID is empty.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// SMTPConfig configures outbound mail. With an empty Host mails are only logged.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
	TLS      bool   `toml:"tls"`
}

// S3Config configures banner storage. Uploads are disabled when Bucket is empty.
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PublicURL string `toml:"public_url"`
}

type MailConfig struct {
	QueueSize   int `toml:"queue_size"`
	Workers     int `toml:"workers"`
	MaxAttempts int `toml:"max_attempts"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort: "8080",
		ClientURL:  "http://localhost:5173",
		MySQLDSN:   "user:password@tcp(localhost:3306)/evently?charset=utf8mb4&parseTime=True&loc=UTC",
		RedisAddr:  "localhost:6379",
		JWTSecret:  "change-me",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Google: GoogleConfig{
			RedirectURL: "http://localhost:8080/auth/google/callback",
		},
		SMTP: SMTPConfig{
			Port:     587,
			From:     "no-reply@evently.com",
			FromName: "Evently",
			TLS:      true,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Mail: MailConfig{
			QueueSize:   256,
			Workers:     2,
			MaxAttempts: 5,
		},
	}
}

// Load builds Config from the TOML file at path (skipped when empty) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.ClientURL = getEnv("CLIENT_URL", cfg.ClientURL)
	cfg.MySQLDSN = getEnv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.RedisPass = getEnv("REDIS_PASSWORD", cfg.RedisPass)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.SwaggerHost = getEnv("SWAGGER_HOST", cfg.SwaggerHost)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	cfg.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", cfg.Google.ClientID)
	cfg.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", cfg.Google.ClientSecret)
	cfg.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", cfg.Google.RedirectURL)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)
	cfg.SMTP.FromName = getEnv("SMTP_FROM_NAME", cfg.SMTP.FromName)
	cfg.SMTP.TLS = getEnvBool("SMTP_TLS", cfg.SMTP.TLS)

	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region)
	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKey = getEnv("S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = getEnv("S3_SECRET_KEY", cfg.S3.SecretKey)
	cfg.S3.PublicURL = getEnv("S3_PUBLIC_URL", cfg.S3.PublicURL)

	cfg.Mail.QueueSize = getEnvInt("MAIL_QUEUE_SIZE", cfg.Mail.QueueSize)
	cfg.Mail.Workers = getEnvInt("MAIL_WORKERS", cfg.Mail.Workers)
	cfg.Mail.MaxAttempts = getEnvInt("MAIL_MAX_ATTEMPTS", cfg.Mail.MaxAttempts)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
