package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Port        int    `yaml:"port"`
	Env         string `yaml:"env"`
	DatabaseURL string `yaml:"database_url"`

	JWTSecret     string `yaml:"jwt_secret"`
	JWTTTLMinutes int    `yaml:"jwt_ttl_minutes"`
	JWTIssuer     string `yaml:"jwt_issuer"`

	OTPTTLMinutes           int `yaml:"otp_ttl_minutes"`
	OTPLength               int `yaml:"otp_length"`
	OTPMaxAttempts          int `yaml:"otp_max_attempts"`
	OTPPurgeIntervalMinutes int `yaml:"otp_purge_interval_minutes"`

	PasswordMinLength int `yaml:"password_min_length"`
	BcryptCost        int `yaml:"bcrypt_cost"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	MailFrom     string `yaml:"mail_from"`

	UploadDriver        string `yaml:"upload_driver"`
	UploadLocalDir      string `yaml:"upload_local_dir"`
	UploadPublicBaseURL string `yaml:"upload_public_base_url"`
	UploadMaxBytes      int64  `yaml:"upload_max_bytes"`
	S3Bucket            string `yaml:"s3_bucket"`
	S3Region            string `yaml:"s3_region"`
	S3Endpoint          string `yaml:"s3_endpoint"`
	S3AccessKey         string `yaml:"s3_access_key"`
	S3SecretKey         string `yaml:"s3_secret_key"`
}

func Defaults() Config {
	return Config{
		Port:                    8080,
		Env:                     "development",
		JWTTTLMinutes:           24 * 60,
		JWTIssuer:               "recipe-blog",
		OTPTTLMinutes:           10,
		OTPLength:               6,
		OTPMaxAttempts:          5,
		OTPPurgeIntervalMinutes: 30,
		PasswordMinLength:       8,
		BcryptCost:              bcrypt.DefaultCost,
		SMTPPort:                587,
		MailFrom:                "no-reply@recipe-blog.local",
		UploadDriver:            "local",
		UploadLocalDir:          "./uploads",
		UploadPublicBaseURL:     "/uploads",
		UploadMaxBytes:          5 << 20,
		S3Region:                "us-east-1",
	}
}

// Load applies defaults, then the optional YAML file named by
// BACKEND_CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("BACKEND_CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "BACKEND_ENV")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.JWTIssuer, "JWT_ISSUER")
	setString(&cfg.SMTPHost, "SMTP_HOST")
	setString(&cfg.SMTPUser, "SMTP_USER")
	setString(&cfg.SMTPPassword, "SMTP_PASSWORD")
	setString(&cfg.MailFrom, "MAIL_FROM")
	setString(&cfg.UploadDriver, "UPLOAD_DRIVER")
	setString(&cfg.UploadLocalDir, "UPLOAD_LOCAL_DIR")
	setString(&cfg.UploadPublicBaseURL, "UPLOAD_PUBLIC_BASE_URL")
	setString(&cfg.S3Bucket, "S3_BUCKET")
	setString(&cfg.S3Region, "S3_REGION")
	setString(&cfg.S3Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.S3SecretKey, "S3_SECRET_KEY")

	if v := os.Getenv("BACKEND_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			cfg.SMTPPort = p
		}
	}

	setPositiveInt(&cfg.JWTTTLMinutes, "JWT_TTL_MINUTES")
	setPositiveInt(&cfg.OTPTTLMinutes, "OTP_TTL_MINUTES")
	setPositiveInt(&cfg.OTPMaxAttempts, "OTP_MAX_ATTEMPTS")
	setPositiveInt(&cfg.OTPPurgeIntervalMinutes, "OTP_PURGE_INTERVAL_MINUTES")
	setPositiveInt(&cfg.PasswordMinLength, "PASSWORD_MIN_LENGTH")

	if v := os.Getenv("OTP_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 4 && n <= 10 {
			cfg.OTPLength = n
		}
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= bcrypt.MinCost && n <= bcrypt.MaxCost {
			cfg.BcryptCost = n
		}
	}
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.UploadMaxBytes = n
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setPositiveInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

func (c Config) OTPPurgeInterval() time.Duration {
	return time.Duration(c.OTPPurgeIntervalMinutes) * time.Minute
}
