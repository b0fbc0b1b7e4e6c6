package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds settings for the AWS S3 blob driver. Credentials and region
// come from the default AWS credential chain unless Region is set.
type S3Config struct {
	Bucket       string
	Region       string
	Prefix       string
	Endpoint     string
	UsePathStyle bool
}

// BlobConfig selects the blob store driver: "minio", "s3" or "memory".
type BlobConfig struct {
	Driver string
}

// AuthConfig holds token signing and login throttling settings.
type AuthConfig struct {
	JWTSecret       string
	JWTExpiry       time.Duration
	LoginRatePerSec float64
	LoginRateBurst  int
}

// HTTPConfig holds listener and request settings.
type HTTPConfig struct {
	Port         string
	ClientOrigin string
	BodyLimitMB  int
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level    string
	Format   string // json or console
	TimeZone string
}

// SweepConfig controls the orphan blob sweeper. Interval 0 disables the
// in-process sweep loop.
type SweepConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

// AppConfig is the whole process configuration.
type AppConfig struct {
	AppHost  string
	HTTP     HTTPConfig
	Database DatabaseConfig
	Blob     BlobConfig
	MinIO    MinIOConfig
	S3       S3Config
	Auth     AuthConfig
	Log      LogConfig
	Sweep    SweepConfig
}

// Load reads the configuration from the environment. cmd/api autoloads a
// .env file first; variables already set win over it.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		HTTP: HTTPConfig{
			Port:         getEnv("PORT", "8080"),
			ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:3000"),
			BodyLimitMB:  envAs("BODY_LIMIT_MB", 50, strconv.Atoi),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       envAs("DB_MAX_OPEN_CONNS", 10, strconv.Atoi),
			MaxIdleConns:       envAs("DB_MAX_IDLE_CONNS", 5, strconv.Atoi),
			ConnMaxLifetimeSec: envAs("DB_CONN_MAX_LIFETIME_SEC", 300, strconv.Atoi),
		},
		Blob: BlobConfig{
			Driver: strings.ToLower(getEnv("BLOB_DRIVER", "minio")),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    envAs("MINIO_USE_SSL", false, strconv.ParseBool),
		},
		S3: S3Config{
			Bucket:       getEnv("S3_BUCKET", ""),
			Region:       getEnv("S3_REGION", ""),
			Prefix:       getEnv("S3_PREFIX", "blobs/"),
			Endpoint:     getEnv("S3_ENDPOINT", ""),
			UsePathStyle: envAs("S3_USE_PATH_STYLE", false, strconv.ParseBool),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			JWTExpiry:       envAs("JWT_EXPIRY", 7*24*time.Hour, ParseDuration),
			LoginRatePerSec: envAs("LOGIN_RATE_PER_SEC", 1.0, parseFloat),
			LoginRateBurst:  envAs("LOGIN_RATE_BURST", 5, strconv.Atoi),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Format:   getEnv("LOG_FORMAT", "json"),
			TimeZone: getEnv("TZ", "UTC"),
		},
		Sweep: SweepConfig{
			Interval: envAs("SWEEP_INTERVAL", 0, ParseDuration),
			Grace:    envAs("SWEEP_GRACE", time.Hour, ParseDuration),
		},
	}
}

// Location resolves the configured log time zone, falling back to UTC.
func (c LogConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseDuration accepts Go durations plus a day suffix ("7d", "1d12h").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "d"); i > 0 {
		days, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, err
		}
		d := time.Duration(days) * 24 * time.Hour
		if rest := s[i+1:]; rest != "" {
			extra, err := time.ParseDuration(rest)
			if err != nil {
				return 0, err
			}
			d += extra
		}
		return d, nil
	}
	return time.ParseDuration(s)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envAs parses key with parse, returning def when the variable is unset or
// does not parse.
func envAs[T any](key string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
