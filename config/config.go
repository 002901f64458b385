package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// jamendoPlaceholderID is the value shipped in the sample .env file.
const jamendoPlaceholderID = "your_client_id_here"

// Config stores the application configuration.
type Config struct {
	HTTPAddr    string
	PublicDir   string // Static web UI served at /
	UploadDir   string // Local audio storage
	MaxUploadMB int64

	StorageBackend string // local or minio

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JamendoBaseURL  string
	JamendoClientID string
	JamendoCacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	FFprobePath  string
	WriteTags    bool // Write edited metadata back into MP3 files
	WatchUploads bool // Register files dropped into UploadDir

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":3000"),
		PublicDir:   getEnv("PUBLIC_DIR", "public"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadMB: int64(getEnvInt("MAX_UPLOAD_MB", 100)),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "songbox"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:     getEnv("DB_NAME", "music_db"),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JamendoBaseURL:  strings.TrimSuffix(getEnv("JAMENDO_BASE_URL", "https://api.jamendo.com/v3.0"), "/"),
		JamendoClientID: os.Getenv("JAMENDO_CLIENT_ID"),
		JamendoCacheTTL: getEnvDuration("JAMENDO_CACHE_TTL", 10*time.Minute),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),

		FFprobePath:  getEnv("FFPROBE_PATH", "ffprobe"),
		WriteTags:    getEnvBool("WRITE_TAGS", false),
		WatchUploads: getEnvBool("WATCH_UPLOADS", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/songbox.log"),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageLocal, StorageMinio:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", c.StorageBackend, StorageLocal, StorageMinio)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %.2f rps / burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}

// JamendoConfigured reports whether a real Jamendo client id is set.
func (c *Config) JamendoConfigured() bool {
	return c.JamendoClientID != "" && c.JamendoClientID != jamendoPlaceholderID
}

// MaxUploadBytes is the per-request upload cap.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// DSN builds the MySQL data source name.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
