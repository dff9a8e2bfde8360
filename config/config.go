package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultSourceURL is the versionless location of the Redfin ZIP-code market tracker.
const DefaultSourceURL = "https://redfin-public-data.s3.us-west-2.amazonaws.com/" +
	"redfin_market_tracker/zip_code_market_tracker.tsv000.gz"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceURL           string
	HTTPTimeoutSec      int
	DownloadMaxAttempts int

	ProgressEveryRows int
	ProgressEveryMB   int

	OutputPath    string
	CSVOutputPath string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		SourceURL:           getEnv("SOURCE_URL", DefaultSourceURL),
		HTTPTimeoutSec:      getEnvInt("HTTP_TIMEOUT_SEC", 0),
		DownloadMaxAttempts: getEnvInt("DOWNLOAD_MAX_ATTEMPTS", 1),

		ProgressEveryRows: getEnvInt("PROGRESS_EVERY_ROWS", 1_000_000),
		ProgressEveryMB:   getEnvInt("PROGRESS_EVERY_MB", 50),

		OutputPath:    getEnv("OUTPUT_PATH", "./output/zip_market.json"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "market"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "market123"),
		PostgresDB:       getEnv("POSTGRES_DB", "market_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}
