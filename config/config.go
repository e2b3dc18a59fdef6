package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all pipeline configuration loaded once from environment
// variables and passed into the components that need it. No component
// reads the environment on its own.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	Categories       []string
	FetchLimit       int
	MaxConcurrency   int
	CategoryDelaySec int
	MaxRetries       int
	ReconcileMode    string
	WithDetails      bool

	SourceAdapter string
	SourceBaseURL string
	ChromeBin     string

	CSVOutputPath string
}

// defaultCategories is the fixed brand enumeration the pipeline queries.
var defaultCategories = []string{
	"Rolex", "Richard Mille", "Seiko", "Omega",
	"Patek Philippe", "Panerai", "Breitling", "Audemars Piguet",
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "chrono"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "watch_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		Categories:       getEnvList("CATEGORIES", defaultCategories),
		FetchLimit:       getEnvInt("FETCH_LIMIT", 10000),
		MaxConcurrency:   getEnvInt("MAX_CONCURRENCY", 3),
		CategoryDelaySec: getEnvInt("CATEGORY_DELAY_SEC", 5),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		ReconcileMode:    getEnv("RECONCILE_MODE", "upsert"),
		WithDetails:      getEnvBool("WITH_DETAILS", true),

		SourceAdapter: getEnv("SOURCE_ADAPTER", "browser"),
		SourceBaseURL: getEnv("SOURCE_BASE_URL", ""),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_records.csv"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSSLMode
}

// CategoryDelay returns the mandatory politeness delay between category
// fetches.
func (c *Config) CategoryDelay() time.Duration {
	return time.Duration(c.CategoryDelaySec) * time.Second
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
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
