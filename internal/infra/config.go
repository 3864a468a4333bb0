package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	ScratchDir    string
	OutputDir     string
	OutputBaseURL string

	MaxUploadBytes int64
	OutputTTL      time.Duration

	RemoveBGModelPath  string
	ONNXRuntimeLibPath string

	GeoIPDBPath string
	CORSOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the operation
// ledger is disabled but every conversion endpoint still works.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		ScratchDir:         getEnv("SCRATCH_DIR", "data/scratch"),
		OutputDir:          getEnv("OUTPUT_DIR", "data/output"),
		OutputBaseURL:      getEnv("OUTPUT_BASE_URL", "http://localhost:"+port+"/output"),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 500<<20),
		OutputTTL:          time.Hour * time.Duration(getEnvInt("OUTPUT_TTL_HOURS", 24)),
		RemoveBGModelPath:  os.Getenv("REMOVEBG_MODEL_PATH"),
		ONNXRuntimeLibPath: os.Getenv("ONNXRUNTIME_LIB_PATH"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "http://localhost:"+port)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.OutputTTL <= 0 {
		return nil, fmt.Errorf("OUTPUT_TTL_HOURS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
