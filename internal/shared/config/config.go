package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port                     string
	CORSAllowOrigin          []string
	ObjectStoreType          string
	LocalStoreDir            string
	AWSRegion                string
	S3Bucket                 string
	S3Prefix                 string
	SSEKMSKeyID              string
	DatabaseURL              string
	Env                      string
	LogLevel                 string
	BlankCatalog             string
	TemplatePrefix           string
	ConverterBinary          string
	ConvertTimeout           time.Duration
	PreviewWorkDir           string
	MaxConcurrentConversions int
	RenderRatePerSec         float64
	RenderBurst              int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                     getEnv("PORT", "8080"),
		CORSAllowOrigin:          splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:          normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:            getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:                getEnv("AWS_REGION", ""),
		S3Bucket:                 getEnv("S3_BUCKET", ""),
		S3Prefix:                 getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:              getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:              dbURL,
		Env:                      env,
		LogLevel:                 strings.ToLower(getEnv("LOG_LEVEL", "info")),
		BlankCatalog:             getEnv("BLANK_CATALOG", "assets/blanks.yaml"),
		TemplatePrefix:           getEnv("TEMPLATE_PREFIX", "templates"),
		ConverterBinary:          getEnv("CONVERTER_BINARY", "soffice"),
		ConvertTimeout:           getDuration("CONVERT_TIMEOUT", 60*time.Second),
		PreviewWorkDir:           getEnv("PREVIEW_WORK_DIR", filepath.Join(os.TempDir(), "policy-previews")),
		MaxConcurrentConversions: getInt("MAX_CONCURRENT_CONVERSIONS", 0),
		RenderRatePerSec:         getFloat("RENDER_RATE_PER_SEC", 0.2),
		RenderBurst:              getInt("RENDER_BURST", 3),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration: %q", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// IsDevLike reports whether env permits in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
