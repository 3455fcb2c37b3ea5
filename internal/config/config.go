package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application settings, loaded from environment variables.
// It is passed explicitly to each component at construction; there is no
// process-wide mutable state.
type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	SecretKey   string
	CORSOrigins string
	TablePrefix string

	// File storage
	StorageRoot     string // root directory for managed files
	VersionsDir     string // side directory for version snapshots
	DepartmentsFile string // optional YAML file listing department folders
	MaxFileSize     int64  // bytes

	AllowedExtensions []string // lowercase, with leading dot
	PreviewExtensions []string
}

// Load reads configuration from the environment with development defaults.
func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		StorageRoot:     getEnv("STORAGE_ROOT", "CDRRMO files"),
		VersionsDir:     getEnv("VERSIONS_DIR", "file_versions"),
		DepartmentsFile: getEnv("DEPARTMENTS_FILE", "departments.yaml"),
		MaxFileSize:     getEnvInt64("MAX_FILE_SIZE", 100<<20),

		AllowedExtensions: splitExtensions(getEnv("ALLOWED_EXTENSIONS", ".pdf,.docx,.xlsx,.pptx")),
		PreviewExtensions: splitExtensions(getEnv("PREVIEW_EXTENSIONS", ".pdf,.jpg,.jpeg,.png,.gif,.bmp")),
	}
}

// Validate checks settings that must be present before the server starts.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY environment variable is required (generate with: openssl rand -hex 32)")
	}
	if len(c.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters (currently %d)", len(c.SecretKey))
	}
	return nil
}

// CORSOriginList splits the comma-separated origins setting.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func splitExtensions(s string) []string {
	parts := strings.Split(s, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, ".") {
			p = "." + p
		}
		exts = append(exts, p)
	}
	return exts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
