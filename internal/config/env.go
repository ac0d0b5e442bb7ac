package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ProviderConfig selects and parameterizes the active LLM provider.
// Exactly one provider is active per process.
type ProviderConfig struct {
	Name        string // "openai"|"anthropic"
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // defensive cap on the HTTP round trip
}

// ConversionConfig controls the external office-document engine.
type ConversionConfig struct {
	SofficePath string
	Timeout     time.Duration
	WorkDir     string
}

// IngestConfig bounds what the pipeline accepts.
type IngestConfig struct {
	AcceptedMIMETypes []string // empty means the detector's supported set
	MaxInputSizeMB    int
}

// ExtractionConfig tunes reconciliation behavior.
type ExtractionConfig struct {
	StrictSchemaValidation bool
}

// Config is the top-level configuration, constructed once at process start
// and passed by reference into the pipeline.
type Config struct {
	Logging    LoggingConfig
	Axiom      AxiomConfig
	Provider   ProviderConfig
	Conversion ConversionConfig
	Ingest     IngestConfig
	Extraction ExtractionConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() *Config {
	cfg := &Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/docextract.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_docextract",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Provider = ProviderConfig{
		Name:        getEnv("LLM_PROVIDER", "openai"),
		Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		APIKey:      getEnv("LLM_API_KEY", ""),
		Temperature: parseFloat(getEnv("LLM_TEMPERATURE", "0.1"), 0.1),
		MaxTokens:   parseInt(getEnv("LLM_MAX_TOKENS", "4000"), 4000),
		Timeout:     parseDuration(getEnv("LLM_TIMEOUT", "90s"), 90*time.Second),
	}

	cfg.Conversion = ConversionConfig{
		SofficePath: getEnv("SOFFICE_PATH", "libreoffice"),
		Timeout:     parseDuration(getEnv("CONVERT_TIMEOUT", "60s"), 60*time.Second),
		WorkDir:     getEnv("WORK_DIR", os.TempDir()),
	}

	cfg.Ingest = IngestConfig{
		AcceptedMIMETypes: parseList(getEnv("ACCEPTED_MIME_TYPES", "")),
		MaxInputSizeMB:    parseInt(getEnv("MAX_INPUT_SIZE_MB", "50"), 50),
	}

	cfg.Extraction = ExtractionConfig{
		StrictSchemaValidation: parseBool(getEnv("STRICT_SCHEMA_VALIDATION", "0")),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
