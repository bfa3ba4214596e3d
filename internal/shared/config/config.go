package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	DatabaseURL     string
	Env             string

	LLMProvider string
	LLMModel    string

	EdgarUserAgent  string
	EdgarBaseURL    string
	EdgarDataURL    string
	LookbackDays    int
	EdgarRateMillis int

	AnalysisDispatch string
	SummarizeFilings bool
	MaxPromptTokens  int
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
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		Env:             env,

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMModel:    getEnv("LLM_MODEL", "gpt-4o-mini"),

		EdgarUserAgent:  getEnv("EDGAR_USER_AGENT", "BiotechAnalysis research@biotechanalysis.com"),
		EdgarBaseURL:    getEnv("EDGAR_BASE_URL", "https://www.sec.gov"),
		EdgarDataURL:    getEnv("EDGAR_DATA_URL", "https://data.sec.gov"),
		LookbackDays:    getEnvInt("EDGAR_LOOKBACK_DAYS", 365),
		EdgarRateMillis: getEnvInt("EDGAR_RATE_LIMIT_MS", 100),

		AnalysisDispatch: normalizeDispatch(getEnv("ANALYSIS_DISPATCH", "background")),
		SummarizeFilings: getEnv("SUMMARIZE_FILINGS", "false") == "true",
		MaxPromptTokens:  getEnvInt("MAX_PROMPT_TOKENS", 32000),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using default %d", key, raw, def)
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
	default:
		return "dev"
	}
}

func normalizeDispatch(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inline", "sync":
		return "inline"
	default:
		return "background"
	}
}
