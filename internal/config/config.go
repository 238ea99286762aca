package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// CORSMode selects how the relay treats origins that are not allow-listed.
type CORSMode string

const (
	// CORSModePermissive computes the match but admits every origin.
	CORSModePermissive CORSMode = "permissive"
	// CORSModeStrict rejects origins that do not prefix-match the allow-list.
	CORSModeStrict CORSMode = "strict"
)

const DefaultPort = 3000

// DefaultAllowedOrigins are always allow-listed, ALLOWED_ORIGINS is merged on top.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"https://huggingface.co/spaces/hewad-ai/hewad-ai-chat",
}

// Config is built once at start and only read afterwards.
type Config struct {
	PORT int

	OPENAI_API_KEY    string
	OPENAI_BASE_URL   string
	OPENAI_CHAT_MODEL string
	OPENAI_TTS_MODEL  string
	OPENAI_TTS_VOICE  string

	ALLOWED_ORIGINS []string
	CORS_MODE       CORSMode

	LOG_LEVEL slog.Level

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
	OTEL_TRACES_FILE            string
}

func ReadConfig() *Config {
	port := DefaultPort
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil && p > 0 {
			port = p
		} else {
			slog.Warn("Invalid PORT, using default", slog.String("port", portStr), slog.Int("default", DefaultPort))
		}
	}

	return &Config{
		PORT: port,

		OPENAI_API_KEY:    os.Getenv("OPENAI_API_KEY"),
		OPENAI_BASE_URL:   getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OPENAI_CHAT_MODEL: getEnvOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OPENAI_TTS_MODEL:  getEnvOrDefault("OPENAI_TTS_MODEL", "gpt-4o-mini-tts"),
		OPENAI_TTS_VOICE:  getEnvOrDefault("OPENAI_TTS_VOICE", "alloy"),

		ALLOWED_ORIGINS: MergeOrigins(DefaultAllowedOrigins, os.Getenv("ALLOWED_ORIGINS")),
		CORS_MODE:       parseCORSMode(os.Getenv("CORS_MODE")),

		LOG_LEVEL: parseLogLevel(os.Getenv("LOG_LEVEL")),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTEL_TRACES_FILE:            os.Getenv("OTEL_TRACES_FILE"),
	}
}

// MergeOrigins returns defaults followed by the comma-separated extra origins,
// without blanks or duplicates.
func MergeOrigins(defaults []string, extra string) []string {
	seen := make(map[string]struct{}, len(defaults))
	out := make([]string, 0, len(defaults))

	add := func(origin string) {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			return
		}
		if _, ok := seen[origin]; ok {
			return
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}

	for _, origin := range defaults {
		add(origin)
	}
	for _, origin := range strings.Split(extra, ",") {
		add(origin)
	}

	return out
}

func parseCORSMode(v string) CORSMode {
	switch CORSMode(strings.ToLower(strings.TrimSpace(v))) {
	case CORSModeStrict:
		return CORSModeStrict
	case "", CORSModePermissive:
		return CORSModePermissive
	default:
		slog.Warn("Unknown CORS_MODE, falling back to permissive", slog.String("cors_mode", v))
		return CORSModePermissive
	}
}

func parseLogLevel(v string) slog.Level {
	var level slog.Level
	if v == "" {
		return slog.LevelInfo
	}
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
