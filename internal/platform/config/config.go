package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// Store backends.
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Thais collection modes.
const (
	ThaisModeAPI = "api"
	ThaisModeUI  = "ui"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port           string
	GinMode        string
	AllowedOrigins string

	LookaheadNights int
	Timezone        string
	HotelsFile      string
	Hotels          []model.HotelConfig
	ThaisMode       string

	StoreBackend        string
	DatabaseURL         string
	FirebaseProjectID   string
	FirebaseCredsBase64 string
	FirebaseCredsFile   string

	HTMLReportPath string
	DebugArtifacts bool
	ArtifactsDir   string

	BrowserHeadless bool
	ChromePath      string
	ChromeNoSandbox bool
	Clearance       Clearance

	SheetsExport             bool
	GoogleSheetID            string
	GoogleSheetTab           string
	GoogleServiceAccountJSON string

	AMQPURL      string
	AMQPExchange string

	LogLevel        string
	LogJSON         bool
	FluentEnabled   bool
	FluentHost      string
	FluentPort      int
	FluentTagPrefix string
}

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		GinMode:                  getEnv("GIN_MODE", "release"),
		AllowedOrigins:           strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
		Timezone:                 getEnv("TZ", "Europe/Paris"),
		HotelsFile:               strings.TrimSpace(os.Getenv("HOTELS_FILE")),
		ThaisMode:                strings.ToLower(getEnv("THAIS_MODE", ThaisModeAPI)),
		StoreBackend:             strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:              strings.TrimSpace(os.Getenv("DATABASE_URL")),
		FirebaseProjectID:        strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		FirebaseCredsBase64:      strings.TrimSpace(os.Getenv("FIREBASE_CREDS_BASE64")),
		FirebaseCredsFile:        strings.TrimSpace(os.Getenv("FIREBASE_CREDS_FILE")),
		HTMLReportPath:           getEnv("HTML_REPORT_PATH", "output/latest-report.html"),
		ArtifactsDir:             getEnv("DEBUG_ARTIFACTS_DIR", "output/debug"),
		ChromePath:               strings.TrimSpace(os.Getenv("CHROME_PATH")),
		GoogleSheetID:            strings.TrimSpace(os.Getenv("GOOGLE_SHEET_ID")),
		GoogleSheetTab:           getEnv("GOOGLE_SHEET_TAB", "monitoring_raw"),
		GoogleServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		AMQPURL:                  strings.TrimSpace(os.Getenv("AMQP_URL")),
		AMQPExchange:             getEnv("AMQP_EXCHANGE", "hotel_monitoring"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		FluentHost:               getEnv("FLUENT_HOST", "localhost"),
		FluentTagPrefix:          getEnv("FLUENT_TAG_PREFIX", "hotelmonitoring"),
	}

	var err error
	if cfg.LookaheadNights, err = parseIntEnv("LOOKAHEAD_NIGHTS", 7); err != nil {
		return Config{}, fmt.Errorf("parse LOOKAHEAD_NIGHTS: %w", err)
	}
	if cfg.FluentPort, err = parseIntEnv("FLUENT_PORT", 24224); err != nil {
		return Config{}, fmt.Errorf("parse FLUENT_PORT: %w", err)
	}

	debugArtifacts, err := parseBoolEnv("DEBUG_ARTIFACTS", false)
	if err != nil {
		return Config{}, fmt.Errorf("parse DEBUG_ARTIFACTS: %w", err)
	}
	ci, err := parseBoolEnv("CI", false)
	if err != nil {
		ci = false
	}
	cfg.DebugArtifacts = debugArtifacts || ci

	bools := []struct {
		key  string
		def  bool
		dest *bool
	}{
		{"BROWSER_HEADLESS", true, &cfg.BrowserHeadless},
		{"CHROME_NO_SANDBOX", false, &cfg.ChromeNoSandbox},
		{"SHEETS_EXPORT", false, &cfg.SheetsExport},
		{"LOG_JSON", false, &cfg.LogJSON},
		{"FLUENT_ENABLED", false, &cfg.FluentEnabled},
	}
	for _, b := range bools {
		v, err := parseBoolEnv(b.key, b.def)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", b.key, err)
		}
		*b.dest = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Hotels, err = LoadHotels(cfg.HotelsFile, cfg.Timezone)
	if err != nil {
		return Config{}, err
	}

	home, _ := os.UserHomeDir()
	cfg.Clearance, err = ResolveClearance(os.Getenv, os.ReadFile, home)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.LookaheadNights < 1 {
		return errors.New("LOOKAHEAD_NIGHTS must be at least 1")
	}
	switch c.ThaisMode {
	case ThaisModeAPI, ThaisModeUI:
	default:
		return fmt.Errorf("THAIS_MODE must be %q or %q, got %q", ThaisModeAPI, ThaisModeUI, c.ThaisMode)
	}
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.FirebaseCredsBase64 == "" && c.FirebaseCredsFile == "" {
			return errors.New("provide FIREBASE_CREDS_BASE64 or FIREBASE_CREDS_FILE for Firestore auth")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendFirestore, c.StoreBackend)
	}
	if c.SheetsExport {
		if c.GoogleSheetID == "" {
			return errors.New("GOOGLE_SHEET_ID is required when SHEETS_EXPORT is enabled")
		}
		if c.GoogleServiceAccountJSON == "" {
			return errors.New("GOOGLE_SERVICE_ACCOUNT_JSON is required when SHEETS_EXPORT is enabled")
		}
	}
	return nil
}

// FirebaseCredentialsJSON returns the service account JSON bytes and the source used.
func (c Config) FirebaseCredentialsJSON() ([]byte, string, error) {
	if c.FirebaseCredsBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.FirebaseCredsBase64)
		if err != nil {
			return nil, "base64", fmt.Errorf("decode FIREBASE_CREDS_BASE64: %w", err)
		}
		return decoded, "base64", nil
	}
	if c.FirebaseCredsFile != "" {
		data, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, "file", fmt.Errorf("read FIREBASE_CREDS_FILE: %w", err)
		}
		return data, "file", nil
	}
	return nil, "", errors.New("no firebase credentials found")
}

// SheetsCredentialsJSON accepts either inline JSON or base64-encoded JSON.
func (c Config) SheetsCredentialsJSON() ([]byte, error) {
	raw := strings.TrimSpace(c.GoogleServiceAccountJSON)
	if raw == "" {
		return nil, errors.New("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
	}
	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_JSON: %w", err)
	}
	return decoded, nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseBoolEnv(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}
