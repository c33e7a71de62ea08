package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Database DatabaseConfig
	Log      LogConfig
	Import   ImportConfig
	Policy   PolicyConfig
	Reports  ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type LogConfig struct {
	Level  string
	Format string
}

// ImportConfig governs batch input handling.
type ImportConfig struct {
	Farm         string
	Interactive  bool
	DryRun       bool
	RetryPasses  int
	DateFormats  []string
	DefaultBreed string
}

// PolicyConfig carries the reconciliation thresholds. These are policy
// knobs, not law: farms differ in how they record repeat heats, so every
// window is tunable per deployment.
type PolicyConfig struct {
	MatingGapMax        time.Duration
	EstrusDuplicateSpan time.Duration
	RepeatCycleGap      time.Duration
	CountCeiling        int
	WeaningWindowMin    time.Duration
	WeaningWindowMax    time.Duration
}

// ReportsConfig controls rejection report output.
type ReportsConfig struct {
	Dir        string
	PDFSummary bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Import = ImportConfig{
		Farm:         v.GetString("IMPORT_FARM"),
		Interactive:  v.GetBool("IMPORT_INTERACTIVE"),
		DryRun:       v.GetBool("IMPORT_DRY_RUN"),
		RetryPasses:  v.GetInt("IMPORT_RETRY_PASSES"),
		DateFormats:  splitAndTrim(v.GetString("IMPORT_DATE_FORMATS")),
		DefaultBreed: v.GetString("IMPORT_DEFAULT_BREED"),
	}

	cfg.Policy = PolicyConfig{
		MatingGapMax:        parseDuration(v.GetString("POLICY_MATING_GAP_MAX"), 72*time.Hour),
		EstrusDuplicateSpan: parseDuration(v.GetString("POLICY_ESTRUS_DUPLICATE_SPAN"), 72*time.Hour),
		RepeatCycleGap:      parseDuration(v.GetString("POLICY_REPEAT_CYCLE_GAP"), 50*24*time.Hour),
		CountCeiling:        v.GetInt("POLICY_COUNT_CEILING"),
		WeaningWindowMin:    parseDuration(v.GetString("POLICY_WEANING_WINDOW_MIN"), 14*24*time.Hour),
		WeaningWindowMax:    parseDuration(v.GetString("POLICY_WEANING_WINDOW_MAX"), 42*24*time.Hour),
	}

	cfg.Reports = ReportsConfig{
		Dir:        v.GetString("REPORTS_DIR"),
		PDFSummary: v.GetBool("REPORTS_PDF_SUMMARY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "breeding_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("IMPORT_FARM", "")
	v.SetDefault("IMPORT_INTERACTIVE", false)
	v.SetDefault("IMPORT_DRY_RUN", false)
	v.SetDefault("IMPORT_RETRY_PASSES", 1)
	v.SetDefault("IMPORT_DATE_FORMATS", "2006-01-02,2006/1/2,20060102")
	v.SetDefault("IMPORT_DEFAULT_BREED", "")

	v.SetDefault("POLICY_MATING_GAP_MAX", "72h")
	v.SetDefault("POLICY_ESTRUS_DUPLICATE_SPAN", "72h")
	v.SetDefault("POLICY_REPEAT_CYCLE_GAP", "1200h")
	v.SetDefault("POLICY_COUNT_CEILING", 30)
	v.SetDefault("POLICY_WEANING_WINDOW_MIN", "336h")
	v.SetDefault("POLICY_WEANING_WINDOW_MAX", "1008h")

	v.SetDefault("REPORTS_DIR", "./reports")
	v.SetDefault("REPORTS_PDF_SUMMARY", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
