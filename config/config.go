package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	// Redis cache configuration
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`

	// Snapshot persistence
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Database configuration (postgres snapshot backend)
	Database DatabaseConfig `yaml:"database"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Data provider credentials
	Providers ProvidersConfig `yaml:"providers"`

	// Analysis parameters
	Analysis AnalysisConfig `yaml:"analysis"`

	// HTTP API configuration
	Server ServerConfig `yaml:"server"`

	// Scheduled watchlist refresh
	Watchlist WatchlistConfig `yaml:"watchlist"`

	// Reference data paths
	CompaniesCSV string `yaml:"companies_csv"`
	AliasesJSON  string `yaml:"aliases_json"`
}

// SnapshotConfig selects and parameterizes the snapshot store backend.
type SnapshotConfig struct {
	Backend    string `yaml:"backend"` // "file", "sqlite", or "postgres"
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// LLMConfig holds LLM service configuration
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// ProvidersConfig holds external data provider API keys. Market data
// (stooq) needs no key; financials and news stay disabled without one.
type ProvidersConfig struct {
	AlphaVantageAPIKey string `yaml:"alphavantage_api_key"`
	NewsAPIKey         string `yaml:"newsapi_api_key"`
}

// AnalysisConfig holds pipeline parameters.
type AnalysisConfig struct {
	LookbackDays  int     `yaml:"lookback_days"`
	MinBars       int     `yaml:"min_bars"`
	RiskFreeDaily float64 `yaml:"risk_free_daily"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// WatchlistConfig drives the scheduled refresh in serve mode.
type WatchlistConfig struct {
	Symbols  []string `yaml:"symbols"`
	Schedule string   `yaml:"schedule"`
}

// Load builds the configuration in three layers: built-in defaults, the
// optional YAML file at path, then environment variable overrides.
func Load(path string) (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		RedisHost: "localhost",
		RedisPort: "6379",

		Snapshot: SnapshotConfig{
			Backend:    "file",
			Dir:        "snapshots",
			SQLitePath: "data/snapshots.db",
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "5432",
			Name: "finresearch",
			User: "finresearch",
		},
		LLM: LLMConfig{
			Enabled:  false,
			Endpoint: "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
		},
		Analysis: AnalysisConfig{
			LookbackDays:  180,
			MinBars:       60,
			RiskFreeDaily: 0,
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Watchlist: WatchlistConfig{
			Schedule: "0 0 22 * * 1-5", // weekday evenings, after US close
		},
		CompaniesCSV: "data/companies.csv",
		AliasesJSON:  "data/aliases.json",
	}
}

func applyEnv(cfg *Config) {
	cfg.RedisHost = getEnvOrDefault("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnvOrDefault("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisPassword)

	cfg.Snapshot.Backend = getEnvOrDefault("SNAPSHOT_BACKEND", cfg.Snapshot.Backend)
	cfg.Snapshot.Dir = getEnvOrDefault("SNAPSHOT_DIR", cfg.Snapshot.Dir)
	cfg.Snapshot.SQLitePath = getEnvOrDefault("SNAPSHOT_SQLITE_PATH", cfg.Snapshot.SQLitePath)

	cfg.Database.Host = getEnvOrDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvOrDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnvOrDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnvOrDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("DB_PASSWORD", cfg.Database.Password)

	if v := os.Getenv("LLM_ENABLED"); v != "" {
		cfg.LLM.Enabled = v == "true"
	}
	cfg.LLM.Endpoint = getEnvOrDefault("LLM_ENDPOINT", cfg.LLM.Endpoint)
	cfg.LLM.APIKey = getEnvOrDefault("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnvOrDefault("LLM_MODEL", cfg.LLM.Model)

	cfg.Providers.AlphaVantageAPIKey = getEnvOrDefault("ALPHAVANTAGE_API_KEY", cfg.Providers.AlphaVantageAPIKey)
	cfg.Providers.NewsAPIKey = getEnvOrDefault("NEWSAPI_API_KEY", cfg.Providers.NewsAPIKey)

	cfg.Analysis.LookbackDays = getEnvInt("ANALYSIS_LOOKBACK_DAYS", cfg.Analysis.LookbackDays)
	cfg.Analysis.MinBars = getEnvInt("ANALYSIS_MIN_BARS", cfg.Analysis.MinBars)
	cfg.Analysis.RiskFreeDaily = getEnvFloat("ANALYSIS_RISK_FREE_DAILY", cfg.Analysis.RiskFreeDaily)

	cfg.Server.Port = getEnvOrDefault("SERVER_PORT", cfg.Server.Port)

	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist.Symbols = splitList(v)
	}
	cfg.Watchlist.Schedule = getEnvOrDefault("WATCHLIST_SCHEDULE", cfg.Watchlist.Schedule)

	cfg.CompaniesCSV = getEnvOrDefault("COMPANIES_CSV", cfg.CompaniesCSV)
	cfg.AliasesJSON = getEnvOrDefault("ALIASES_JSON", cfg.AliasesJSON)
}

// splitList parses a comma-separated symbol list.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
