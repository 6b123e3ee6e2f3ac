// Package config
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

/*
YAML config example:
mode: "process-batch"
provider: "massive"
db_conn_str: "host=localhost port=5432 user=postgres dbname=postmorty sslmode=disable"
db_max_open: 10
db_max_idle: 5
symbol: "AAPL"
symbols_file: "data/sp500_symbols.txt"
days: 100
workers: 8
ingest_delay: 15s
min_market_cap: 500000000
max_market_cap: 5000000000
*/

type Config struct {
	Mode        string        `yaml:"mode"`
	Symbol      string        `yaml:"symbol"`
	SymbolsFile string        `yaml:"symbols_file"`
	Limit       int           `yaml:"limit"`
	Days        int           `yaml:"days"`
	Workers     int           `yaml:"workers"`
	IngestDelay time.Duration `yaml:"ingest_delay"`

	Provider           string `yaml:"provider"`
	AlphaVantageAPIKey string `yaml:"alpha_vantage_api_key"`
	MassiveAPIKey      string `yaml:"massive_api_key"`

	DBConnStr string `yaml:"db_conn_str"`
	DBMaxOpen int    `yaml:"db_max_open"`
	DBMaxIdle int    `yaml:"db_max_idle"`

	MinMarketCap int64 `yaml:"min_market_cap"`
	MaxMarketCap int64 `yaml:"max_market_cap"`

	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

func loadConfig() (Config, error) {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	mode := flag.String("mode", "status", "Mode: ingest, ingest-batch, process, process-batch, scan, status")
	symbol := flag.String("symbol", "", "Ticker symbol for single-symbol modes")
	symbolsFile := flag.String("symbols-file", "data/sp500_symbols.txt", "Path to symbol list for ingest-batch")
	limit := flag.Int("limit", 25, "Max symbols to ingest in one batch run")
	days := flag.Int("days", 100, "Days of daily history to fetch per symbol")
	workers := flag.Int("workers", 4, "Concurrent indicator passes in process-batch")
	ingestDelay := flag.Duration("ingest-delay", 15*time.Second, "Pause between provider requests in ingest-batch")
	providerName := flag.String("provider", "alphavantage", "Market data provider: alphavantage or massive")
	dbMaxOpen := flag.Int("db-max-open", 10, "Max open DB connections")
	dbMaxIdle := flag.Int("db-max-idle", 5, "Max idle DB connections")
	minMarketCap := flag.Int64("min-market-cap", 500_000_000, "Scan universe lower market cap bound")
	maxMarketCap := flag.Int64("max-market-cap", 5_000_000_000, "Scan universe upper market cap bound")
	configFile := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg := Config{
		Mode:               *mode,
		Symbol:             *symbol,
		SymbolsFile:        *symbolsFile,
		Limit:              *limit,
		Days:               *days,
		Workers:            *workers,
		IngestDelay:        *ingestDelay,
		Provider:           *providerName,
		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		MassiveAPIKey:      os.Getenv("MASSIVE_API_KEY"),
		DBConnStr:          connStrFromEnv(),
		DBMaxOpen:          *dbMaxOpen,
		DBMaxIdle:          *dbMaxIdle,
		MinMarketCap:       *minMarketCap,
		MaxMarketCap:       *maxMarketCap,
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", *configFile, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", *configFile, err)
		}
	}

	return cfg, nil
}

// connStrFromEnv builds a Postgres connection string from the DB_* variables.
func connStrFromEnv() string {
	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	name := envOr("DB_NAME", "postmorty")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")

	connStr := fmt.Sprintf("host=%s port=%s dbname=%s sslmode=disable", host, port, name)
	if user != "" {
		connStr += " user=" + user
	}
	if password != "" {
		connStr += " password=" + password
	}
	return connStr
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func MustLoadConfig() Config {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}
