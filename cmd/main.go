package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"postmorty/internal/config"
	"postmorty/internal/db"
	"postmorty/internal/db/conf"
	"postmorty/internal/notifier"
	"postmorty/internal/processor"
	"postmorty/internal/provider"
	"postmorty/internal/scanner"
	"postmorty/internal/strategy"
)

func main() {
	cfg := config.MustLoadConfig()
	log.Println("Starting Postmorty in mode:", cfg.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	dbConfig, err := conf.NewConfig(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
	if err != nil {
		log.Fatalf("Failed to create DB config: %v", err)
	}

	storage, err := db.New(*dbConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	switch cfg.Mode {
	case "ingest":
		requireSymbol(cfg)
		proc := processor.New(storage, mustProvider(cfg))
		n, err := proc.Ingest(ctx, cfg.Symbol, cfg.Days)
		if err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		log.Printf("Ingested %d bars for %s", n, cfg.Symbol)

	case "ingest-batch":
		symbols, err := readSymbolsFile(cfg.SymbolsFile, cfg.Limit)
		if err != nil {
			log.Fatalf("Failed to read symbols file: %v", err)
		}
		proc := processor.New(storage, mustProvider(cfg))
		results := proc.IngestBatch(ctx, symbols, cfg.Days, cfg.IngestDelay)
		ok := 0
		for symbol, err := range results {
			if err != nil {
				log.Printf("Ingest failed for %s: %v", symbol, err)
			} else {
				ok++
			}
		}
		log.Printf("Batch ingestion complete: %d/%d symbols succeeded", ok, len(symbols))

	case "process":
		requireSymbol(cfg)
		proc := processor.New(storage, nil)
		n, err := proc.Process(ctx, cfg.Symbol)
		if err != nil {
			log.Fatalf("Process failed: %v", err)
		}
		log.Printf("Wrote %d indicator records for %s", n, cfg.Symbol)

	case "process-batch":
		symbols, err := storage.GetSymbols(ctx)
		if err != nil {
			log.Fatalf("Failed to list symbols: %v", err)
		}
		if len(symbols) == 0 {
			log.Fatalf("No ingested symbols to process")
		}
		proc := processor.New(storage, nil)
		results := proc.ProcessBatch(ctx, symbols, cfg.Workers)
		ok := 0
		for symbol, err := range results {
			if err != nil {
				log.Printf("Process failed for %s: %v", symbol, err)
			} else {
				ok++
			}
		}
		log.Printf("Batch processing complete: %d/%d symbols succeeded", ok, len(symbols))

	case "scan":
		scn := scanner.New(storage, strategy.NewExponentialBreakout())
		results, err := scn.Scan(ctx, cfg.MinMarketCap, cfg.MaxMarketCap)
		if err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		report := formatScanResults(results)
		fmt.Print(report)
		var notify notifier.Notifier = notifier.Noop{}
		if cfg.TelegramToken != "" {
			notify = notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		}
		if len(results) > 0 {
			if err := notify.Send(report); err != nil {
				log.Printf("Failed to send scan notification: %v", err)
			}
		}

	case "status":
		log.Println("Environment: Ready")
		if err := storage.Ping(ctx); err != nil {
			log.Fatalf("Database: Failed (%v)", err)
		}
		log.Println("Database: Connected")

	default:
		log.Fatalf("Unknown mode: %s", cfg.Mode)
	}
}

func requireSymbol(cfg config.Config) {
	if cfg.Symbol == "" {
		log.Fatalf("Mode %s requires -symbol", cfg.Mode)
	}
}

func mustProvider(cfg config.Config) provider.Provider {
	var (
		p   provider.Provider
		err error
	)
	switch cfg.Provider {
	case "alphavantage":
		p, err = provider.NewAlphaVantage(cfg.AlphaVantageAPIKey)
	case "massive":
		p, err = provider.NewMassive(cfg.MassiveAPIKey)
	default:
		log.Fatalf("Unknown provider: %s", cfg.Provider)
	}
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}
	return p
}

// readSymbolsFile reads one symbol per line, skipping blanks, up to limit.
func readSymbolsFile(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var symbols []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		symbols = append(symbols, s)
		if limit > 0 && len(symbols) == limit {
			break
		}
	}
	return symbols, sc.Err()
}

func formatScanResults(results []strategy.Result) string {
	if len(results) == 0 {
		return "Scan complete: no setups found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Scan complete: %d setups\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "%-6s score=%.0f signals=%s\n", r.Symbol, r.Score, strings.Join(r.Signals, "; "))
	}
	return b.String()
}
