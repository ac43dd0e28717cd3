/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Books Engine server. Handles
  configuration, dependency injection, chart seeding, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load optional .env file
  2. Parse command-line flags and config file (flags win)
  3. Initialize the store (SQLite or in-memory)
  4. Seed the chart of accounts (built-in default or JSON file)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: config.yaml if present)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use "memory" for the in-memory store

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/books.db"

  # Run with in-memory store
  ./server -db=memory

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Config file and env overrides
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/warp/books-engine/api"
	"github.com/warp/books-engine/books"
	memstore "github.com/warp/books-engine/books/store"
	"github.com/warp/books-engine/config"
	"github.com/warp/books-engine/factory"
	"github.com/warp/books-engine/store/sqlite"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	configPath := pflag.String("config", "", "config file path")
	port := pflag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := pflag.String("db", "", "SQLite database path, or 'memory' (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Initialize store
	var store books.TxStore
	if cfg.Database.Path == "memory" {
		store = memstore.NewMemory()
	} else {
		s, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer s.Close()
		store = s
	}

	// Initialize handler and seed the chart
	handler := api.NewHandler(store, nil)
	if err := seedChart(context.Background(), handler.Chart, cfg); err != nil {
		log.Fatalf("Failed to seed chart of accounts: %v", err)
	}

	// Create router
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://%s", cfg.Addr())
		log.Printf("API available at http://%s/api", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	timeout := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedChart seeds from the configured JSON file, or the built-in default.
// Seeding is idempotent: existing codes are left alone.
func seedChart(ctx context.Context, chart *books.Chart, cfg *config.Config) error {
	f := factory.NewChartFactory()

	if cfg.Chart.File != "" {
		raw, err := os.ReadFile(cfg.Chart.File)
		if err != nil {
			return fmt.Errorf("read chart file: %w", err)
		}
		def, err := f.ParseChart(string(raw))
		if err != nil {
			return err
		}
		return f.Seed(ctx, chart, def)
	}
	if cfg.Chart.SeedDefault {
		return f.Seed(ctx, chart, factory.DefaultChart())
	}
	return nil
}
