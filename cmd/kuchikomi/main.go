// Package main is the kuchikomi CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kuchikomi/internal/cli"
	"github.com/hyperjump/kuchikomi/internal/config"
	"github.com/hyperjump/kuchikomi/internal/document"
	"github.com/hyperjump/kuchikomi/internal/models"
	"github.com/hyperjump/kuchikomi/internal/server"
	"github.com/hyperjump/kuchikomi/internal/storage"
	"github.com/hyperjump/kuchikomi/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kuchikomi/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory is preferred if it exists, so running from a project dir uses
// that project's config. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kuchikomi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger. It exits the process on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, logger, err := loadRuntime(configPath, debugFlag, utils.NewLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

// loadRuntime loads config and builds the logger with newLogger. Debug logging is
// on when either the config or debugFlag asks for it.
func loadRuntime(configPath string, debugFlag bool, newLogger func(bool) (*zap.Logger, error)) (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := newLogger(debugMode)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, resolved, logger, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	noHistory := fs.Bool("no-history", false, "do not load review datasets; history routes answer 503")
	watch := fs.Bool("watch", false, "re-index or reload local dataset files when they change")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	var hist server.HistoryService
	var reloadable *reloadableHistory
	if !*noHistory {
		ctx, cancel := context.WithTimeout(runCtx, 2*cfg.Datasets.Timeout())
		assembler, err := buildHistory(ctx, cfg, logger)
		cancel()
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			reloadable = newReloadableHistory(assembler)
			hist = reloadable
		}
	}

	if *watch {
		w, err := watchDatasets(runCtx, cfg, components, reloadable, logger)
		if err != nil {
			logger.Warn("dataset watching disabled", zap.Error(err))
		} else if w != nil {
			defer w.Stop()
		}
	}

	srv := server.NewServer(components.Index, hist, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	shops := fs.String("shops", "", "shop dataset location (default from config)")
	mismatch := fs.String("review-mismatch", "", "policy for unequal review titles/reviews: fail or truncate (default from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, *debug)
	defer logger.Sync()

	location := cfg.Datasets.ShopsURL
	if *shops != "" {
		location = *shops
	}
	if *mismatch != "" {
		cfg.Index.ReviewMismatch = *mismatch
	}
	if _, err := document.ParseMismatchPolicy(cfg.Index.ReviewMismatch); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n, err := reindexShops(ctx, cfg, components, location, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d document(s) from %s into %s\n", n, location, components.Index.Collection())
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kuchikomi search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kuchikomi search cozy bakery with croissants
  kuchikomi search -k 3 "late night ramen"
  kuchikomi search -output json spicy noodles
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags (and their values) that appear after positional
// arguments to the front so that flag.Parse sees them.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "", "server URL; empty searches the local index directly")
	k := fs.Int("k", 0, "number of results (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, queryStr, *k)
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, initErr := initializeComponents(cfg, logger)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", initErr)
			os.Exit(1)
		}
		defer components.Close()
		response, err = components.Index.Search(context.Background(), queryStr, *k)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "", "server URL; empty assembles the history locally")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kuchikomi history [flags] <userId>")
		os.Exit(1)
	}
	userID := fs.Arg(0)
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var response *models.HistoryResponse
	if *serverURL != "" {
		response, err = historyViaHTTP(*serverURL, userID)
	} else {
		cfg, _, logger := setup(*configPath, *debug)
		defer logger.Sync()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		assembler, buildErr := buildHistory(ctx, cfg, logger)
		if buildErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to load history datasets: %v\n", buildErr)
			os.Exit(1)
		}
		logger.Info("assembling history", zap.String("user_id", userID), zap.Int("rows", assembler.RowCount(userID)))
		var records []models.EnrichedVisitRecord
		records, err = assembler.Assemble(ctx, userID)
		response = &models.HistoryResponse{UserID: userID, Records: records}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHistory(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "", "server URL; empty reads local storage")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, initErr := initializeComponents(cfg, logger)
		if initErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", initErr)
			os.Exit(1)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	docCount, err := c.Index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	status := &statusResponse{
		Collection:      c.Index.Collection(),
		Documents:       docCount,
		VectorIndexSize: c.Index.Size(),
		Config: &statusConfigResponse{
			EmbeddingProvider:   cfg.Embedding.Provider,
			EmbeddingModel:      cfg.Embedding.Model,
			EmbeddingDimensions: cfg.Embedding.Dimensions,
			VisionModel:         cfg.Vision.Model,
			DefaultK:            cfg.Index.DefaultK,
			ReviewMismatch:      cfg.Index.ReviewMismatch,
			DatabasePath:        cfg.Storage.DatabasePath,
			VectorIndexPath:     cfg.Storage.VectorIndexPath,
		},
	}
	paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.VectorIndexPath)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if _, err := os.Stat(*path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", *path)
		os.Exit(1)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = "./data/db/kuchikomi.db"
	cfg.Storage.VectorIndexPath = "./data/indices/vectors.bin"
	if err := config.Save(*path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s; set %s in the environment or a .env file\n", *path, config.EnvOpenAIKey)
}

func printUsage() {
	fmt.Println(`kuchikomi - restaurant review retrieval and user history enrichment

Usage:
  kuchikomi index [flags]              Fetch the shop dataset, build documents and index them
  kuchikomi search [flags] <query>     Similarity search over indexed shops
  kuchikomi history [flags] <userId>   Enriched visit history of one user
  kuchikomi server [flags]             Start the HTTP server
  kuchikomi status [flags]             Show collection and index status
  kuchikomi init [flags]               Write a default config file
  kuchikomi version                    Show version
  kuchikomi help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kuchikomi/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Index Flags:
  --shops string             Shop dataset URL or path (default from config)
  --review-mismatch string   fail or truncate (default from config)

Search Flags:
  --k int            Number of results (default from config, 5)
  --server string    Query a running server instead of the local index
  --output string    text or json

History Flags:
  --server string    Ask a running server instead of assembling locally
  --output string    text or json

Server Flags:
  --no-history       Skip loading review datasets
  --watch            Re-index or reload local dataset files when they change

Examples:
  kuchikomi init
  kuchikomi index
  kuchikomi search "bakery with matcha pastries"
  kuchikomi search -k 3 -output json ramen
  kuchikomi history DAE0922BB12703E868929052C6CD433A
  kuchikomi server
  kuchikomi status -output json`)
}
