package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mshibata-dev/crawld/internal/config"
	"github.com/mshibata-dev/crawld/internal/engine"
	"github.com/mshibata-dev/crawld/internal/frontier"
	"github.com/mshibata-dev/crawld/internal/log"
	"github.com/mshibata-dev/crawld/internal/metrics"
	"github.com/mshibata-dev/crawld/internal/model"
	"github.com/mshibata-dev/crawld/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl websites starting from the given seed URLs",
		Long: `Crawl fetches pages breadth-first starting from the seed URLs.

Each fetched page is written as one JSON line to the output file. The
crawl respects robots.txt rules and Crawl-delay, and never sends more
than one concurrent request to the same domain.

Examples:
  # Crawl a site with the default limits
  crawld crawl https://example.com

  # Restrict the crawl to specific domains
  crawld crawl -a example.com -a docs.example.com https://example.com

  # Durable crawl that survives interruption
  crawld crawl --store crawl.db https://example.com

  # Resume the interrupted crawl; completed pages are not re-fetched
  crawld crawl --store crawl.db --resume

  # Use a custom configuration file
  crawld crawl -c myconfig.yaml https://example.com

Configuration file (.crawld) example:
  seeds:
    - https://example.com
  allowed_domains:
    - example.com
  domains:
    slow.example.com:
      delay: 5s
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl scope flags
	cmd.Flags().StringSliceP("allow", "a", nil,
		"Restrict crawling to this domain and its subdomains (repeatable)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch in this run")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from a seed URL")

	// Fetch behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of crawl workers")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum spacing between requests to the same domain")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header and robots.txt token")
	cmd.Flags().Bool("ignore-robots", false,
		"Skip robots.txt fetching and rule checks entirely")

	// Output and persistence flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputPath,
		"JSONL output file for page records")
	cmd.Flags().StringP("store", "s", "",
		"SQLite frontier database path (default: in-memory, not resumable)")
	cmd.Flags().BoolP("resume", "r", false,
		"Resume a previous crawl from the --store database")

	// Metrics flags
	cmd.Flags().Duration("metrics-interval", config.DefaultMetricsInterval,
		"Interval between progress log lines (0 disables)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g., 127.0.0.1:9090)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawld in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with URL redaction
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels the crawl and lets in-flight pages finish;
	// a second signal exits immediately.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal, finishing in-flight pages...")
		cancel()
		<-sigCh
		logger.Error("Received second signal, exiting immediately")
		os.Exit(1)
	}()

	return runCrawl(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.AllowedDomains, err = cmd.Flags().GetStringSlice("allow")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("max-depth")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.IgnoreRobots, err = cmd.Flags().GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}

	cfg.OutputPath, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.StorePath, err = cmd.Flags().GetString("store")
	if err != nil {
		return nil, err
	}

	cfg.Resume, err = cmd.Flags().GetBool("resume")
	if err != nil {
		return nil, err
	}

	cfg.MetricsInterval, err = cmd.Flags().GetDuration("metrics-interval")
	if err != nil {
		return nil, err
	}

	cfg.MetricsAddr, err = cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Get positional arguments (seed URLs) before merging the file so
	// command-line seeds keep priority.
	cfg.Seeds = args

	// Load per-domain configuration from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently skip when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(cf)
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCrawl wires the store, sink, and engine together and executes the
// crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting crawl",
		"seeds", cfg.Seeds,
		"maxPages", cfg.MaxPages,
		"maxDepth", cfg.MaxDepth,
		"concurrency", cfg.Concurrency,
		"store", cfg.StorePath,
		"resume", cfg.Resume,
	)

	// Open the frontier. A durable store survives interruption; the
	// in-memory store is for one-shot crawls.
	var (
		store frontier.Store
		opts  []engine.Option
	)
	if cfg.StorePath != "" {
		sqlStore, err := frontier.Open(cfg.StorePath, frontier.Options{
			// Resume runs must not silently create an empty database
			// at a mistyped path.
			CreateIfNotExists: !cfg.Resume,
			EnableWAL:         true,
		})
		if err != nil {
			return fmt.Errorf("failed to open frontier store: %w", err)
		}
		store = sqlStore
		opts = append(opts, engine.WithPageStore(sqlStore))
	} else {
		store = frontier.NewMemoryStore()
	}
	defer store.Close()

	// Resumed crawls append to the output; fresh crawls truncate it.
	sink, err := report.NewJSONLSink(cfg.OutputPath, cfg.Resume)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer sink.Close()

	eng := engine.New(cfg, store, sink, logger, opts...)

	// Periodic progress line
	if cfg.MetricsInterval > 0 {
		go metrics.NewStatsLogger(eng.Counters(), store, logger, cfg.MetricsInterval).Run(ctx)
	}

	// Prometheus endpoint
	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(eng.Counters(), store, cfg.MetricsAddr)
		go func() {
			if err := exporter.Start(); err != nil {
				logger.Error("Metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := exporter.Shutdown(shutdownCtx); err != nil {
				logger.Error("Metrics server shutdown failed", "error", err)
			}
		}()
		logger.Info("Serving metrics", "addr", fmt.Sprintf("http://%s/metrics", cfg.MetricsAddr))
	}

	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	elapsed := time.Since(start)

	printSummary(ctx, cfg, store, eng.Counters(), elapsed)
	return nil
}

// printSummary writes the end-of-crawl totals to stdout.
func printSummary(ctx context.Context, cfg *config.Config, store frontier.Store, counters *metrics.Counters, elapsed time.Duration) {
	t := counters.Snapshot()

	fmt.Printf("Crawl finished in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  pages:      %d\n", t.Pages)
	fmt.Printf("  errors:     %d\n", t.Errors)
	fmt.Printf("  skipped:    %d\n", t.Skipped)
	fmt.Printf("  downloaded: %.1f MB\n", float64(t.Bytes)/(1024*1024))
	fmt.Printf("  output:     %s\n", cfg.OutputPath)

	// CountByState uses a fresh context: the crawl context is usually
	// canceled by the time the summary prints.
	counts, err := store.CountByState(context.WithoutCancel(ctx))
	if err != nil {
		return
	}
	if pending := counts[model.StatePending]; pending > 0 && cfg.StorePath != "" {
		fmt.Printf("  pending:    %d (resume with --store %s --resume)\n", pending, cfg.StorePath)
	}
}
