// cmd/marktscout/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valpere/MarktScout/internal/config"
	"github.com/valpere/MarktScout/internal/monitoring"
	"github.com/valpere/MarktScout/internal/output"
	"github.com/valpere/MarktScout/internal/proxy"
	"github.com/valpere/MarktScout/internal/scraper"
	"github.com/valpere/MarktScout/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "marktscout: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("marktscout", flag.ContinueOnError)

	var (
		configFile  = fs.String("config", "", "YAML configuration file")
		keywords    = fs.String("keywords", "", "search keywords, comma or newline separated")
		keywordFile = fs.String("keyword-file", "", "file with keywords, one per line")
		proxyFile   = fs.String("proxy-file", "", "proxy list file (host:port:username:password per line)")
		pages       = fs.Int("pages", 0, "pages to scrape per keyword (default from config)")
		maxLinks    = fs.Int("max-links", 0, "listing link cap per keyword")
		workers     = fs.Int("workers", 0, "concurrent fetch workers")
		delay       = fs.Duration("delay", 0, "delay before each search page request")
		outDir      = fs.String("out", "", "output directory")
		format      = fs.String("format", "", "output format: csv or excel")
		metricsAddr = fs.String("metrics-addr", "", "expose /metrics and /healthz on this address")
		showVersion = fs.Bool("version", false, "print version and exit")
		verbose     = fs.Bool("v", false, "verbose logging")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Printf("marktscout %s (built %s)\n", version, buildTime)
		return nil
	}

	cfg, err := buildConfig(*configFile)
	if err != nil {
		return err
	}

	// Flags override file settings.
	if *keywords != "" {
		cfg.Keywords = config.ParseKeywords(*keywords)
	}
	if *keywordFile != "" {
		data, err := os.ReadFile(*keywordFile)
		if err != nil {
			return fmt.Errorf("failed to read keyword file: %w", err)
		}
		cfg.Keywords = append(cfg.Keywords, config.ParseKeywords(string(data))...)
	}
	if *pages != 0 {
		if *pages < 1 {
			return fmt.Errorf("page count must be a positive number, got %d", *pages)
		}
		cfg.DefaultPagesPerRun = *pages
	}
	if *maxLinks > 0 {
		cfg.MaxLinksPerKeyword = *maxLinks
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *delay > 0 {
		cfg.RequestDelay = *delay
	}
	if *proxyFile != "" {
		cfg.ProxyFile = *proxyFile
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *format != "" {
		cfg.OutputFormat = *format
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.Keywords) == 0 {
		return fmt.Errorf("no keywords given: use -keywords, -keyword-file or a config file")
	}

	level := utils.InfoLevel
	if cfg.Verbose {
		level = utils.DebugLevel
	}
	logger := utils.NewLoggerWithLevel(level)

	pool, err := loadProxies(cfg.ProxyFile, logger)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics()
	if cfg.MetricsAddr != "" {
		srv := monitoring.NewServer(metrics, cfg.MetricsAddr)
		defer srv.Close()
		errCh := srv.Start()
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				logger.Warnf("metrics listener failed: %v", err)
			}
		}()
		logger.Infof("metrics available on %s/metrics", cfg.MetricsAddr)
	}

	progress := func(msg string) {
		fmt.Println(msg)
	}

	engine := scraper.NewEngine(cfg, logger, pool, metrics, progress)

	start := time.Now()
	results, err := engine.Run(context.Background())
	if err != nil {
		return fmt.Errorf("scraping run failed: %w", err)
	}
	elapsed := time.Since(start)

	printSummary(results, elapsed)

	if err := writeExports(cfg, results); err != nil {
		// The run itself succeeded; make sure the operator knows the data
		// exists even though delivery failed.
		return fmt.Errorf("data was collected (%d valid records) but file delivery failed: %w",
			len(results.Records), err)
	}

	return nil
}

// buildConfig loads the config file when given, otherwise starts from
// defaults.
func buildConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.New(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProxies reads the proxy list file. A missing setting means direct
// connections; malformed lines are dropped silently by the parser.
func loadProxies(path string, logger utils.Logger) (*proxy.Pool, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer file.Close()

	pool, err := proxy.LoadList(file)
	if err != nil {
		return nil, err
	}
	if pool.Size() == 0 {
		logger.Warn("no valid proxies found, continuing with direct connections")
		return nil, nil
	}
	logger.Infof("loaded %d proxies", pool.Size())
	return pool, nil
}

func writeExports(cfg *config.Config, results *scraper.Results) error {
	ext := output.Extension(cfg.OutputFormat)
	for _, ds := range output.Datasets(results) {
		path := filepath.Join(cfg.OutputDir, ds.Name+ext)
		if err := output.Write(ds, path, cfg.OutputFormat); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d rows)\n", path, len(ds.Rows))
	}
	return nil
}

func printSummary(results *scraper.Results, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("=== Scraping complete ===")
	fmt.Printf("Time:          %.1fs\n", elapsed.Seconds())
	fmt.Printf("Valid records: %d\n", len(results.Records))
	fmt.Printf("Phone numbers: %d\n", len(results.Phones))
	fmt.Printf("Links:         %d\n", len(results.Links))
	fmt.Println("Filtered:")
	for _, reason := range scraper.AllSkipReasons {
		fmt.Printf("  %-16s %d\n", string(reason)+":", results.Stats[reason])
	}
	fmt.Println()
}
