package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rfarchive/rfarchive/internal/archive"
	"github.com/rfarchive/rfarchive/internal/checkpoint"
	"github.com/rfarchive/rfarchive/internal/clock/system"
	"github.com/rfarchive/rfarchive/internal/config"
	"github.com/rfarchive/rfarchive/internal/fetcher"
	"github.com/rfarchive/rfarchive/internal/logging"
	"github.com/rfarchive/rfarchive/internal/metrics"
	"github.com/rfarchive/rfarchive/internal/politeness"
	"github.com/rfarchive/rfarchive/internal/scheduler"
	"github.com/rfarchive/rfarchive/internal/site"
	contentstore "github.com/rfarchive/rfarchive/internal/store/content"
	"github.com/rfarchive/rfarchive/internal/store/index"
)

func newCrawlCmd() *cobra.Command {
	var sites []string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the configured sites into the local archive",
		Long: `Crawls the selected language editions: enumerates the monthly article
feeds, fetches article pages and images, deduplicates content by hash and
records everything in the archive index. Interrupting the crawl is safe; the
next run resumes from the last checkpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, sites)
		},
	}
	cmd.Flags().StringSliceVarP(&sites, "sites", "w", nil, "sites to crawl (default: all); see 'rfarchive sites'")
	return cmd
}

func runCrawl(cmd *cobra.Command, siteNames []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if len(siteNames) == 0 {
		siteNames = cfg.Sites
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is unactionable

	selected, err := selectSites(siteNames)
	if err != nil {
		return err
	}

	metrics.Init()
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	adapters, err := site.Adapters(selected)
	if err != nil {
		return err
	}

	limiter := politeness.New(cfg.DefaultDelay(), siteDelays(cfg))
	fet, err := fetcher.New(fetcher.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.Timeout(),
		ProxyURL:    cfg.Proxy,
		MaxAttempts: cfg.HTTP.MaxAttempts,
		BackoffBase: cfg.BackoffInitial(),
		BackoffMax:  cfg.BackoffMax(),
	}, limiter, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}

	content, err := contentstore.New(cfg.ContentDir())
	if err != nil {
		return fmt.Errorf("init content store: %w", err)
	}
	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		return fmt.Errorf("open archive index: %w", err)
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil {
			logger.Warn("close index failed", zap.Error(cerr))
		}
	}()
	checkpoints, err := checkpoint.New(cfg.CheckpointDir())
	if err != nil {
		return fmt.Errorf("init checkpoint store: %w", err)
	}

	sched := scheduler.New(adapters, fet, content, idx, checkpoints, system.New(), scheduler.Config{
		WorkersPerSite:  cfg.Crawler.WorkersPerSite,
		CheckpointEvery: cfg.Crawler.CheckpointEvery,
		WindowDoneLag:   cfg.Crawler.WindowDoneLagMonths,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summaries, err := sched.Run(ctx)
	reportSummaries(logger, summaries)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("crawl: %w", err)
	}
	return nil
}

// selectSites resolves the configured site names, defaulting to every
// supported edition when none are given.
func selectSites(names []string) ([]archive.Site, error) {
	if len(names) == 0 {
		return archive.AllSites(), nil
	}
	sites := make([]archive.Site, 0, len(names))
	for _, name := range names {
		s, err := site.ForName(name)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, nil
}

func siteDelays(cfg config.Config) map[archive.Site]time.Duration {
	if len(cfg.Crawler.SiteDelaysMs) == 0 {
		return nil
	}
	delays := make(map[archive.Site]time.Duration, len(cfg.Crawler.SiteDelaysMs))
	for name, ms := range cfg.Crawler.SiteDelaysMs {
		s, err := site.ForName(name)
		if err != nil {
			continue
		}
		delays[s] = time.Duration(ms) * time.Millisecond
	}
	return delays
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}

func reportSummaries(logger *zap.Logger, summaries map[archive.Site]*archive.Summary) {
	for s, sum := range summaries {
		logger.Info("crawl summary",
			zap.String("site", string(s)),
			zap.Int("fetched", sum.Fetched),
			zap.Int("skipped_duplicate", sum.SkippedDuplicate),
			zap.Int("not_found", sum.NotFound),
			zap.Int("parse_failed", sum.ParseFailed),
			zap.Int("errored", sum.Errored),
		)
	}
}
