package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/cfscrape/config"
	"github.com/aluiziolira/cfscrape/models"
	"github.com/aluiziolira/cfscrape/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type options struct {
	cfg      *config.Config
	handles  string
	tags     string
	delayMs  int
	timeoutS int
}

func newRootCmd() (*cobra.Command, error) {
	opts := &options{cfg: config.DefaultConfig()}

	cmd := &cobra.Command{
		Use:           "cfscrape",
		Short:         "Export Codeforces users, contests and problems to CSV",
		Long:          "cfscrape reads the Codeforces API, scrapes the profile and problem pages behind it and writes one file per record kind.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.finalize()
		},
	}

	if err := opts.bindFlags(cmd); err != nil {
		return nil, err
	}

	cmd.AddCommand(
		newBatchCmd(opts, "users", "Append user rows for --handles or the rated list", func(ctx context.Context, s *scraper.Scraper) ([]*models.BatchResult, error) {
			return single(s.RunUsers(ctx))
		}),
		newBatchCmd(opts, "contests", "Rewrite the contest file from contest.list and standings", func(ctx context.Context, s *scraper.Scraper) ([]*models.BatchResult, error) {
			return single(s.RunContests(ctx))
		}),
		newBatchCmd(opts, "problems", "Rewrite the problem file from problemset.problems and problem pages", func(ctx context.Context, s *scraper.Scraper) ([]*models.BatchResult, error) {
			return single(s.RunProblems(ctx))
		}),
		newBatchCmd(opts, "all", "Run the users, contests and problems batches", func(ctx context.Context, s *scraper.Scraper) ([]*models.BatchResult, error) {
			return s.RunAll(ctx)
		}),
	)
	return cmd, nil
}

func (o *options) bindFlags(cmd *cobra.Command) error {
	cfg := o.cfg
	if value, ok := config.EnvString("CFSCRAPE_API_URL"); ok {
		cfg.APIBaseURL = value
	}
	if value, ok := config.EnvString("CFSCRAPE_SITE_URL"); ok {
		cfg.SiteBaseURL = value
	}
	if value, ok := config.EnvString("CFSCRAPE_USER_OUTPUT"); ok {
		cfg.UserOutput = value
	}
	if value, ok := config.EnvString("CFSCRAPE_CONTEST_OUTPUT"); ok {
		cfg.ContestOutput = value
	}
	if value, ok := config.EnvString("CFSCRAPE_PROBLEM_OUTPUT"); ok {
		cfg.ProblemOutput = value
	}
	if value, ok := config.EnvString("CFSCRAPE_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if value, ok := config.EnvString("CFSCRAPE_HANDLES"); ok {
		o.handles = value
	}
	if value, ok, err := config.EnvInt("CFSCRAPE_MAX_CONTESTS"); err != nil {
		return err
	} else if ok {
		cfg.MaxContests = value
	}
	if value, ok, err := config.EnvInt("CFSCRAPE_MAX_PROBLEMS"); err != nil {
		return err
	} else if ok {
		cfg.MaxProblems = value
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "API base URL")
	flags.StringVar(&cfg.SiteBaseURL, "site-url", cfg.SiteBaseURL, "Site base URL for profile and problem pages")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent sent with every request")
	flags.IntVar(&o.timeoutS, "timeout", int(cfg.Timeout/time.Second), "Request timeout (seconds)")
	flags.IntVar(&o.delayMs, "delay", 0, "Delay between page fetches (milliseconds)")
	flags.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	flags.StringVar(&cfg.UserOutput, "user-output", cfg.UserOutput, "User output file (appended)")
	flags.StringVar(&cfg.ContestOutput, "contest-output", cfg.ContestOutput, "Contest output file (overwritten)")
	flags.StringVar(&cfg.ProblemOutput, "problem-output", cfg.ProblemOutput, "Problem output file (overwritten)")
	flags.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	flags.StringVar(&o.handles, "handles", o.handles, "Comma or semicolon separated handles for the users batch")
	flags.BoolVar(&cfg.RatedUsers, "rated", cfg.RatedUsers, "Take users from user.ratedList instead of --handles")
	flags.BoolVar(&cfg.ActiveOnly, "active-only", cfg.ActiveOnly, "Only active users from the rated list")
	flags.IntVar(&cfg.MaxUsers, "max-users", cfg.MaxUsers, "Maximum users to process (0 = all)")
	flags.IntVar(&cfg.MaxContests, "max-contests", cfg.MaxContests, "Maximum contests to process (0 = all)")
	flags.IntVar(&cfg.MaxProblems, "max-problems", cfg.MaxProblems, "Maximum problems to process (0 = all)")
	flags.BoolVar(&cfg.IncludeGym, "gym", cfg.IncludeGym, "List gym contests")
	flags.BoolVar(&cfg.FinishedOnly, "finished-only", cfg.FinishedOnly, "Skip contests that have not finished")
	flags.IntVar(&cfg.StandingsCount, "standings-count", cfg.StandingsCount, "Standings rows per contest (0 = all)")
	flags.StringVar(&o.tags, "tags", "", "Comma or semicolon separated problem tags")
	flags.IntVar(&cfg.PageCacheSize, "page-cache", cfg.PageCacheSize, "Number of fetched pages kept in memory")
	flags.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows buffered per write")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	return nil
}

func (o *options) finalize() error {
	cfg := o.cfg
	cfg.Timeout = time.Duration(o.timeoutS) * time.Second
	cfg.Delay = time.Duration(o.delayMs) * time.Millisecond
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.Handles = config.SplitList(o.handles)
	cfg.ProblemTags = config.SplitList(o.tags)
	return cfg.Validate()
}

type batchFunc func(ctx context.Context, s *scraper.Scraper) ([]*models.BatchResult, error)

func single(result *models.BatchResult, err error) ([]*models.BatchResult, error) {
	if result == nil {
		return nil, err
	}
	return []*models.BatchResult{result}, err
}

func newBatchCmd(opts *options, use, short string, run batchFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), opts.cfg, use, run)
		},
	}
}

func execute(ctx context.Context, cfg *config.Config, name string, run batchFunc) error {
	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	logger.Info("starting scrape",
		slog.String("batch", name),
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("format", cfg.OutputFormat),
	)

	s, err := scraper.NewScraper(cfg, logger)
	if err != nil {
		logger.Error("initialising scraper", slog.Any("error", err))
		return err
	}

	stopMetrics := startMetricsServer(cfg.MetricsAddr, s.Metrics, logger)
	defer stopMetrics()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received, finishing current record")
	}()

	startTime := time.Now()
	results, err := run(ctx, s)
	printSummary(results, time.Since(startTime))
	if err != nil {
		logger.Error("scraping failed", slog.Any("error", err))
		return err
	}
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics, logger *slog.Logger) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
