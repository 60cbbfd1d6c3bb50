// Package scraper drives the users, contests and problems batches: it lists records
// through the API client, fetches the pages behind them, merges both sources and
// hands the rows to the output pipeline.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/cfscrape/api"
	"github.com/aluiziolira/cfscrape/config"
	"github.com/aluiziolira/cfscrape/models"
	"github.com/aluiziolira/cfscrape/parser"
	"github.com/aluiziolira/cfscrape/pipeline"
)

// Scraper runs batches sequentially; rows leave in API list order.
type Scraper struct {
	cfg       *config.Config
	api       *api.Client
	fetcher   *Fetcher
	extractor parser.Extractor
	logger    *slog.Logger
	now       func() time.Time
	Metrics   *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, logger *slog.Logger) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := NewMetrics()

	fetcher, err := NewFetcher(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(cfg, logger)
	client.SetObserver(metrics)

	return &Scraper{
		cfg:       cfg,
		api:       client,
		fetcher:   fetcher,
		extractor: parser.NewClassExtractor(),
		logger:    logger.With(slog.String("component", "scraper")),
		now:       time.Now,
		Metrics:   metrics,
	}, nil
}

// SetTransport routes both API calls and page fetches through rt.
func (s *Scraper) SetTransport(rt http.RoundTripper) {
	s.api.SetTransport(rt)
	s.fetcher.SetTransport(rt)
}

// SetClock overrides the time source used for API calls and registration ages.
func (s *Scraper) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.now = now
	s.api.SetClock(now)
}

// SetExtractor swaps the markup extraction strategy.
func (s *Scraper) SetExtractor(x parser.Extractor) {
	if x != nil {
		s.extractor = x
	}
}

// RunAll runs the users, contests and problems batches in that order. The users
// batch is skipped when no user source is configured. A failed batch does not
// stop the ones after it.
func (s *Scraper) RunAll(ctx context.Context) ([]*models.BatchResult, error) {
	var (
		results []*models.BatchResult
		errs    []error
	)
	runs := []func(context.Context) (*models.BatchResult, error){s.RunUsers, s.RunContests, s.RunProblems}
	if err := s.cfg.ValidateUserSource(); err != nil {
		s.logger.Warn("skipping users batch", slog.Any("error", err))
		runs = runs[1:]
	}
	for _, run := range runs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := run(ctx)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// RunUsers lists users, scrapes each profile page and appends the rows to the user output.
func (s *Scraper) RunUsers(ctx context.Context) (*models.BatchResult, error) {
	result := s.newResult(models.KindUsers, s.cfg.UserOutput)
	if err := s.cfg.ValidateUserSource(); err != nil {
		return s.finish(result), err
	}

	users, err := s.listUsers(ctx)
	if err != nil {
		s.logger.Error("listing users failed", slog.Any("error", err))
		return s.finish(result), fmt.Errorf("list users: %w", err)
	}
	if s.cfg.MaxUsers > 0 && len(users) > s.cfg.MaxUsers {
		users = users[:s.cfg.MaxUsers]
	}
	result.ListedCount = len(users)

	err = s.writeBatch(ctx, result, func(emit func(pipeline.Record) error) error {
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return err
			}
			profile := s.scrapeProfile(ctx, result, u.Handle)
			if err := emit(parser.MergeUser(u, profile, s.now())); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finish(result), err
}

// RunContests lists contests, fetches each contest's standings once and rewrites the
// contest output.
func (s *Scraper) RunContests(ctx context.Context) (*models.BatchResult, error) {
	result := s.newResult(models.KindContests, s.cfg.ContestOutput)

	contests, err := s.api.ContestList(ctx, s.cfg.IncludeGym)
	if err != nil {
		s.logger.Error("listing contests failed", slog.Any("error", err))
		return s.finish(result), fmt.Errorf("list contests: %w", err)
	}
	contests = s.selectContests(contests)
	result.ListedCount = len(contests)

	err = s.writeBatch(ctx, result, func(emit func(pipeline.Record) error) error {
		for _, c := range contests {
			if err := ctx.Err(); err != nil {
				return err
			}
			standings, err := s.api.ContestStandings(ctx, c.ID, s.cfg.StandingsCount)
			if err != nil {
				result.APIErrorCount++
				s.logger.Error("standings lookup failed",
					slog.Int("contest_id", c.ID),
					slog.Any("error", err),
				)
				standings = nil
			}
			if err := emit(parser.MergeContest(c, standings)); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finish(result), err
}

// RunProblems lists problems with their statistics, scrapes each problem page and
// rewrites the problem output.
func (s *Scraper) RunProblems(ctx context.Context) (*models.BatchResult, error) {
	result := s.newResult(models.KindProblems, s.cfg.ProblemOutput)

	problemset, err := s.api.ProblemsetProblems(ctx, s.cfg.ProblemTags)
	if err != nil {
		s.logger.Error("listing problems failed", slog.Any("error", err))
		return s.finish(result), fmt.Errorf("list problems: %w", err)
	}
	solved := parser.SolvedCounts(problemset.ProblemStatistics)
	problems := problemset.Problems
	if s.cfg.MaxProblems > 0 && len(problems) > s.cfg.MaxProblems {
		problems = problems[:s.cfg.MaxProblems]
	}
	result.ListedCount = len(problems)

	err = s.writeBatch(ctx, result, func(emit func(pipeline.Record) error) error {
		for _, p := range problems {
			if err := ctx.Err(); err != nil {
				return err
			}
			page := s.scrapeProblem(ctx, result, p)
			if err := emit(parser.MergeProblem(p, solved, page)); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finish(result), err
}

func (s *Scraper) listUsers(ctx context.Context) ([]models.User, error) {
	if s.cfg.RatedUsers {
		return s.api.RatedList(ctx, s.cfg.ActiveOnly)
	}
	return s.api.UserInfo(ctx, s.cfg.Handles)
}

func (s *Scraper) selectContests(contests []models.Contest) []models.Contest {
	if s.cfg.FinishedOnly {
		kept := contests[:0:0]
		for _, c := range contests {
			if c.Phase == models.PhaseFinished {
				kept = append(kept, c)
			}
		}
		contests = kept
	}
	if s.cfg.MaxContests > 0 && len(contests) > s.cfg.MaxContests {
		contests = contests[:s.cfg.MaxContests]
	}
	return contests
}

func (s *Scraper) scrapeProfile(ctx context.Context, result *models.BatchResult, handle string) parser.ProfileFields {
	pageURL := s.fetcher.ProfileURL(handle)
	body, err := s.fetcher.Fetch(ctx, PageProfile, pageURL)
	if err != nil {
		s.recordFetchError(result, pageURL, err)
		return parser.UnavailableProfile()
	}
	fields := parser.ExtractProfile(s.extractor, body)
	s.recordMisses(result, pageURL, fields.Misses())
	return fields
}

func (s *Scraper) scrapeProblem(ctx context.Context, result *models.BatchResult, p models.Problem) parser.ProblemFields {
	if p.ContestID == nil {
		s.logger.Info("problem has no contest page",
			slog.String("problemset", p.ProblemsetName),
			slog.String("index", p.Index),
		)
		return parser.UnavailableProblem()
	}
	pageURL := s.fetcher.ProblemURL(*p.ContestID, p.Index)
	body, err := s.fetcher.Fetch(ctx, PageProblem, pageURL)
	if err != nil {
		s.recordFetchError(result, pageURL, err)
		return parser.UnavailableProblem()
	}
	fields := parser.ExtractProblem(s.extractor, body)
	s.recordMisses(result, pageURL, fields.Misses())
	return fields
}

func (s *Scraper) recordFetchError(result *models.BatchResult, pageURL string, err error) {
	category := errorTypeLabel(err)
	result.FetchErrorCount++
	result.FetchErrors[category]++
	s.logger.Error("page fetch failed",
		slog.String("url", pageURL),
		slog.String("category", category),
		slog.Any("error", err),
	)
}

func (s *Scraper) recordMisses(result *models.BatchResult, pageURL string, fields []string) {
	for _, field := range fields {
		result.Misses[field]++
		s.Metrics.IncMiss(field)
		s.logger.Info("field not found on page",
			slog.String("field", field),
			slog.String("url", pageURL),
		)
	}
}

// writeBatch opens the output for result.Kind only once the list is known, so a
// failed list call never truncates an existing file.
func (s *Scraper) writeBatch(ctx context.Context, result *models.BatchResult, produce func(emit func(pipeline.Record) error) error) (err error) {
	writer, err := pipeline.CreateWriter(s.cfg.OutputFormat, result.OutputFile, result.Kind)
	if err != nil {
		return fmt.Errorf("create %s writer: %w", result.Kind, err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close %s writer: %w", result.Kind, closeErr))
		}
	}()

	p, err := pipeline.NewPipeline(writer, s.cfg, s.logger)
	if err != nil {
		return err
	}
	if s.cfg.Verbose {
		reportCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		p.StartMetricsReporting(reportCtx, 10*time.Second)
	}

	produceErr := produce(func(record pipeline.Record) error {
		return p.Process(record)
	})
	closeErr := p.Close()

	result.WrittenCount = int(p.Written())
	result.Duplicates = p.Skipped("duplicate_key")
	s.Metrics.AddRows(string(result.Kind), result.WrittenCount)

	if produceErr != nil {
		return fmt.Errorf("%s batch: %w", result.Kind, produceErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%s batch: %w", result.Kind, closeErr)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("validate %s output: %w", result.Kind, err)
	}
	s.logger.Info("batch written",
		slog.String("kind", string(result.Kind)),
		slog.String("output", result.OutputFile),
		slog.Int("rows", result.WrittenCount),
	)
	return nil
}

func (s *Scraper) newResult(kind models.Kind, output string) *models.BatchResult {
	return &models.BatchResult{
		Kind:        kind,
		OutputFile:  output,
		StartTime:   s.now(),
		FetchErrors: make(map[string]int),
		Misses:      make(map[string]int),
	}
}

func (s *Scraper) finish(result *models.BatchResult) *models.BatchResult {
	result.EndTime = s.now()
	return result
}
