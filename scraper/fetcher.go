package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/cfscrape/config"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// PageKind names the page families the fetcher loads.
type PageKind string

const (
	PageProfile PageKind = "profile"
	PageProblem PageKind = "problem"
)

const (
	ctxStart = "start"
	ctxBody  = "body"
	ctxError = "error"
)

// Fetcher loads site pages one at a time through a colly collector and keeps the
// bodies of successful fetches in an LRU cache.
type Fetcher struct {
	collector *colly.Collector
	siteURL   string
	cache     *lru.Cache[string, []byte]
	metrics   *Metrics
	logger    *slog.Logger

	mu sync.Mutex
}

// NewFetcher builds a fetcher for cfg.SiteBaseURL.
func NewFetcher(cfg *config.Config, logger *slog.Logger, metrics *Metrics) (*Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parsed, err := url.Parse(cfg.SiteBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("site url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	cache, err := lru.New[string, []byte](cfg.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	f := &Fetcher{
		collector: collector,
		siteURL:   strings.TrimSuffix(cfg.SiteBaseURL, "/"),
		cache:     cache,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "fetcher")),
	}
	f.configureHandlers()
	return f, nil
}

// SetTransport replaces the collector transport, used by tests to plug in mocks.
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// ProfileURL is the profile page of handle.
func (f *Fetcher) ProfileURL(handle string) string {
	return f.siteURL + "/profile/" + url.PathEscape(handle)
}

// ProblemURL is the English statement page of a contest problem.
func (f *Fetcher) ProblemURL(contestID int, index string) string {
	return fmt.Sprintf("%s/contest/%d/problem/%s?locale=en", f.siteURL, contestID, url.PathEscape(index))
}

// Fetch returns the body of pageURL. Failures come back as HTTPError or NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, kind PageKind, pageURL string) ([]byte, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if body, ok := f.cache.Get(pageURL); ok {
		f.metrics.IncPageFetch(kind, "cache_hit")
		return body, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	reqCtx := colly.NewContext()
	err := f.collector.Request(http.MethodGet, pageURL, nil, reqCtx, nil)
	if failure, ok := reqCtx.GetAny(ctxError).(error); ok && failure != nil {
		err = failure
	} else if err != nil {
		err = fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if start, ok := reqCtx.GetAny(ctxStart).(time.Time); ok {
		f.metrics.ObserveDuration(time.Since(start))
	}
	if err != nil {
		f.metrics.IncPageFetch(kind, "error")
		f.metrics.IncError(errorTypeLabel(err))
		return nil, err
	}

	body, _ := reqCtx.GetAny(ctxBody).([]byte)
	f.cache.Add(pageURL, body)
	f.metrics.IncPageFetch(kind, "ok")
	f.logger.Debug("page fetched",
		slog.String("page", string(kind)),
		slog.String("url", pageURL),
		slog.Int("bytes", len(body)),
	)
	return body, nil
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put(ctxStart, time.Now())
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		pageURL := ""
		if r != nil {
			statusCode = r.StatusCode
			if r.Request != nil && r.Request.URL != nil {
				pageURL = r.Request.URL.String()
			}
		}
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxError, classifyError(pageURL, err, statusCode))
		}
	})
}
