package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	APIBaseURL       string
	SiteBaseURL      string
	UserAgent        string
	Timeout          time.Duration
	Delay            time.Duration
	RespectRobotsTxt bool
	PageCacheSize    int
	DedupeMaxSize    int
	BatchSize        int

	UserOutput    string
	ContestOutput string
	ProblemOutput string
	OutputFormat  string // csv, json, or dual

	Handles        []string
	RatedUsers     bool
	ActiveOnly     bool
	MaxUsers       int
	MaxContests    int
	MaxProblems    int
	IncludeGym     bool
	FinishedOnly   bool
	ProblemTags    []string
	StandingsCount int

	Verbose     bool
	MetricsAddr string
}

// DefaultConfig returns defaults pointed at the public Codeforces endpoints.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:       "https://codeforces.com/api",
		SiteBaseURL:      "https://codeforces.com",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Timeout:          30 * time.Second,
		Delay:            0,
		RespectRobotsTxt: false,
		PageCacheSize:    256,
		DedupeMaxSize:    100000,
		BatchSize:        64,
		UserOutput:       "user_data.csv",
		ContestOutput:    "contest_data.csv",
		ProblemOutput:    "problem_data.csv",
		OutputFormat:     "csv",
		ActiveOnly:       true,
		FinishedOnly:     false,
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateBaseURL("API base URL", c.APIBaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("site base URL", c.SiteBaseURL); err != nil {
		return err
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.PageCacheSize <= 0 {
		return fmt.Errorf("page cache size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.UserOutput == "" || c.ContestOutput == "" || c.ProblemOutput == "" {
		return fmt.Errorf("output files cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.MaxUsers < 0 {
		return fmt.Errorf("max users cannot be negative")
	}
	if c.MaxContests < 0 {
		return fmt.Errorf("max contests cannot be negative")
	}
	if c.MaxProblems < 0 {
		return fmt.Errorf("max problems cannot be negative")
	}
	if c.StandingsCount < 0 {
		return fmt.Errorf("standings count cannot be negative")
	}
	return nil
}

// ValidateUserSource checks that the users batch has something to fetch.
func (c *Config) ValidateUserSource() error {
	if len(c.Handles) == 0 && !c.RatedUsers {
		return fmt.Errorf("users batch needs handles or the rated list")
	}
	if len(c.Handles) > 0 && c.RatedUsers {
		return fmt.Errorf("handles and the rated list are mutually exclusive")
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
