package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/cfscrape/models"
)

func printSummary(results []*models.BatchResult, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	for _, result := range results {
		fmt.Printf("  %s\n", result.Kind)
		fmt.Printf("    Listed:        %d\n", result.ListedCount)
		fmt.Printf("    Written:       %d\n", result.WrittenCount)
		if result.Duplicates > 0 {
			fmt.Printf("    Duplicates:    %d\n", result.Duplicates)
		}
		if result.APIErrorCount > 0 {
			fmt.Printf("    API errors:    %d\n", result.APIErrorCount)
		}
		if result.FetchErrorCount > 0 {
			fmt.Printf("    Fetch errors:  %d (%s)\n", result.FetchErrorCount, formatCounts(result.FetchErrors))
		}
		if len(result.Misses) > 0 {
			fmt.Printf("    Misses:        %s\n", formatCounts(result.Misses))
		}
		fmt.Printf("    Duration:      %v\n", result.Duration())
		fmt.Printf("    Output file:   %s\n", result.OutputFile)
	}
	fmt.Printf("  Total duration: %v\n", duration)
	fmt.Println(separator)
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
