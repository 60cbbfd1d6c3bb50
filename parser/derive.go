package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/cfscrape/models"
)

const secondsPerDay = 60 * 60 * 24

// Division labels a contest by the first of "Div. 1" / "Div. 2" found in its name.
func Division(name string) string {
	switch {
	case strings.Contains(name, "Div. 1"):
		return "Div. 1"
	case strings.Contains(name, "Div. 2"):
		return "Div. 2"
	default:
		return "Unknown"
	}
}

// RegistrationPeriodDays returns the whole days since registration, or nil when the
// registration time is absent.
func RegistrationPeriodDays(now time.Time, registered *int64) *int64 {
	if registered == nil || *registered == 0 {
		return nil
	}
	days := floorDiv(now.Unix()-*registered, secondsPerDay)
	return &days
}

// StartDate formats a start timestamp as a UTC calendar date, or "" when absent.
func StartDate(start *int64) string {
	if start == nil || *start == 0 {
		return ""
	}
	return time.Unix(*start, 0).UTC().Format(time.DateOnly)
}

// ProblemKey identifies a problem as "{contestId}_{index}".
func ProblemKey(contestID int, index string) string {
	return strconv.Itoa(contestID) + "_" + index
}

// SolvedCounts indexes problem statistics by ProblemKey.
func SolvedCounts(stats []models.ProblemStatistic) map[string]int {
	out := make(map[string]int, len(stats))
	for _, stat := range stats {
		out[ProblemKey(stat.ContestID, stat.Index)] = stat.SolvedCount
	}
	return out
}

// SolvedCount looks up the solved count of p, defaulting to 0.
func SolvedCount(counts map[string]int, p models.Problem) int {
	if p.ContestID == nil {
		return 0
	}
	return counts[ProblemKey(*p.ContestID, p.Index)]
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Participants returns the party names of rows in API order.
func Participants(rows []models.RanklistRow) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Party.Name())
	}
	return out
}

// FinalStandings pairs party names with ranks in API order; rows are not re-sorted.
func FinalStandings(rows []models.RanklistRow) []models.Standing {
	out := make([]models.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Standing{Name: row.Party.Name(), Rank: row.Rank})
	}
	return out
}

// ProblemIDs returns "{contestId}_{index}" for each problem in API order.
func ProblemIDs(contestID int, problems []models.Problem) []string {
	out := make([]string, 0, len(problems))
	for _, p := range problems {
		out = append(out, ProblemKey(contestID, p.Index))
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
