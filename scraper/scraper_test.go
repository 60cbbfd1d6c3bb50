package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/cfscrape/api"
	"github.com/aluiziolira/cfscrape/config"
	"github.com/aluiziolira/cfscrape/models"
	"github.com/google/go-cmp/cmp"
	"github.com/jarcoal/httpmock"
)

const (
	siteBase = "https://codeforces.com"
	apiBase  = "https://codeforces.com/api/"
)

var fixedNow = time.Unix(1700000000, 0)

func newTestScraper(t *testing.T, mutate func(*config.Config)) (*Scraper, *httpmock.MockTransport, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.UserOutput = filepath.Join(dir, "user_data.csv")
	cfg.ContestOutput = filepath.Join(dir, "contest_data.csv")
	cfg.ProblemOutput = filepath.Join(dir, "problem_data.csv")
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewScraper(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	transport := httpmock.NewMockTransport()
	s.SetTransport(transport)
	s.SetClock(func() time.Time { return fixedNow })
	return s, transport, cfg
}

func okEnvelope(result string) string {
	return `{"status":"OK","result":` + result + `}`
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return rows
}

const contestList = `[
  {"id":1,"name":"Codeforces Beta Round 1, Div. 2","type":"CF","phase":"FINISHED","durationSeconds":7200,"startTimeSeconds":1266580800},
  {"id":2,"name":"Codeforces Beta Round 2","type":"CF","phase":"FINISHED","durationSeconds":7200,"startTimeSeconds":1267115400}
]`

const standingsContest1 = `{
  "contest":{"id":1,"name":"Codeforces Beta Round 1, Div. 2"},
  "problems":[{"contestId":1,"index":"A","name":"Theatre Square"},{"contestId":1,"index":"B","name":"Spreadsheets"}],
  "rows":[
    {"party":{"contestId":1,"teamName":"Alpha","members":[{"handle":"a1"},{"handle":"a2"}]},"rank":1},
    {"party":{"contestId":1,"members":[{"handle":"tourist"}]},"rank":2}
  ]
}`

const standingsContest2 = `{
  "contest":{"id":2,"name":"Codeforces Beta Round 2"},
  "problems":[{"contestId":2,"index":"A","name":"Winner"}],
  "rows":[{"party":{"contestId":2,"members":[{"handle":"Petr"}]},"rank":1}]
}`

func standingsResponder(t *testing.T, calls map[string]int, failing string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		id := req.URL.Query().Get("contestId")
		calls[id]++
		switch {
		case id == failing:
			return httpmock.NewStringResponse(400, `{"status":"FAILED","comment":"contestId: Contest with id `+id+` not found"}`), nil
		case id == "1":
			return httpmock.NewStringResponse(200, okEnvelope(standingsContest1)), nil
		case id == "2":
			return httpmock.NewStringResponse(200, okEnvelope(standingsContest2)), nil
		}
		t.Errorf("unexpected contestId %q", id)
		return httpmock.NewStringResponse(404, ""), nil
	}
}

func TestRunContestsEndToEnd(t *testing.T) {
	s, transport, cfg := newTestScraper(t, nil)
	calls := map[string]int{}
	transport.RegisterResponder("GET", apiBase+"contest.list", httpmock.NewStringResponder(200, okEnvelope(contestList)))
	transport.RegisterResponder("GET", apiBase+"contest.standings", standingsResponder(t, calls, ""))

	result, err := s.RunContests(context.Background())
	if err != nil {
		t.Fatalf("run contests: %v", err)
	}
	if result.ListedCount != 2 || result.WrittenCount != 2 {
		t.Fatalf("listed=%d written=%d, want 2/2", result.ListedCount, result.WrittenCount)
	}
	if calls["1"] != 1 || calls["2"] != 1 {
		t.Fatalf("standings calls = %v, want one per contest", calls)
	}

	raw, err := os.ReadFile(cfg.ContestOutput)
	if err != nil {
		t.Fatalf("read contest output: %v", err)
	}
	if lines := strings.Count(string(raw), "\n"); lines != 3 {
		t.Fatalf("contest output has %d lines, want 3", lines)
	}

	rows := readRows(t, cfg.ContestOutput)
	want := [][]string{
		models.ContestHeader,
		{"1", "Codeforces Beta Round 1, Div. 2", "2010-02-19", "Div. 2",
			"['Alpha', 'tourist']", "[('Alpha', 1), ('tourist', 2)]", "['1_A', '1_B']", "N/A", "N/A"},
		{"2", "Codeforces Beta Round 2", "2010-02-25", "Unknown",
			"['Petr']", "[('Petr', 1)]", "['2_A']", "N/A", "N/A"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("contest output mismatch (-want +got):\n%s", diff)
	}

	// A second run replaces the file instead of appending to it.
	if _, err := s.RunContests(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if diff := cmp.Diff(want, readRows(t, cfg.ContestOutput)); diff != "" {
		t.Fatalf("rerun output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunContestsStandingsFailureKeepsRow(t *testing.T) {
	s, transport, cfg := newTestScraper(t, nil)
	calls := map[string]int{}
	transport.RegisterResponder("GET", apiBase+"contest.list", httpmock.NewStringResponder(200, okEnvelope(contestList)))
	transport.RegisterResponder("GET", apiBase+"contest.standings", standingsResponder(t, calls, "2"))

	result, err := s.RunContests(context.Background())
	if err != nil {
		t.Fatalf("run contests: %v", err)
	}
	if result.APIErrorCount != 1 {
		t.Fatalf("api errors = %d, want 1", result.APIErrorCount)
	}

	rows := readRows(t, cfg.ContestOutput)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if got := rows[2][4:7]; !cmp.Equal(got, []string{"[]", "[]", "[]"}) {
		t.Fatalf("degraded columns = %v, want empty lists", got)
	}
	if rows[1][4] != "['Alpha', 'tourist']" {
		t.Fatalf("first contest participants = %q", rows[1][4])
	}
}

func TestRunContestsFiltersAndLimits(t *testing.T) {
	s, transport, cfg := newTestScraper(t, func(cfg *config.Config) {
		cfg.FinishedOnly = true
		cfg.MaxContests = 1
		cfg.IncludeGym = true
	})
	list := `[
	  {"id":3,"name":"Upcoming Round","phase":"BEFORE"},
	  {"id":2,"name":"Codeforces Beta Round 2","phase":"FINISHED"},
	  {"id":1,"name":"Codeforces Beta Round 1, Div. 2","phase":"FINISHED"}
	]`
	transport.RegisterResponder("GET", apiBase+"contest.list", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("gym") != "true" {
			t.Errorf("gym = %q, want true", req.URL.Query().Get("gym"))
		}
		return httpmock.NewStringResponse(200, okEnvelope(list)), nil
	})
	transport.RegisterResponder("GET", apiBase+"contest.standings", standingsResponder(t, map[string]int{}, ""))

	result, err := s.RunContests(context.Background())
	if err != nil {
		t.Fatalf("run contests: %v", err)
	}
	if result.ListedCount != 1 {
		t.Fatalf("listed = %d, want 1", result.ListedCount)
	}
	rows := readRows(t, cfg.ContestOutput)
	if len(rows) != 2 || rows[1][0] != "2" {
		t.Fatalf("rows = %v, want only contest 2", rows)
	}
	if rows[1][2] != "" {
		t.Fatalf("start date = %q, want empty for missing start time", rows[1][2])
	}
}

func TestRunContestsListFailureLeavesOutput(t *testing.T) {
	s, transport, cfg := newTestScraper(t, nil)
	if err := os.WriteFile(cfg.ContestOutput, []byte("previous run\n"), 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}
	transport.RegisterResponder("GET", apiBase+"contest.list",
		httpmock.NewStringResponder(503, `{"status":"FAILED","comment":"Call limit exceeded"}`))

	_, err := s.RunContests(context.Background())
	var apiErr api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Comment != "Call limit exceeded" {
		t.Fatalf("comment = %q", apiErr.Comment)
	}

	raw, err := os.ReadFile(cfg.ContestOutput)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(raw) != "previous run\n" {
		t.Fatalf("output was modified: %q", raw)
	}
}

const userProfile = `<html><body>
<div class="_UserActivityFrame_counterValue">1234 problems</div>
<div class="_UserActivityFrame_countersRow">
  <div class="_UserActivityFrame_counter">
    <div class="_UserActivityFrame_counterValue">57 days</div>
  </div>
</div>
</body></html>`

func TestRunUsersAppendsAcrossRuns(t *testing.T) {
	s, transport, cfg := newTestScraper(t, func(cfg *config.Config) {
		cfg.Handles = []string{"tourist"}
	})
	registered := fixedNow.Unix() - 172800
	users := `[{"handle":"tourist","country":"Belarus","contribution":120,"rating":3800,"friendOfCount":5000,"registrationTimeSeconds":` +
		strconv.FormatInt(registered, 10) + `}]`
	transport.RegisterResponder("GET", apiBase+"user.info", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("handles") != "tourist" {
			t.Errorf("handles = %q", req.URL.Query().Get("handles"))
		}
		return httpmock.NewStringResponse(200, okEnvelope(users)), nil
	})
	transport.RegisterResponder("GET", siteBase+"/profile/tourist", htmlResponder(userProfile))

	result, err := s.RunUsers(context.Background())
	if err != nil {
		t.Fatalf("run users: %v", err)
	}
	if len(result.Misses) != 0 || result.FetchErrorCount != 0 {
		t.Fatalf("misses=%v fetch errors=%d, want none", result.Misses, result.FetchErrorCount)
	}

	want := []string{"tourist", "", "120", "", "", "Belarus", "", "", "120", "3800", "2", "5000", "57", "1234"}
	rows := readRows(t, cfg.UserOutput)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Fatalf("user row mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.RunUsers(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	rows = readRows(t, cfg.UserOutput)
	if len(rows) != 3 {
		t.Fatalf("rows after rerun = %d, want 3", len(rows))
	}
	if rows[0][0] != "handle" || rows[2][0] != "tourist" {
		t.Fatalf("unexpected layout after rerun: %v", rows)
	}
}

func TestRunUsersProfileFailureUsesDefaults(t *testing.T) {
	s, transport, cfg := newTestScraper(t, func(cfg *config.Config) {
		cfg.Handles = []string{"ghost", "tourist"}
	})
	users := `[{"handle":"ghost"},{"handle":"tourist"}]`
	transport.RegisterResponder("GET", apiBase+"user.info", httpmock.NewStringResponder(200, okEnvelope(users)))
	transport.RegisterResponder("GET", siteBase+"/profile/ghost", httpmock.NewStringResponder(404, "not found"))
	transport.RegisterResponder("GET", siteBase+"/profile/tourist", htmlResponder(`<html><body>empty</body></html>`))

	result, err := s.RunUsers(context.Background())
	if err != nil {
		t.Fatalf("run users: %v", err)
	}
	if result.FetchErrors["not_found"] != 1 {
		t.Fatalf("fetch errors = %v, want one not_found", result.FetchErrors)
	}
	if result.Misses["streak"] != 1 || result.Misses["problems_solved"] != 1 {
		t.Fatalf("misses = %v, want streak and problems_solved once", result.Misses)
	}

	rows := readRows(t, cfg.UserOutput)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for _, row := range rows[1:] {
		if row[10] != "" || row[12] != "0" || row[13] != "0" {
			t.Fatalf("row %v: want empty registration days and zero counters", row)
		}
	}
}

func TestRunUsersRatedList(t *testing.T) {
	s, transport, cfg := newTestScraper(t, func(cfg *config.Config) {
		cfg.RatedUsers = true
		cfg.MaxUsers = 1
	})
	transport.RegisterResponder("GET", apiBase+"user.ratedList", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("activeOnly") != "true" {
			t.Errorf("activeOnly = %q, want true", req.URL.Query().Get("activeOnly"))
		}
		return httpmock.NewStringResponse(200, okEnvelope(`[{"handle":"tourist"},{"handle":"jiangly"}]`)), nil
	})
	transport.RegisterResponder("GET", siteBase+"/profile/tourist", htmlResponder(userProfile))

	result, err := s.RunUsers(context.Background())
	if err != nil {
		t.Fatalf("run users: %v", err)
	}
	if result.ListedCount != 1 {
		t.Fatalf("listed = %d, want 1", result.ListedCount)
	}
	if rows := readRows(t, cfg.UserOutput); len(rows) != 2 || rows[1][0] != "tourist" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestRunUsersRequiresSource(t *testing.T) {
	s, _, _ := newTestScraper(t, nil)
	if _, err := s.RunUsers(context.Background()); err == nil {
		t.Fatalf("expected error without a user source")
	}
}

const theatreSquare = `<html><body>
<div class="problem-statement">
  <div class="header">
    <div class="title">A. Theatre Square</div>
    <div class="time-limit"><div class="property-title">time limit per test</div>1 second</div>
    <div class="memory-limit"><div class="property-title">memory limit per test</div>256 megabytes</div>
  </div>
  <div><p>Theatre Square has a rectangular shape.</p></div>
</div>
</body></html>`

func TestRunProblems(t *testing.T) {
	s, transport, cfg := newTestScraper(t, nil)
	problemset := `{
	  "problems":[
	    {"contestId":1,"index":"A","name":"Theatre Square","type":"PROGRAMMING","rating":1000,"tags":["math"]},
	    {"contestId":1,"index":"B","name":"Spreadsheets","type":"PROGRAMMING","tags":["implementation","math"]}
	  ],
	  "problemStatistics":[{"contestId":1,"index":"A","solvedCount":42}]
	}`
	transport.RegisterResponder("GET", apiBase+"problemset.problems", httpmock.NewStringResponder(200, okEnvelope(problemset)))
	transport.RegisterResponder("GET", siteBase+"/contest/1/problem/A?locale=en", htmlResponder(theatreSquare))
	transport.RegisterResponder("GET", siteBase+"/contest/1/problem/B?locale=en", httpmock.NewStringResponder(500, "oops"))

	result, err := s.RunProblems(context.Background())
	if err != nil {
		t.Fatalf("run problems: %v", err)
	}
	if result.FetchErrors["http"] != 1 {
		t.Fatalf("fetch errors = %v, want one http", result.FetchErrors)
	}

	want := [][]string{
		models.ProblemHeader,
		{"1", "", "A", "Theatre Square", "1000", "math", "42", "1 second", "256 megabytes", "Theatre Square has a rectangular shape."},
		{"1", "", "B", "Spreadsheets", "", "implementation, math", "0", "N/A", "N/A", ""},
	}
	if diff := cmp.Diff(want, readRows(t, cfg.ProblemOutput)); diff != "" {
		t.Fatalf("problem output mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAllSkipsUsersWithoutSource(t *testing.T) {
	s, transport, cfg := newTestScraper(t, nil)
	transport.RegisterResponder("GET", apiBase+"contest.list", httpmock.NewStringResponder(200, okEnvelope(`[]`)))
	transport.RegisterResponder("GET", apiBase+"problemset.problems",
		httpmock.NewStringResponder(200, okEnvelope(`{"problems":[],"problemStatistics":[]}`)))

	results, err := s.RunAll(context.Background())
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(results) != 2 || results[0].Kind != models.KindContests || results[1].Kind != models.KindProblems {
		t.Fatalf("unexpected results: %+v", results)
	}
	if _, err := os.Stat(cfg.UserOutput); !os.IsNotExist(err) {
		t.Fatalf("user output should not exist, stat err = %v", err)
	}
	if rows := readRows(t, cfg.ContestOutput); len(rows) != 1 {
		t.Fatalf("contest rows = %d, want header only", len(rows))
	}
}
