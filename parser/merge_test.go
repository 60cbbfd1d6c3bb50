package parser

import (
	"testing"
	"time"

	"github.com/aluiziolira/cfscrape/models"
	"github.com/google/go-cmp/cmp"
)

func TestMergeUser(t *testing.T) {
	now := time.Unix(1700000000, 0)
	user := models.User{
		Handle:                  "tourist",
		Country:                 "Belarus",
		Contribution:            ptr(120),
		Rating:                  ptr(3800),
		FriendOfCount:           ptr(50000),
		RegistrationTimeSeconds: ptr(now.Unix() - 10*86400),
	}
	profile := ProfileFields{Streak: Hit(7), ProblemsSolved: Miss(0, ReasonUnavailable)}

	got := MergeUser(user, profile, now)
	want := &models.UserRecord{
		Handle:                 "tourist",
		Country:                "Belarus",
		Contribution:           ptr(120),
		Rating:                 ptr(3800),
		FriendOfCount:          ptr(50000),
		RegistrationPeriodDays: ptr(int64(10)),
		Streak:                 7,
		ProblemsSolved:         0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MergeUser mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeContest(t *testing.T) {
	contest := models.Contest{ID: 1, Name: "Codeforces Beta Round 1 (Div. 2)", StartTimeSeconds: ptr(int64(1266580800))}
	standings := &models.Standings{
		Problems: []models.Problem{{Index: "A"}, {Index: "B"}},
		Rows: []models.RanklistRow{
			{Party: models.Party{Members: []models.Member{{Handle: "Petr"}}}, Rank: 1},
			{Party: models.Party{Members: []models.Member{{Handle: "tourist"}}}, Rank: 2},
		},
	}

	got := MergeContest(contest, standings)
	want := &models.ContestRecord{
		ID:           1,
		Name:         "Codeforces Beta Round 1 (Div. 2)",
		StartDate:    "2010-02-19",
		Division:     "Div. 2",
		Participants: []string{"Petr", "tourist"},
		Standings:    []models.Standing{{Name: "Petr", Rank: 1}, {Name: "tourist", Rank: 2}},
		ProblemsUsed: []string{"1_A", "1_B"},
		PreparedBy:   NotAvailable,
		Description:  NotAvailable,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MergeContest mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeContestWithoutStandings(t *testing.T) {
	author := "MikeMirzayanov"
	got := MergeContest(models.Contest{ID: 2, Name: "Round 900", PreparedBy: &author}, nil)

	values := got.Values()
	if len(values) != len(models.ContestHeader) {
		t.Fatalf("values = %d, want %d", len(values), len(models.ContestHeader))
	}
	if values[2] != "" || values[3] != "Unknown" {
		t.Fatalf("start date/division = %q/%q, want empty/Unknown", values[2], values[3])
	}
	for _, col := range []int{4, 5, 6} {
		if values[col] != "[]" {
			t.Fatalf("column %s = %q, want []", models.ContestHeader[col], values[col])
		}
	}
	if values[7] != author {
		t.Fatalf("preparedBy = %q, want %q", values[7], author)
	}
}

func TestMergeProblem(t *testing.T) {
	solved := SolvedCounts([]models.ProblemStatistic{{ContestID: 1, Index: "A", SolvedCount: 42}})
	problem := models.Problem{ContestID: ptr(1), Index: "A", Name: "Theatre Square", Rating: ptr(1000), Tags: []string{"math", "number theory"}}

	got := MergeProblem(problem, solved, UnavailableProblem())
	want := &models.ProblemRecord{
		ContestID:   ptr(1),
		Index:       "A",
		Name:        "Theatre Square",
		Rating:      ptr(1000),
		Tags:        "math, number theory",
		SolvedCount: 42,
		TimeLimit:   NotAvailable,
		MemoryLimit: NotAvailable,
		Description: "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MergeProblem mismatch (-want +got):\n%s", diff)
	}
}
