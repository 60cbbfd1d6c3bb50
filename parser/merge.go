package parser

import (
	"time"

	"github.com/aluiziolira/cfscrape/models"
)

// MergeUser builds a user row from the API record and the scraped profile fields.
func MergeUser(u models.User, profile ProfileFields, now time.Time) *models.UserRecord {
	return &models.UserRecord{
		Handle:                 u.Handle,
		Email:                  u.Email,
		Contribution:           u.Contribution,
		FirstName:              u.FirstName,
		LastName:               u.LastName,
		Country:                u.Country,
		City:                   u.City,
		Organization:           u.Organization,
		Rating:                 u.Rating,
		RegistrationPeriodDays: RegistrationPeriodDays(now, u.RegistrationTimeSeconds),
		FriendOfCount:          u.FriendOfCount,
		Streak:                 profile.Streak.Value,
		ProblemsSolved:         profile.ProblemsSolved.Value,
	}
}

// MergeContest builds a contest row. A nil standings (the lookup failed) leaves the
// participant, standings and problem columns as empty lists.
func MergeContest(c models.Contest, standings *models.Standings) *models.ContestRecord {
	rec := &models.ContestRecord{
		ID:           c.ID,
		Name:         c.Name,
		StartDate:    StartDate(c.StartTimeSeconds),
		Division:     Division(c.Name),
		Participants: []string{},
		Standings:    []models.Standing{},
		ProblemsUsed: []string{},
		PreparedBy:   orNotAvailable(c.PreparedBy),
		Description:  orNotAvailable(c.Description),
	}
	if standings != nil {
		rec.Participants = Participants(standings.Rows)
		rec.Standings = FinalStandings(standings.Rows)
		rec.ProblemsUsed = ProblemIDs(c.ID, standings.Problems)
	}
	return rec
}

// MergeProblem builds a problem row from the API record, the statistics index and the
// scraped problem page fields.
func MergeProblem(p models.Problem, solved map[string]int, page ProblemFields) *models.ProblemRecord {
	return &models.ProblemRecord{
		ContestID:      p.ContestID,
		ProblemsetName: p.ProblemsetName,
		Index:          p.Index,
		Name:           p.Name,
		Rating:         p.Rating,
		Tags:           JoinTags(p.Tags),
		SolvedCount:    SolvedCount(solved, p),
		TimeLimit:      page.TimeLimit.Value,
		MemoryLimit:    page.MemoryLimit.Value,
		Description:    page.Description.Value,
	}
}

func orNotAvailable(v *string) string {
	if v == nil {
		return NotAvailable
	}
	return *v
}
