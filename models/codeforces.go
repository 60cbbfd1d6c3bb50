// Package models defines data structures for the scraper.
package models

// User is a user.info / user.ratedList entry. Optional fields are pointers so an
// absent value can be told apart from zero.
type User struct {
	Handle                  string `json:"handle"`
	Email                   string `json:"email,omitempty"`
	FirstName               string `json:"firstName,omitempty"`
	LastName                string `json:"lastName,omitempty"`
	Country                 string `json:"country,omitempty"`
	City                    string `json:"city,omitempty"`
	Organization            string `json:"organization,omitempty"`
	Contribution            *int   `json:"contribution,omitempty"`
	Rating                  *int   `json:"rating,omitempty"`
	MaxRating               *int   `json:"maxRating,omitempty"`
	FriendOfCount           *int   `json:"friendOfCount,omitempty"`
	RegistrationTimeSeconds *int64 `json:"registrationTimeSeconds,omitempty"`
}

// Contest is a contest.list entry.
type Contest struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type,omitempty"`
	Phase            string  `json:"phase,omitempty"`
	DurationSeconds  int64   `json:"durationSeconds,omitempty"`
	StartTimeSeconds *int64  `json:"startTimeSeconds,omitempty"`
	PreparedBy       *string `json:"preparedBy,omitempty"`
	Description      *string `json:"description,omitempty"`
}

// PhaseFinished marks a contest whose final standings are available.
const PhaseFinished = "FINISHED"

// Problem is a problemset.problems entry; contest.standings returns the same shape.
type Problem struct {
	ContestID      *int     `json:"contestId,omitempty"`
	ProblemsetName string   `json:"problemsetName,omitempty"`
	Index          string   `json:"index"`
	Name           string   `json:"name"`
	Type           string   `json:"type,omitempty"`
	Rating         *int     `json:"rating,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// ProblemStatistic is a problemset.problems statistics entry.
type ProblemStatistic struct {
	ContestID   int    `json:"contestId"`
	Index       string `json:"index"`
	SolvedCount int    `json:"solvedCount"`
}

// ProblemsetResult is the problemset.problems payload.
type ProblemsetResult struct {
	Problems          []Problem          `json:"problems"`
	ProblemStatistics []ProblemStatistic `json:"problemStatistics"`
}

// Member is one party member.
type Member struct {
	Handle string `json:"handle"`
}

// Party identifies a standings participant: a team or one or more members.
type Party struct {
	ContestID       int      `json:"contestId,omitempty"`
	TeamName        *string  `json:"teamName,omitempty"`
	Members         []Member `json:"members"`
	ParticipantType string   `json:"participantType,omitempty"`
}

// Name returns the team name when present, otherwise the first member's handle.
func (p Party) Name() string {
	if p.TeamName != nil {
		return *p.TeamName
	}
	if len(p.Members) > 0 {
		return p.Members[0].Handle
	}
	return ""
}

// RanklistRow is one standings row.
type RanklistRow struct {
	Party  Party   `json:"party"`
	Rank   int     `json:"rank"`
	Points float64 `json:"points,omitempty"`
}

// Standings is the contest.standings payload.
type Standings struct {
	Contest  Contest       `json:"contest"`
	Problems []Problem     `json:"problems"`
	Rows     []RanklistRow `json:"rows"`
}
