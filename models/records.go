package models

import "strconv"

// Kind names a record family; each kind has its own output file and header.
type Kind string

const (
	KindUsers    Kind = "users"
	KindContests Kind = "contests"
	KindProblems Kind = "problems"
)

// UserHeader keeps the duplicated contribution column for compatibility with existing files.
var UserHeader = []string{
	"handle", "email", "contribution", "firstName", "lastName", "country", "city",
	"organization", "contribution", "rating", "registrationPeriodDays", "friendOfCount",
	"streak", "problemSolved",
}

var ContestHeader = []string{
	"id", "name", "startDate", "division", "registeredParticipants", "finalStandings",
	"problemsUsed", "preparedBy", "description",
}

var ProblemHeader = []string{
	"contestId", "problemsetName", "index", "name", "rating", "tags", "solvedCount",
	"timeLimit", "memoryLimit", "description",
}

// Header returns the fixed header for kind.
func Header(kind Kind) []string {
	switch kind {
	case KindUsers:
		return UserHeader
	case KindContests:
		return ContestHeader
	case KindProblems:
		return ProblemHeader
	default:
		return nil
	}
}

// UserRecord is one user output row.
type UserRecord struct {
	Handle                 string `json:"handle"`
	Email                  string `json:"email"`
	Contribution           *int   `json:"contribution"`
	FirstName              string `json:"firstName"`
	LastName               string `json:"lastName"`
	Country                string `json:"country"`
	City                   string `json:"city"`
	Organization           string `json:"organization"`
	Rating                 *int   `json:"rating"`
	RegistrationPeriodDays *int64 `json:"registrationPeriodDays"`
	FriendOfCount          *int   `json:"friendOfCount"`
	Streak                 int    `json:"streak"`
	ProblemsSolved         int    `json:"problemSolved"`
}

func (r *UserRecord) Key() string { return r.Handle }

func (r *UserRecord) Values() []string {
	return []string{
		r.Handle,
		r.Email,
		intPtr(r.Contribution),
		r.FirstName,
		r.LastName,
		r.Country,
		r.City,
		r.Organization,
		intPtr(r.Contribution),
		intPtr(r.Rating),
		int64Ptr(r.RegistrationPeriodDays),
		intPtr(r.FriendOfCount),
		strconv.Itoa(r.Streak),
		strconv.Itoa(r.ProblemsSolved),
	}
}

// Standing pairs a participant name with its rank.
type Standing struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// ContestRecord is one contest output row. An empty StartDate means the contest has no start time.
type ContestRecord struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	StartDate    string     `json:"startDate,omitempty"`
	Division     string     `json:"division"`
	Participants []string   `json:"registeredParticipants"`
	Standings    []Standing `json:"finalStandings"`
	ProblemsUsed []string   `json:"problemsUsed"`
	PreparedBy   string     `json:"preparedBy"`
	Description  string     `json:"description"`
}

func (r *ContestRecord) Key() string { return strconv.Itoa(r.ID) }

func (r *ContestRecord) Values() []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Name,
		r.StartDate,
		r.Division,
		StringList(r.Participants),
		StandingList(r.Standings),
		StringList(r.ProblemsUsed),
		r.PreparedBy,
		r.Description,
	}
}

// ProblemRecord is one problem output row.
type ProblemRecord struct {
	ContestID      *int   `json:"contestId"`
	ProblemsetName string `json:"problemsetName"`
	Index          string `json:"index"`
	Name           string `json:"name"`
	Rating         *int   `json:"rating"`
	Tags           string `json:"tags"`
	SolvedCount    int    `json:"solvedCount"`
	TimeLimit      string `json:"timeLimit"`
	MemoryLimit    string `json:"memoryLimit"`
	Description    string `json:"description"`
}

func (r *ProblemRecord) Key() string { return intPtr(r.ContestID) + "_" + r.Index }

func (r *ProblemRecord) Values() []string {
	return []string{
		intPtr(r.ContestID),
		r.ProblemsetName,
		r.Index,
		r.Name,
		intPtr(r.Rating),
		r.Tags,
		strconv.Itoa(r.SolvedCount),
		r.TimeLimit,
		r.MemoryLimit,
		r.Description,
	}
}

func intPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func int64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
