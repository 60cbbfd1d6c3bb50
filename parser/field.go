// Package parser extracts scalar fields from Codeforces pages and merges them with
// API payloads into output records.
package parser

// Reasons attached to fields that fell back to their default.
const (
	ReasonElementMissing = "element_missing"
	ReasonNoDigits       = "no_digits"
	ReasonUnavailable    = "page_unavailable"
)

// Field is a scraped value or the documented default together with why the default was used.
type Field[T any] struct {
	Value  T
	Found  bool
	Reason string
}

// Hit wraps a successfully extracted value.
func Hit[T any](v T) Field[T] {
	return Field[T]{Value: v, Found: true}
}

// Miss returns def, tagged with reason.
func Miss[T any](def T, reason string) Field[T] {
	return Field[T]{Value: def, Reason: reason}
}

// ProfileFields are the values scraped from a user profile page.
type ProfileFields struct {
	Streak         Field[int]
	ProblemsSolved Field[int]
}

// ProblemFields are the values scraped from a problem page.
type ProblemFields struct {
	TimeLimit   Field[string]
	MemoryLimit Field[string]
	Description Field[string]
}

// UnavailableProfile is used when the profile page could not be fetched.
func UnavailableProfile() ProfileFields {
	return ProfileFields{
		Streak:         Miss(0, ReasonUnavailable),
		ProblemsSolved: Miss(0, ReasonUnavailable),
	}
}

// UnavailableProblem is used when the problem page could not be fetched.
func UnavailableProblem() ProblemFields {
	return ProblemFields{
		TimeLimit:   Miss(NotAvailable, ReasonUnavailable),
		MemoryLimit: Miss(NotAvailable, ReasonUnavailable),
		Description: Miss("", ReasonUnavailable),
	}
}

// Misses lists the names of fields that fell back to defaults.
func (p ProfileFields) Misses() []string {
	var out []string
	if !p.Streak.Found {
		out = append(out, "streak")
	}
	if !p.ProblemsSolved.Found {
		out = append(out, "problems_solved")
	}
	return out
}

// Misses lists the names of fields that fell back to defaults.
func (p ProblemFields) Misses() []string {
	var out []string
	if !p.TimeLimit.Found {
		out = append(out, "time_limit")
	}
	if !p.MemoryLimit.Found {
		out = append(out, "memory_limit")
	}
	if !p.Description.Found {
		out = append(out, "description")
	}
	return out
}
