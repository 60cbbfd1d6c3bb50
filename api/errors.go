package api

import "fmt"

// DefaultComment is reported when a FAILED response carries no comment.
const DefaultComment = "No comment provided"

// APIError indicates the service answered with status FAILED.
type APIError struct {
	Method  string
	Comment string
}

func (e APIError) Error() string {
	return fmt.Sprintf("API request %s failed: %s", e.Method, e.Comment)
}
