package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/cfscrape/api"
)

// HTTPError is a page fetch that completed with a non-success status.
type HTTPError struct {
	URL  string
	Code int
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Code)
}

// NetworkError is a page fetch that failed before a response arrived.
type NetworkError struct {
	URL    string
	Reason string
	Err    error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// Network failure reasons.
const (
	reasonTimeout    = "timeout"
	reasonDNS        = "dns"
	reasonConnection = "connection"
	reasonTransport  = "transport"
)

// classifyError turns a collector failure into HTTPError or NetworkError.
func classifyError(url string, err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}
	if statusCode != 0 {
		return HTTPError{URL: url, Code: statusCode}
	}
	return NetworkError{URL: url, Reason: networkReason(err), Err: err}
}

func networkReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return reasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return reasonTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return reasonDNS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return reasonConnection
	}
	return reasonTransport
}

// errorTypeLabel maps an error to its metrics/summary label.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var apiErr api.APIError
	if errors.As(err, &apiErr) {
		return "api"
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Code {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		default:
			return "http"
		}
	}
	var netErr NetworkError
	if errors.As(err, &netErr) {
		if netErr.Reason == reasonTimeout {
			return "timeout"
		}
		return "connection"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "other"
}
