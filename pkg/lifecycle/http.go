package lifecycle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// HTTPChecker sends an HTTP request and checks the response. If
// MatchRegex is set, success is determined by a match against the
// response body instead of the status code.
type HTTPChecker struct {
	URL        string
	Method     string
	Headers    map[string]string
	MatchRegex string
	Client     *http.Client

	compiled *regexp.Regexp
}

// NewHTTPChecker creates an HTTP checker defaulting to GET with a 10
// second client timeout.
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL:     url,
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithMethod sets the HTTP method.
func (h *HTTPChecker) WithMethod(method string) *HTTPChecker {
	h.Method = method
	return h
}

// WithHeader adds a request header.
func (h *HTTPChecker) WithHeader(key, value string) *HTTPChecker {
	h.Headers[key] = value
	return h
}

// WithMatchRegex sets the body regex that determines success.
func (h *HTTPChecker) WithMatchRegex(pattern string) *HTTPChecker {
	h.MatchRegex = pattern
	return h
}

// WithTimeout sets the HTTP client timeout.
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Client.Timeout = timeout
	return h
}

// Check sends the configured request and evaluates the response.
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("failed to build request: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	for key, value := range h.Headers {
		req.Header.Set(key, value)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("request failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer resp.Body.Close()

	if h.MatchRegex != "" {
		if h.compiled == nil {
			h.compiled, err = regexp.Compile(h.MatchRegex)
			if err != nil {
				return Result{
					Healthy:   false,
					Message:   fmt.Sprintf("invalid matchRegex %q: %v", h.MatchRegex, err),
					CheckedAt: start,
					Duration:  time.Since(start),
				}
			}
		}
		body, _ := io.ReadAll(resp.Body)
		matched := h.compiled.Match(body)
		return Result{
			Healthy:   matched,
			Message:   fmt.Sprintf("HTTP %d, body match %v", resp.StatusCode, matched),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	healthy := resp.StatusCode == http.StatusOK
	return Result{
		Healthy:   healthy,
		Message:   fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns CheckTypeHTTP.
func (h *HTTPChecker) Type() CheckType {
	return CheckTypeHTTP
}
