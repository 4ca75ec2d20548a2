package validator

//go:generate mockgen -destination=../mocks/resolver.go -package=mocks github.com/darkodi/shorturl/internal/validator Resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidURL is matched by every ValidationError.
var ErrInvalidURL = errors.New("invalid url")

// ValidationError describes why a submitted URL was rejected
type ValidationError struct {
	URL    string
	Reason string
	Err    error // underlying parse or lookup error, if any
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid url %q: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidURL
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Resolver looks up a hostname. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// URLValidator validates URL inputs
type URLValidator struct {
	maxLength      int
	allowedSchemes []string
	resolver       Resolver
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength:      2048,
		allowedSchemes: []string{"http", "https"},
		resolver:       net.DefaultResolver,
	}
}

// Validate parses rawURL as an absolute http(s) URL and checks that its
// hostname resolves. The lookup happens on every call.
func (v *URLValidator) Validate(ctx context.Context, rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, &ValidationError{URL: rawURL, Reason: "url is empty"}
	}

	if len(rawURL) > v.maxLength {
		return nil, &ValidationError{
			URL:    rawURL,
			Reason: fmt.Sprintf("url exceeds maximum length of %d characters", v.maxLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ValidationError{URL: rawURL, Reason: "url could not be parsed", Err: err}
	}

	if !v.isAllowedScheme(parsedURL.Scheme) {
		return nil, &ValidationError{URL: rawURL, Reason: "url must use http or https scheme"}
	}

	host := parsedURL.Hostname()
	if host == "" {
		return nil, &ValidationError{URL: rawURL, Reason: "url must have a host"}
	}

	if _, err := v.resolver.LookupHost(ctx, host); err != nil {
		return nil, &ValidationError{URL: rawURL, Reason: "hostname does not resolve", Err: err}
	}

	return parsedURL, nil
}

func (v *URLValidator) isAllowedScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// WithResolver replaces the DNS resolver used for the hostname check
func (v *URLValidator) WithResolver(r Resolver) *URLValidator {
	v.resolver = r
	return v
}
