package service

import (
	"context"
	"errors"
	"net/url"

	"github.com/darkodi/shorturl/internal/model"
	"github.com/darkodi/shorturl/internal/repository"
)

// ErrURLNotFound is returned by Resolve when no mapping has the given id.
var ErrURLNotFound = errors.New("short URL not found")

// Validator checks a submitted URL before it is stored.
type Validator interface {
	Validate(ctx context.Context, rawURL string) (*url.URL, error)
}

// URLService handles business logic for URL operations
type URLService struct {
	allocator repository.Allocator
	registry  repository.Registry
	validator Validator
}

// NewURLService creates a new service instance
func NewURLService(allocator repository.Allocator, registry repository.Registry, v Validator) *URLService {
	return &URLService{
		allocator: allocator,
		registry:  registry,
		validator: v,
	}
}

// Shorten returns the mapping for rawURL, creating it on first use. Submitting
// the same URL again returns the same id without allocating a new one.
func (s *URLService) Shorten(ctx context.Context, rawURL string) (*model.URLMapping, error) {
	// ============ STEP 1: Validation ============
	if _, err := s.validator.Validate(ctx, rawURL); err != nil {
		return nil, err
	}

	// ============ STEP 2: Existing mapping ============
	existing, err := s.registry.FindByURL(ctx, rawURL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// ============ STEP 3: Allocate id ============
	shortID, err := s.allocator.Allocate(ctx, repository.URLCounter)
	if err != nil {
		return nil, err
	}

	// ============ STEP 4: Create the record ============
	mapping, err := s.registry.Insert(ctx, rawURL, shortID)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return s.afterConflict(ctx, rawURL, err)
	}
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// afterConflict handles an insert that lost a race with a concurrent Shorten
// of the same URL: the winner's mapping is returned and the id we allocated
// stays unused.
func (s *URLService) afterConflict(ctx context.Context, rawURL string, insertErr error) (*model.URLMapping, error) {
	winner, err := s.registry.FindByURL(ctx, rawURL)
	if err == nil {
		return winner, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		// the conflict was on the id, not the url
		return nil, &repository.StoreError{Op: "insert", Err: insertErr}
	}
	return nil, err
}

// Resolve finds the original URL for a short id
func (s *URLService) Resolve(ctx context.Context, shortID int64) (string, error) {
	mapping, err := s.registry.FindByID(ctx, shortID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrURLNotFound
	}
	if err != nil {
		return "", err
	}
	return mapping.OriginalURL, nil
}
