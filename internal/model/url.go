package model

// URLMapping ties an original URL to the integer id it was shortened to.
// Mappings are created once and never mutated.
type URLMapping struct {
	ShortID     int64  `json:"short_url" db:"short_id"`        // allocated from the url_count counter
	OriginalURL string `json:"original_url" db:"original_url"` // exactly as submitted
}

// ShortenRequest is the POST /api/shorturl body (JSON or form)
type ShortenRequest struct {
	URL         string `json:"url"`
	OriginalURL string `json:"original_url,omitempty"` // accepted when url is missing
}

// Target returns the URL to shorten, preferring the url field.
func (r ShortenRequest) Target() string {
	if r.URL != "" {
		return r.URL
	}
	return r.OriginalURL
}

// ShortenResponse is returned on successful shortening
type ShortenResponse struct {
	OriginalURL string `json:"original_url"`
	ShortURL    int64  `json:"short_url"`
}

// NewShortenResponse builds the API response for a mapping.
func NewShortenResponse(m *URLMapping) ShortenResponse {
	return ShortenResponse{
		OriginalURL: m.OriginalURL,
		ShortURL:    m.ShortID,
	}
}
