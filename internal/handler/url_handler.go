package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/darkodi/shorturl/internal/errors"
	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/middleware"
	"github.com/darkodi/shorturl/internal/model"
	"github.com/darkodi/shorturl/internal/service"
	"github.com/darkodi/shorturl/internal/validator"
)

const (
	usage        = "URL Shortener Microservice - POST /api/shorturl"
	maxBodyBytes = 1 << 20
)

// Shortener is the service behind the HTTP surface
type Shortener interface {
	Shorten(ctx context.Context, rawURL string) (*model.URLMapping, error)
	Resolve(ctx context.Context, shortID int64) (string, error)
}

// Pinger reports whether the store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// URLHandler handles HTTP requests for URL operations
type URLHandler struct {
	service Shortener
	store   Pinger
	log     *logger.Logger
}

// NewURLHandler creates a new handler instance
func NewURLHandler(svc Shortener, store Pinger, log *logger.Logger) *URLHandler {
	return &URLHandler{
		service: svc,
		store:   store,
		log:     log,
	}
}

// ============ HANDLERS ============

// HandleIndex describes the API
// GET /
func (h *URLHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, usage)
}

// HandleShorten returns the short id for a URL, creating it on first use
// POST /api/shorturl
func (h *URLHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req, err := decodeShortenRequest(r)
	if err != nil {
		h.requestLog(r).Debug("malformed shorten request", "error", err.Error())
		errors.InvalidBody().WriteJSON(w)
		return
	}

	mapping, err := h.service.Shorten(r.Context(), req.Target())
	if err != nil {
		var invalid *validator.ValidationError
		if stderrors.As(err, &invalid) {
			h.requestLog(r).Debug("rejected url", "url", invalid.URL, "reason", invalid.Reason)
			errors.InvalidURL().WriteJSON(w)
			return
		}

		h.requestLog(r).Error("shorten failed", "url", req.Target(), "error", err.Error())
		errors.Internal().WriteJSON(w)
		return
	}

	writeJSON(w, http.StatusOK, model.NewShortenResponse(mapping))
}

// HandleRedirect redirects to the original URL
// GET /api/shorturl/{short}
func (h *URLHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortID, err := strconv.ParseInt(chi.URLParam(r, "short"), 10, 64)
	if err != nil || shortID < 1 {
		errors.URLNotFound().WriteJSON(w)
		return
	}

	originalURL, err := h.service.Resolve(r.Context(), shortID)
	if err != nil {
		if stderrors.Is(err, service.ErrURLNotFound) {
			errors.URLNotFound().WriteJSON(w)
			return
		}

		h.requestLog(r).Error("resolve failed", "short_id", shortID, "error", err.Error())
		errors.Internal().WriteJSON(w)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// HandleHealth returns service health status
// GET /health
func (h *URLHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.requestLog(r).Warn("health check failed", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *URLHandler) SetupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleIndex)
	r.Get("/health", h.HandleHealth)
	r.Post("/api/shorturl", h.HandleShorten)
	r.Get("/api/shorturl/{short}", h.HandleRedirect)

	return r
}

// ============ HELPERS ============

// decodeShortenRequest reads the url field from a JSON or form body.
func decodeShortenRequest(r *http.Request) (model.ShortenRequest, error) {
	var req model.ShortenRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		if stderrors.Is(err, io.EOF) {
			// empty body: no url submitted
			return req, nil
		}
		return req, err
	}

	// PostFormValue parses urlencoded and multipart bodies
	req.URL = r.PostFormValue("url")
	req.OriginalURL = r.PostFormValue("original_url")
	return req, nil
}

func (h *URLHandler) requestLog(r *http.Request) *logger.Logger {
	return h.log.WithRequestID(middleware.GetRequestID(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
