package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/darkodi/shorturl/internal/logger"
	"github.com/darkodi/shorturl/internal/middleware"
	"github.com/darkodi/shorturl/internal/mocks"
	"github.com/darkodi/shorturl/internal/model"
	"github.com/darkodi/shorturl/internal/repository"
	"github.com/darkodi/shorturl/internal/service"
	"github.com/darkodi/shorturl/internal/validator"
)

type HandlersTestSuite struct {
	suite.Suite
	store  repository.Store
	ts     *httptest.Server
	client *resty.Client
}

func (suite *HandlersTestSuite) SetupTest() {
	var err error
	suite.store, err = repository.Open(context.Background(), "sqlite://:memory:")
	suite.Require().NoError(err)

	ctrl := gomock.NewController(suite.T())
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().LookupHost(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, host string) ([]string, error) {
			if strings.HasSuffix(host, ".invalid") {
				return nil, errors.New("no such host")
			}
			return []string{"93.184.216.34"}, nil
		}).AnyTimes()

	v := validator.NewURLValidator().WithResolver(resolver)
	svc := service.NewURLService(suite.store, suite.store, v)
	h := NewURLHandler(svc, suite.store, logger.Discard())

	router := middleware.Chain(h.SetupRoutes(), middleware.RequestID, middleware.CORS)
	suite.ts = httptest.NewServer(router)

	suite.client = resty.New().
		SetBaseURL(suite.ts.URL).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}))
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.ts.Close()
	suite.store.Close()
}

// TestHandlersTestSuite initializes test suite for being accessible
func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) shorten(url string) *resty.Response {
	res, err := suite.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"url": url}).
		Post("/api/shorturl")
	suite.Require().NoError(err)
	return res
}

func (suite *HandlersTestSuite) TestIndex() {
	res, err := suite.client.R().Get("/")
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, res.StatusCode())
	suite.Equal(usage, res.String())
	suite.Contains(res.Header().Get("Content-Type"), "text/plain")
	suite.Equal("*", res.Header().Get("Access-Control-Allow-Origin"))
	suite.NotEmpty(res.Header().Get("X-Request-ID"))
}

func (suite *HandlersTestSuite) TestScenario() {
	res := suite.shorten("https://www.example.com")
	suite.Equal(http.StatusOK, res.StatusCode())
	suite.JSONEq(`{"original_url":"https://www.example.com","short_url":1}`, res.String())

	res = suite.shorten("https://www.example.com")
	suite.Equal(http.StatusOK, res.StatusCode())
	suite.JSONEq(`{"original_url":"https://www.example.com","short_url":1}`, res.String())

	res, err := suite.client.R().Get("/api/shorturl/1")
	suite.Require().NoError(err)
	suite.Equal(http.StatusFound, res.StatusCode())
	suite.Equal("https://www.example.com", res.Header().Get("Location"))

	res = suite.shorten("ftp://example.com")
	suite.Equal(http.StatusOK, res.StatusCode())
	suite.JSONEq(`{"error":"invalid url"}`, res.String())

	res, err = suite.client.R().Get("/api/shorturl/9999")
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, res.StatusCode())
	suite.JSONEq(`{"error":"No short URL found for the given input"}`, res.String())
}

func (suite *HandlersTestSuite) TestShorten_BodyFormats() {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"url":"https://a.example.com/x?y=1"}`,
			want:        `{"original_url":"https://a.example.com/x?y=1","short_url":1}`,
		},
		{
			name:        "json with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"url":"https://b.example.com"}`,
			want:        `{"original_url":"https://b.example.com","short_url":2}`,
		},
		{
			name:        "urlencoded form",
			contentType: "application/x-www-form-urlencoded",
			body:        "url=" + "https%3A%2F%2Fc.example.com%2Fpath",
			want:        `{"original_url":"https://c.example.com/path","short_url":3}`,
		},
		{
			name:        "original_url fallback",
			contentType: "application/json",
			body:        `{"original_url":"https://d.example.com"}`,
			want:        `{"original_url":"https://d.example.com","short_url":4}`,
		},
		{
			name:        "empty json body",
			contentType: "application/json",
			body:        "",
			want:        `{"error":"invalid url"}`,
		},
		{
			name:        "missing field",
			contentType: "application/json",
			body:        `{}`,
			want:        `{"error":"invalid url"}`,
		},
		{
			name:        "no content type",
			contentType: "",
			body:        "https://e.example.com",
			want:        `{"error":"invalid url"}`,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			res, err := suite.client.R().
				SetHeader("Content-Type", tt.contentType).
				SetBody(tt.body).
				Post("/api/shorturl")
			suite.Require().NoError(err)
			suite.Equal(http.StatusOK, res.StatusCode())
			suite.JSONEq(tt.want, res.String())
		})
	}
}

func (suite *HandlersTestSuite) TestShorten_MultipartForm() {
	res, err := suite.client.R().
		SetMultipartFormData(map[string]string{"url": "https://m.example.com"}).
		Post("/api/shorturl")
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, res.StatusCode())
	suite.JSONEq(`{"original_url":"https://m.example.com","short_url":1}`, res.String())
}

func (suite *HandlersTestSuite) TestShorten_MalformedJSON() {
	res, err := suite.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(`{"url":`).
		Post("/api/shorturl")
	suite.Require().NoError(err)

	suite.Equal(http.StatusBadRequest, res.StatusCode())
	suite.JSONEq(`{"error":"invalid request body"}`, res.String())
}

func (suite *HandlersTestSuite) TestShorten_InvalidCreatesNothing() {
	for _, u := range []string{"not a url", "ftp://example.com", "https://gone.invalid", "mailto:a@example.com"} {
		res := suite.shorten(u)
		suite.JSONEq(`{"error":"invalid url"}`, res.String(), u)
	}

	res := suite.shorten("https://www.example.com")
	suite.JSONEq(`{"original_url":"https://www.example.com","short_url":1}`, res.String())
}

func (suite *HandlersTestSuite) TestRedirect_RoundTrip() {
	urls := []string{
		"https://www.example.com",
		"http://example.org/a/b?c=d&e=f",
		"https://example.net/path#fragment",
	}

	for _, u := range urls {
		res := suite.shorten(u)
		suite.Require().Equal(http.StatusOK, res.StatusCode())

		var body model.ShortenResponse
		suite.Require().NoError(decodeJSON(res, &body))
		suite.Equal(u, body.OriginalURL)

		redirect, err := suite.client.R().Get("/api/shorturl/" + strconv.FormatInt(body.ShortURL, 10))
		suite.Require().NoError(err)
		suite.Equal(http.StatusFound, redirect.StatusCode())
		suite.Equal(u, redirect.Header().Get("Location"))
	}
}

func (suite *HandlersTestSuite) TestRedirect_NotFound() {
	for _, short := range []string{"9999", "0", "-1", "abc", "1.5", "99999999999999999999"} {
		res, err := suite.client.R().Get("/api/shorturl/" + short)
		suite.Require().NoError(err)
		suite.Equal(http.StatusOK, res.StatusCode(), short)
		suite.Empty(res.Header().Get("Location"), short)
		suite.JSONEq(`{"error":"No short URL found for the given input"}`, res.String(), short)
	}
}

func (suite *HandlersTestSuite) TestHealth() {
	res, err := suite.client.R().Get("/health")
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, res.StatusCode())
	suite.JSONEq(`{"status":"healthy"}`, res.String())
}

func (suite *HandlersTestSuite) TestStoreFailure() {
	res := suite.shorten("https://www.example.com")
	suite.Require().Equal(http.StatusOK, res.StatusCode())

	suite.Require().NoError(suite.store.Close())

	res = suite.shorten("https://other.example.com")
	suite.Equal(http.StatusInternalServerError, res.StatusCode())
	suite.JSONEq(`{"error":"server error"}`, res.String())

	res, err := suite.client.R().Get("/api/shorturl/1")
	suite.Require().NoError(err)
	suite.Equal(http.StatusInternalServerError, res.StatusCode())
	suite.JSONEq(`{"error":"server error"}`, res.String())

	res, err = suite.client.R().Get("/health")
	suite.Require().NoError(err)
	suite.Equal(http.StatusServiceUnavailable, res.StatusCode())
}

func TestShorten_ServiceErrorIsNotLeaked(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocator := mocks.NewMockAllocator(ctrl)
	registry := mocks.NewMockRegistry(ctrl)
	resolver := mocks.NewMockResolver(ctrl)

	resolver.EXPECT().LookupHost(gomock.Any(), "www.example.com").Return([]string{"93.184.216.34"}, nil)
	registry.EXPECT().FindByURL(gomock.Any(), "https://www.example.com").
		Return(nil, &repository.StoreError{Op: "find", Err: errors.New("dial tcp 10.0.0.5:6379: connection refused")})

	svc := service.NewURLService(allocator, registry, validator.NewURLValidator().WithResolver(resolver))
	h := NewURLHandler(svc, nil, logger.Discard())

	req := httptest.NewRequest(http.MethodPost, "/api/shorturl", strings.NewReader(`{"url":"https://www.example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.SetupRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"server error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func decodeJSON(res *resty.Response, v any) error {
	return json.Unmarshal(res.Body(), v)
}
