package geoapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evyataryagoni/iptracker/internal/metrics"
	"github.com/evyataryagoni/iptracker/internal/models"
	"github.com/go-playground/validator/v10"
)

// Client resolves an IP address or domain to a lookup result.
// Allows the real API client and a mock to be swapped freely.
type Client interface {
	Lookup(ctx context.Context, address string) (*models.LookupResult, error)
}

// Config holds settings for the geo.ipify.org client
type Config struct {
	BaseURL string        // e.g. https://geo.ipify.org
	APIKey  string        // sent as the apiKey query parameter
	Timeout time.Duration // per request; zero means no timeout
}

// HTTPClient talks to the geo.ipify.org v1 API
type HTTPClient struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	validator *validator.Validate
	metrics   *metrics.Metrics
}

// NewHTTPClient creates a client for the geolocation API.
// m may be nil.
func NewHTTPClient(cfg Config, m *metrics.Metrics) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: cfg.Timeout},
		validator: validator.New(),
		metrics:   m,
	}
}

// apiResponse mirrors the subset of the response body we rely on.
// Pointers let validation tell a missing key from a zero value.
type apiResponse struct {
	IP       *string      `json:"ip" validate:"required"`
	Location *apiLocation `json:"location" validate:"required"`
	ISP      *string      `json:"isp" validate:"required"`
}

type apiLocation struct {
	City     *string  `json:"city" validate:"required"`
	Region   *string  `json:"region" validate:"required"`
	Country  *string  `json:"country" validate:"required"`
	Lat      *float64 `json:"lat" validate:"required"`
	Lng      *float64 `json:"lng" validate:"required"`
	Timezone *string  `json:"timezone" validate:"required"`
}

// Lookup performs GET /api/v1?apiKey=...&ipAddress=... (or &domain=...)
func (c *HTTPClient) Lookup(ctx context.Context, address string) (*models.LookupResult, error) {
	endpoint := c.baseURL + "/api/v1?" + c.query(ctx, address).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.observe(start, err, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: upstreamMessage(body)}
	}

	return c.decode(body)
}

const maxBodySize = 1 << 20

// query picks the parameter name from the shape of the address.
// Anything that is neither an IP nor a hostname goes to ipAddress so the API can reject it.
func (c *HTTPClient) query(ctx context.Context, address string) url.Values {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)

	address = strings.TrimSpace(address)
	switch {
	case address == "":
		// the API resolves the requester unless we know who we're asking for
		if ip := callerIP(ctx); ip != "" {
			q.Set("ipAddress", ip)
		}
	case c.validator.Var(address, "ip") == nil:
		q.Set("ipAddress", address)
	case c.validator.Var(address, "fqdn") == nil:
		q.Set("domain", address)
	default:
		q.Set("ipAddress", address)
	}
	return q
}

func (c *HTTPClient) decode(body []byte) (*models.LookupResult, error) {
	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := c.validator.Struct(raw); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, invalid[0].Namespace())
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	loc := raw.Location
	return &models.LookupResult{
		IP: *raw.IP,
		Location: models.Location{
			City:      *loc.City,
			Region:    *loc.Region,
			Country:   *loc.Country,
			Latitude:  *loc.Lat,
			Longitude: *loc.Lng,
			Timezone:  *loc.Timezone,
		},
		ISP:       *raw.ISP,
		Available: true,
	}, nil
}

func (c *HTTPClient) observe(start time.Time, err error, resp *http.Response) {
	if c.metrics == nil {
		return
	}
	c.metrics.GeoAPIRequestDuration.Observe(time.Since(start).Seconds())

	outcome := "transport_error"
	if err == nil {
		outcome = fmt.Sprintf("%dxx", resp.StatusCode/100)
	}
	c.metrics.GeoAPIRequestsTotal.WithLabelValues(outcome).Inc()
}

// upstreamMessage pulls the "messages" field geo.ipify puts in its error bodies
func upstreamMessage(body []byte) string {
	var e struct {
		Messages string `json:"messages"`
	}
	if json.Unmarshal(body, &e) == nil && e.Messages != "" {
		return e.Messages
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
