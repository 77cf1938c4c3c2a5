// Package geocode turns coordinates into postal addresses.
//
// Client queries a Nominatim server, throttled to its usage policy. Cache
// keeps answers in a local SQLite database so repeated runs over the same
// posts do not hit the server again.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"igosint/pkg/config"
	errs "igosint/pkg/errors"
	"igosint/pkg/logger"
	"igosint/pkg/ratelimit"
	"igosint/pkg/retry"
)

// ErrNoResult means the server knows no address for the coordinates
var ErrNoResult = errors.New("no address for coordinates")

// Place is a resolved address
type Place struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Reverser resolves coordinates to a Place
type Reverser interface {
	Reverse(ctx context.Context, lat, lng float64) (*Place, error)
}

// Client is a Nominatim reverse geocoding client
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	policy     *retry.Policy
	logger     logger.Logger
}

// NewClient creates a client from the geocoder configuration
func NewClient(cfg config.GeocoderConfig, policy *retry.Policy, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	perSecond := cfg.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	window := time.Duration(float64(time.Second) / perSecond)
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.NewSlidingWindow(1, window),
		policy:     policy,
		logger:     log.WithField("component", "geocoder"),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error"`
}

// Reverse looks up the address at lat, lng
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	return retry.DoWithResult(ctx, c.policy, func(ctx context.Context) (*Place, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.reverse(ctx, lat, lng)
	})
}

func (c *Client) reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		t := errs.ErrorTypeUnknown
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			t = errs.ErrorTypeRateLimit
		case resp.StatusCode >= 500:
			t = errs.ErrorTypeServerError
		}
		return nil, &errs.Error{Type: t, Code: resp.StatusCode, Message: "geocoder returned " + resp.Status}
	}

	var r reverseResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeParsing, Code: resp.StatusCode, Message: err.Error()}
	}
	if r.Error != "" || r.DisplayName == "" {
		return nil, ErrNoResult
	}

	place := &Place{Address: r.DisplayName, Lat: lat, Lng: lng}
	if v, err := strconv.ParseFloat(r.Lat, 64); err == nil {
		place.Lat = v
	}
	if v, err := strconv.ParseFloat(r.Lon, 64); err == nil {
		place.Lng = v
	}
	return place, nil
}
