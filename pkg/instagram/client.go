package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"igosint/pkg/config"
	errs "igosint/pkg/errors"
	"igosint/pkg/logger"
	"igosint/pkg/ratelimit"
	"igosint/pkg/retry"
)

const (
	appID         = "567067343352427"
	bodyPreviewAt = 200
)

// Client is the HTTP transport for the mobile private API. Every request
// waits on the endpoint's rate limiter and is retried by the policy.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limits     *ratelimit.Registry
	policy     *retry.Policy
	logger     logger.Logger

	mu    sync.RWMutex
	state state
}

// NewClient creates a Client from the session, rate limit and retry sections
// of the configuration
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	log = log.WithField("component", "instagram")
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Session.Timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":           cfg.Session.UserAgent,
			"Accept":               "*/*",
			"Accept-Language":      "en-US",
			"X-IG-App-ID":          appID,
			"X-IG-Capabilities":    "3brTvw==",
			"X-IG-Connection-Type": "WIFI",
		},
		baseURL: strings.TrimRight(cfg.Session.BaseURL, "/"),
		limits:  ratelimit.NewRegistry(cfg.RateLimit),
		policy:  retry.FromConfig(cfg.Retry, log),
		logger:  log,
		state:   newState(),
	}
	return c, nil
}

// SetHTTPClient replaces the underlying HTTP client, keeping its cookie jar
// if it has none
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc.Jar == nil {
		hc.Jar = c.httpClient.Jar
	}
	c.httpClient = hc
}

// call issues one API request and decodes the JSON answer into target. A
// nil form sends a GET.
func (c *Client) call(ctx context.Context, endpoint, path string, query url.Values, form url.Values, target interface{}) error {
	return retry.Do(ctx, c.policy, func(ctx context.Context) error {
		if err := c.limits.Wait(ctx, endpoint); err != nil {
			return err
		}
		resp, body, err := c.send(ctx, path, query, form)
		if err != nil {
			return err
		}
		if err := c.checkResponseStatus(resp, body); err != nil {
			return err
		}
		if target == nil {
			return nil
		}
		if err := json.Unmarshal(body, target); err != nil {
			c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
				"endpoint":     endpoint,
				"status":       resp.StatusCode,
				"error":        err.Error(),
				"body_preview": preview(body),
			})
			return &errs.Error{
				Type:     errs.ErrorTypeParsing,
				Message:  fmt.Sprintf("failed to parse JSON: %v", err),
				Code:     resp.StatusCode,
				Response: preview(body),
			}
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, path string, query url.Values, form url.Values) (*http.Response, []byte, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	method := http.MethodGet
	var body io.Reader
	if form != nil {
		method = http.MethodPost
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	c.applyHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"url":      u,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, method, u, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if auth := resp.Header.Get("ig-set-authorization"); auth != "" {
		c.mu.Lock()
		c.state.Authorization = auth
		c.mu.Unlock()
	}
	return resp, data, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	req.Header.Set("X-IG-Device-ID", c.state.UUID)
	req.Header.Set("X-IG-Android-ID", c.state.DeviceID)
	if c.state.Authorization != "" {
		req.Header.Set("Authorization", c.state.Authorization)
	}
}

// apiStatus is the error envelope of the private API
type apiStatus struct {
	Message           string `json:"message"`
	Status            string `json:"status"`
	ErrorType         string `json:"error_type"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     struct {
		Identifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info"`
}

// checkResponseStatus maps the HTTP status and the API error envelope onto
// the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var st apiStatus
	_ = json.Unmarshal(body, &st)
	message := st.Message
	if message == "" {
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	}
	e := &errs.Error{Message: message, Code: resp.StatusCode, Response: preview(body)}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.Path,
	}
	switch {
	case st.TwoFactorRequired:
		e.Type = errs.ErrorTypeTwoFactor
	case resp.StatusCode == http.StatusTooManyRequests || strings.Contains(message, "wait a few minutes"):
		e.Type = errs.ErrorTypeRateLimit
		e.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || st.Message == "login_required" || st.ErrorType == "bad_password" || st.ErrorType == "invalid_user":
		e.Type = errs.ErrorTypeAuth
		c.logger.WarnWithFields("authentication error", fields)
	case resp.StatusCode == http.StatusNotFound:
		e.Type = errs.ErrorTypeNotFound
	case resp.StatusCode >= 500:
		e.Type = errs.ErrorTypeServerError
		c.logger.ErrorWithFields("server error", fields)
	default:
		e.Type = errs.ErrorTypeUnknown
		c.logger.ErrorWithFields("unexpected API error", fields)
	}
	return e
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > bodyPreviewAt {
		s = s[:bodyPreviewAt] + "..."
	}
	return s
}

// Download fetches a CDN resource. CDN hosts are absolute URLs outside the
// API base.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		if err := c.limits.Wait(ctx, "download"); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.headers["User-Agent"])

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: fmt.Sprintf("network error: %v", err)}
		}
		defer resp.Body.Close()
		logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, time.Since(start))

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: fmt.Sprintf("failed to read media: %v", err), Code: resp.StatusCode}
		}
		if err := c.checkResponseStatus(resp, data); err != nil {
			return nil, err
		}
		return data, nil
	})
}
