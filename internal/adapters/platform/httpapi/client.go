package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "pacer"
	rateLimitMarker       = "please wait"
)

type API struct {
	BaseURL      string
	LoginPath    string
	IdentityPath string
}

type Config struct {
	API            API
	UserAgent      string
	RequestTimeout time.Duration
	// RequestDelay is slept between consecutive HTTP calls.
	RequestDelay domain.DelayRange
	HTTPClient   *http.Client
	Sleeper      ports.Sleeper
	Random       ports.Random
}

// Client speaks a generic JSON-over-HTTP platform API. Authentication state
// is a cookie jar plus a bearer token, both carried in the exported blob.
// Cookies set by the platform are tracked with their scope so that
// path-scoped session cookies survive export and import.
type Client struct {
	api       API
	baseURL   *url.URL
	userAgent string
	timeout   time.Duration
	delay     domain.DelayRange
	http      *http.Client
	jar       *cookiejar.Jar
	sleeper   ports.Sleeper
	random    ports.Random

	mu          sync.Mutex
	token       string
	userID      string
	username    string
	device      domain.DeviceIdentifiers
	cookies     map[cookieKey]cookieState
	sentRequest bool
}

var _ ports.PlatformClient = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL, err := parseBaseURL(cfg.API.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.API.LoginPath == "" {
		return nil, errors.New("login path is required")
	}
	if cfg.API.IdentityPath == "" {
		return nil, errors.New("identity path is required")
	}
	if err := cfg.RequestDelay.Validate("request"); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		httpClient = &clone
	}
	httpClient.Jar = jar

	client := &Client{
		api:       cfg.API,
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		timeout:   cfg.RequestTimeout,
		delay:     cfg.RequestDelay,
		http:      httpClient,
		jar:       jar,
		cookies:   map[cookieKey]cookieState{},
		sleeper:   cfg.Sleeper,
		random:    cfg.Random,
	}
	if client.userAgent == "" {
		client.userAgent = defaultUserAgent
	}
	if client.timeout <= 0 {
		client.timeout = defaultRequestTimeout
	}
	if client.sleeper == nil {
		client.sleeper = ports.SystemSleeper{}
	}
	if client.random == nil {
		client.random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return client, nil
}

type loginRequest struct {
	Username string       `json:"username"`
	Password string       `json:"password"`
	Device   deviceFields `json:"device"`
}

type loginResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Token         string `json:"token"`
}

type identityResponse struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
	MediaCount     int64  `json:"media_count"`
}

type apiErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) Login(ctx context.Context, credentials ports.Credentials, device domain.DeviceIdentifiers) (ports.LoginResult, error) {
	if credentials.Username == "" || credentials.Secret == "" {
		return ports.LoginResult{}, fmt.Errorf("login: %w: username and secret are required", domain.ErrAuthenticationFailure)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.device = device

	status, body, err := c.doLocked(ctx, http.MethodPost, c.api.LoginPath, nil, loginRequest{
		Username: credentials.Username,
		Password: credentials.Secret,
		Device:   deviceFields(device),
	})
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}

	switch {
	case isRateLimited(status, body):
		return ports.LoginResult{}, fmt.Errorf("login: %w: %s", domain.ErrRateLimited, describe(status, body))
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.LoginResult{}, fmt.Errorf("login: %w: %s", domain.ErrAuthenticationFailure, describe(status, body))
	case status >= http.StatusInternalServerError:
		return ports.LoginResult{}, fmt.Errorf("login: %w: %s", domain.ErrTransient, describe(status, body))
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return ports.LoginResult{}, fmt.Errorf("login: %s", describe(status, body))
	}

	var payload loginResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.LoginResult{}, fmt.Errorf("decode login response: %w", err)
	}
	if !payload.Authenticated {
		return ports.LoginResult{Authenticated: false}, nil
	}

	c.token = payload.Token
	c.userID = payload.UserID
	c.username = payload.Username
	if c.username == "" {
		c.username = credentials.Username
	}

	return ports.LoginResult{Authenticated: true, UserID: c.userID, Username: c.username}, nil
}

func (c *Client) IdentityProbe(ctx context.Context) (ports.IdentitySummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.authenticatedLocked() {
		return ports.IdentitySummary{}, fmt.Errorf("identity probe: %w: no authentication state", domain.ErrAuthRejected)
	}

	status, body, err := c.doLocked(ctx, http.MethodGet, c.api.IdentityPath, nil, nil)
	if err != nil {
		return ports.IdentitySummary{}, fmt.Errorf("identity probe: %w", err)
	}
	if err := classifyStatus(status, body); err != nil {
		return ports.IdentitySummary{}, fmt.Errorf("identity probe: %w", err)
	}

	var payload identityResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ports.IdentitySummary{}, fmt.Errorf("decode identity response: %w", err)
	}

	return ports.IdentitySummary(payload), nil
}

func (c *Client) ExecuteRequest(ctx context.Context, request ports.Request) (ports.Response, error) {
	method := strings.ToUpper(strings.TrimSpace(request.Method))
	if method == "" {
		method = http.MethodGet
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	status, body, err := c.doLocked(ctx, method, request.Path, request.Params, request.Body)
	if err != nil {
		return ports.Response{}, fmt.Errorf("%s %s: %w", method, request.Path, err)
	}
	if err := classifyStatus(status, body); err != nil {
		return ports.Response{StatusCode: status}, fmt.Errorf("%s %s: %w", method, request.Path, err)
	}

	return ports.Response{StatusCode: status, Body: json.RawMessage(body)}, nil
}

func (c *Client) resetLocked() {
	c.token = ""
	c.userID = ""
	c.username = ""
	c.device = domain.DeviceIdentifiers{}
	c.resetJarLocked()
}

func (c *Client) resetJarLocked() {
	jar, _ := cookiejar.New(nil)
	c.jar = jar
	c.http.Jar = jar
	c.cookies = map[cookieKey]cookieState{}
}

func (c *Client) authenticatedLocked() bool {
	return c.token != "" || len(c.cookies) > 0
}

// doLocked sends one request and returns the status and a bounded body.
// Transport failures wrap domain.ErrTransient.
func (c *Client) doLocked(ctx context.Context, method string, path string, params url.Values, payload any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	if err := c.pauseLocked(ctx); err != nil {
		return 0, nil, err
	}

	endpoint, err := c.baseURL.Parse(path)
	if err != nil {
		return 0, nil, fmt.Errorf("parse api path: %w", err)
	}

	var reader io.Reader
	contentType := ""
	switch {
	case payload != nil:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
		if len(params) > 0 {
			endpoint.RawQuery = params.Encode()
		}
	case len(params) > 0 && (method == http.MethodGet || method == http.MethodDelete || method == http.MethodHead):
		endpoint.RawQuery = params.Encode()
	case len(params) > 0:
		reader = strings.NewReader(params.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.device.DeviceID != "" {
		req.Header.Set("X-Device-ID", c.device.DeviceID)
	}

	c.sentRequest = true
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.trackCookiesLocked(resp, time.Now())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %w", domain.ErrTransient, err)
	}

	return resp.StatusCode, body, nil
}

func (c *Client) pauseLocked(ctx context.Context) error {
	if !c.sentRequest || c.delay.Max <= 0 {
		return nil
	}

	wait := c.delay.Min + time.Duration(c.random.Float64()*float64(c.delay.Max-c.delay.Min))
	return c.sleeper.Sleep(ctx, wait)
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.timeout)
}

func classifyStatus(status int, body []byte) error {
	switch {
	case isRateLimited(status, body):
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, describe(status, body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrAuthRejected, describe(status, body))
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", domain.ErrTransient, describe(status, body))
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return errors.New(describe(status, body))
	}

	return nil
}

func isRateLimited(status int, body []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return false
	}

	return strings.Contains(strings.ToLower(apiMessage(body)), rateLimitMarker)
}

func describe(status int, body []byte) string {
	message := apiMessage(body)
	if message == "" {
		return fmt.Sprintf("status %d", status)
	}

	return fmt.Sprintf("status %d: %s", status, message)
}

func apiMessage(body []byte) string {
	var payload apiErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}

	return payload.Error
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("api base url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}

	return parsed, nil
}
