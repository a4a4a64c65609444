// Package directory implements a typed client for a PayNym style payment
// code directory: the service that maps payment codes to claimed nym
// accounts and their follow graph.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

const (
	// DefaultTimeout is the default timeout for individual directory
	// requests.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryDelay is the wait applied before the single rate limit
	// retry when the server does not supply a Retry-After interval.
	DefaultRetryDelay = 5 * time.Second

	// rateLimitAttempts bounds how many times a single logical request
	// hits the wire: the original attempt plus exactly one retry after a
	// 429 response.
	rateLimitAttempts = 2

	// authTokenHeader is the header carrying the directory token on
	// authenticated requests.
	authTokenHeader = "auth-token"
)

// Config holds the configuration for a directory Client.
type Config struct {
	// BaseURL is the base URL of the directory API, e.g.
	// https://paynym.example/api/v1.
	BaseURL string

	// Timeout is the timeout for individual HTTP requests. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// RetryDelay is the fallback wait before the single rate limit retry.
	// Defaults to DefaultRetryDelay.
	RetryDelay time.Duration

	// HTTPClient optionally overrides the HTTP client used for requests.
	HTTPClient *http.Client

	// Cache optionally enables the read-through nym cache used by
	// CachedNym. Without a cache every CachedNym call fetches.
	Cache Cache

	// CacheTTL is the window within which a cache entry is considered
	// fresh. Defaults to DefaultCacheTTL.
	CacheTTL time.Duration

	// Clock is the time source used to timestamp and age cache entries.
	// Defaults to the wall clock; tests swap in a test clock.
	Clock clock.Clock
}

// Client is an HTTP client for the directory API. All endpoints return a
// typed result whose embedded Status maps the expected API outcomes; only
// the sentinel StatusTransportFailure indicates the service was unreachable.
type Client struct {
	cfg Config

	httpClient *http.Client
	clock      clock.Clock
}

// ErrMissingBaseURL is returned by NewClient when no directory URL is set.
var ErrMissingBaseURL = errors.New("directory base URL is required")

// NewClient creates a new directory client with the given configuration.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	c := &Client{cfg: *cfg}
	if c.cfg.Timeout == 0 {
		c.cfg.Timeout = DefaultTimeout
	}
	if c.cfg.RetryDelay == 0 {
		c.cfg.RetryDelay = DefaultRetryDelay
	}
	if c.cfg.CacheTTL == 0 {
		c.cfg.CacheTTL = DefaultCacheTTL
	}

	c.httpClient = cfg.HTTPClient
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.cfg.Timeout}
	}

	c.clock = cfg.Clock
	if c.clock == nil {
		c.clock = clock.NewDefaultClock()
	}

	return c, nil
}

// NymCode is one payment code linked to a directory account.
type NymCode struct {
	Code    string `json:"code"`
	Claimed bool   `json:"claimed"`
	Segwit  bool   `json:"segwit"`
}

// NymRef identifies a remote nym within a follower or following relation.
type NymRef struct {
	NymID string `json:"nymId"`
}

// CreateResult is the outcome of registering a payment code. Status 201
// means the code was newly registered, 200 that it already existed.
type CreateResult struct {
	Status

	Claimed bool   `json:"claimed"`
	NymID   string `json:"nymID"`
	NymName string `json:"nymName"`
	Segwit  bool   `json:"segwit"`
	Token   string `json:"token"`
}

// TokenResult is the outcome of requesting a fresh authentication token.
type TokenResult struct {
	Status

	Token string `json:"token"`
}

// NymResult is the outcome of looking up a directory account.
type NymResult struct {
	Status

	NymID     string    `json:"nymID"`
	NymName   string    `json:"nymName"`
	Codes     []NymCode `json:"codes"`
	Followers []NymRef  `json:"followers"`
	Following []NymRef  `json:"following"`
}

// ClaimResult is the outcome of claiming a payment code. A successful claim
// rotates the token; the replacement is carried in Token.
type ClaimResult struct {
	Status

	Claimed string `json:"claimed"`
	Token   string `json:"token"`
}

// FollowResult is the outcome of following a nym.
type FollowResult struct {
	Status

	Follower  string `json:"follower"`
	Following string `json:"following"`
	Token     string `json:"token"`
}

// UnfollowResult is the outcome of unfollowing a nym.
type UnfollowResult struct {
	Status

	Follower    string `json:"follower"`
	Unfollowing string `json:"unfollowing"`
	Token       string `json:"token"`
}

type createRequest struct {
	Code string `json:"code"`
}

type nymRequest struct {
	Nym     string `json:"nym"`
	Compact bool   `json:"compact,omitempty"`
}

type claimRequest struct {
	Signature string `json:"signature"`
}

type followRequest struct {
	Target    string `json:"target"`
	Signature string `json:"signature"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Create registers a payment code with the directory. This endpoint is
// unauthenticated; registering an already known code is not an error and
// simply returns the existing record.
func (c *Client) Create(ctx context.Context, code string) *CreateResult {
	res := &CreateResult{}
	res.Status = c.do(ctx, "/create", &createRequest{Code: code}, "", res)

	return res
}

// Token requests a fresh authentication token for the given payment code.
// Tokens are short-lived and rotated by the server on every authenticated
// call, so one must be fetched per authenticated operation.
func (c *Client) Token(ctx context.Context, code string) *TokenResult {
	res := &TokenResult{}
	res.Status = c.do(ctx, "/token", &createRequest{Code: code}, "", res)

	return res
}

// Nym looks up a directory account by payment code or nym identifier. With
// compact set, the server omits avatar and other heavyweight fields.
func (c *Client) Nym(ctx context.Context, nym string,
	compact bool) *NymResult {

	res := &NymResult{}
	res.Status = c.do(
		ctx, "/nym", &nymRequest{Nym: nym, Compact: compact}, "", res,
	)

	return res
}

// Claim proves ownership of the payment code the token is scoped to by
// presenting a notification key signature over the token.
func (c *Client) Claim(ctx context.Context, token,
	signature string) *ClaimResult {

	res := &ClaimResult{}
	res.Status = c.do(
		ctx, "/claim", &claimRequest{Signature: signature}, token, res,
	)

	return res
}

// Follow adds the target nym to the authenticated account's following set.
func (c *Client) Follow(ctx context.Context, token, signature,
	target string) *FollowResult {

	res := &FollowResult{}
	res.Status = c.do(
		ctx, "/follow",
		&followRequest{Target: target, Signature: signature},
		token, res,
	)

	return res
}

// Unfollow removes the target nym from the authenticated account's
// following set.
func (c *Client) Unfollow(ctx context.Context, token, signature,
	target string) *UnfollowResult {

	res := &UnfollowResult{}
	res.Status = c.do(
		ctx, "/unfollow",
		&followRequest{Target: target, Signature: signature},
		token, res,
	)

	return res
}

// do performs a POST against the given endpoint and decodes the response
// into out on success. Expected non-success statuses are folded into the
// returned Status together with the server's message.
func (c *Client) do(ctx context.Context, endpoint string, reqBody any,
	authToken string, out any) Status {

	code, body, err := c.post(ctx, endpoint, reqBody, authToken)
	if err != nil {
		log.Debugf("Directory request %s failed: %v", endpoint, err)
		return Status{
			Code:    StatusTransportFailure,
			Message: err.Error(),
		}
	}

	if code == http.StatusOK || code == http.StatusCreated {
		if err := json.Unmarshal(body, out); err != nil {
			log.Errorf("Directory returned undecodable %d body "+
				"for %s: %v", code, endpoint, err)

			return Status{
				Code:    StatusTransportFailure,
				Message: "malformed response: " + err.Error(),
			}
		}

		return Status{Code: code}
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil ||
		errResp.Message == "" {

		errResp.Message = http.StatusText(code)
	}

	log.Debugf("Directory request %s returned %d: %s", endpoint, code,
		errResp.Message)

	return Status{Code: code, Message: errResp.Message}
}

// post serializes the request body as UTF-8 JSON and performs the HTTP
// exchange, retrying exactly once after a 429 response. The content length
// of the request is the byte length of the UTF-8 encoding, which for bodies
// containing multi-byte characters exceeds the character count.
func (c *Client) post(ctx context.Context, endpoint string, reqBody any,
	authToken string) (int, []byte, error) {

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, nil, err
	}

	url := c.cfg.BaseURL + endpoint
	for attempt := 0; attempt < rateLimitAttempts; attempt++ {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, url, bytes.NewReader(payload),
		)
		if err != nil {
			return 0, nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		if authToken != "" {
			req.Header.Set(authTokenHeader, authToken)
		}
		req.ContentLength = int64(len(payload))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, err
		}

		// On the first rate limit response, wait the server-specified
		// interval and retry the same request once. A second 429 is
		// surfaced to the caller as-is.
		if resp.StatusCode == http.StatusTooManyRequests &&
			attempt == 0 {

			delay := retryDelay(
				resp.Header.Get("Retry-After"),
				c.cfg.RetryDelay,
			)

			log.Debugf("Directory rate limited %s, retrying in %v",
				endpoint, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			}

			continue
		}

		return resp.StatusCode, body, nil
	}

	// Unreachable: the final loop iteration always returns.
	return 0, nil, errors.New("request retries exhausted")
}

// retryDelay parses a Retry-After header value in seconds, falling back to
// the configured default when the header is absent or unparsable.
func retryDelay(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return fallback
	}

	return time.Duration(seconds) * time.Second
}
