package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// Remote is the relay as seen by a syncing client.
type Remote interface {
	Get(ctx context.Context) (State, error)
	Put(ctx context.Context, content string, t float64) (PutResult, error)
}

// Client talks to the relay's HTTP routes.
type Client struct {
	resty *resty.Client
}

// DefaultClientTimeout bounds one Get or Put, retries included.
const DefaultClientTimeout = 5 * time.Second

// ClientOption configures NewClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	timeout  time.Duration
	retryMax int
	waitMin  time.Duration
	waitMax  time.Duration
}

// WithTimeout overrides DefaultClientTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetries sets how often a failed request is retried and the backoff
// bounds between attempts.
func WithRetries(n int, waitMin, waitMax time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.retryMax, o.waitMin, o.waitMax = n, waitMin, waitMax
	}
}

// NewClient returns a Client for baseURL ("http://host:8667" or
// "host:8667"; a missing scheme means http). token may be empty.
// Connection errors and 5xx replies are retried with backoff.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	o := clientOptions{
		timeout:  DefaultClientTimeout,
		retryMax: 2,
		waitMin:  100 * time.Millisecond,
		waitMax:  time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = o.retryMax
	retryClient.RetryWaitMin = o.waitMin
	retryClient.RetryWaitMax = o.waitMax
	retryClient.Logger = nil

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(o.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "wmglue-relay")
	if token != "" {
		r.SetAuthToken(token)
	}
	return &Client{resty: r}
}

// Get returns the relay's current value.
func (c *Client) Get(ctx context.Context) (State, error) {
	var st State
	resp, err := c.resty.R().SetContext(ctx).SetResult(&st).Post("/get")
	if err != nil {
		return State{}, fmt.Errorf("relay get: %w", err)
	}
	if resp.IsError() {
		return State{}, fmt.Errorf("relay get: %s", resp.Status())
	}
	return st, nil
}

// Put offers content stamped with the client time t.
func (c *Client) Put(ctx context.Context, content string, t float64) (PutResult, error) {
	var res PutResult
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(State{Content: content, Time: t}).
		SetResult(&res).
		Post("/put")
	if err != nil {
		return PutResult{}, fmt.Errorf("relay put: %w", err)
	}
	if resp.IsError() {
		return PutResult{}, fmt.Errorf("relay put: %s", resp.Status())
	}
	return res, nil
}
