package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/csvpull/pkg/domain/interfaces"
	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/domain/types"
)

// DefaultUserAgent is sent unless overridden with WithUserAgent
var DefaultUserAgent = types.AppName + "/" + types.Version

type client struct {
	httpClient *http.Client
	userAgent  string
	headers    http.Header
}

// Option is a functional option for the client
type Option func(*client)

// WithTimeout bounds the whole request including reading the body. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(c *client) {
		c.userAgent = userAgent
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) Option {
	return func(c *client) {
		c.headers.Add(key, value)
	}
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new HTTP client. Redirects are followed with the
// net/http default policy (up to 10 hops).
func NewClient(opts ...Option) interfaces.HTTPClient {
	c := &client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
		headers:    http.Header{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get issues a GET request for rawURL. Any status code is returned as a
// response; only transport failures are errors.
func (c *client) Get(ctx context.Context, rawURL string) (*model.HTTPResponse, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse URL",
			goerr.V("url", rawURL),
			goerr.T(types.ErrTagInvalidTarget))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("unsupported URL scheme, http or https is required",
			goerr.V("url", rawURL),
			goerr.V("scheme", u.Scheme),
			goerr.T(types.ErrTagInvalidTarget))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create download request",
			goerr.V("url", rawURL),
			goerr.T(types.ErrTagInvalidTarget))
	}

	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download resource",
			goerr.V("url", rawURL),
			goerr.T(types.ErrTagNetwork))
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &model.HTTPResponse{
		StatusCode:         resp.StatusCode,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		URL:                finalURL,
		Body:               resp.Body,
	}, nil
}
