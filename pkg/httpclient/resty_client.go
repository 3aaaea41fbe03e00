package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultDialTimeout = 30 * time.Second

// Options configures a single-use client.
type Options struct {
	Timeout time.Duration
	TLS     *tls.Config

	// Credentials. At most one style is normally set.
	Username  string
	Password  string
	AuthToken string
	Cookies   []*http.Cookie

	Logger resty.Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// NewRestyClientWithOptions builds a client on a private transport. Keep-alives are
// disabled so every client opens exactly one connection per request and shares nothing.
// Redirects are not followed; a 3xx is returned to the caller as is.
func NewRestyClientWithOptions(opts Options) *RestyClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: defaultDialTimeout}).DialContext,
		TLSClientConfig:     opts.TLS,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableKeepAlives:   true,
	}

	c := resty.NewWithClient(&http.Client{Transport: transport})
	c.SetTimeout(opts.Timeout)
	c.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	if opts.Logger != nil {
		c.SetLogger(opts.Logger)
	}
	if opts.Username != "" || opts.Password != "" {
		c.SetBasicAuth(opts.Username, opts.Password)
	}
	if opts.AuthToken != "" {
		c.SetAuthToken(opts.AuthToken)
	}
	if len(opts.Cookies) > 0 {
		c.SetCookies(opts.Cookies)
	}
	return &RestyClient{client: c}
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }
