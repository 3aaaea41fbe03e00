package zosmf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/zosmf-probe/pkg/httpclient"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
)

const (
	// InfoResource is the z/OSMF status-info endpoint.
	InfoResource = "/zosmf/info"

	DefaultTimeout = 30 * time.Second

	csrfHeader = "X-CSRF-ZOSMF-HEADER"
)

// StatusResponse is the parsed /zosmf/info body, passed through unchanged.
type StatusResponse map[string]any

// Version returns zosmf_version when the service sent one as a string.
func (r StatusResponse) Version() string {
	v, _ := r["zosmf_version"].(string)
	return v
}

// ClientFactory builds the HTTP client used for one status request.
type ClientFactory func(opts httpclient.Options) httpclient.Client

// CheckStatus queries the z/OSMF status endpoint.
type CheckStatus struct {
	timeout      time.Duration
	newClient    ClientFactory
	log          Logger
	transportLog resty.Logger
}

// Option customises a CheckStatus.
type Option func(*CheckStatus)

// WithTimeout bounds each request. Zero disables the transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CheckStatus) { c.timeout = d }
}

// WithClientFactory swaps the HTTP client, mostly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(c *CheckStatus) {
		if f != nil {
			c.newClient = f
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log Logger) Option {
	return func(c *CheckStatus) { c.log = ensureLogger(log) }
}

// WithTransportLogger routes resty's own warnings to log.
func WithTransportLogger(log resty.Logger) Option {
	return func(c *CheckStatus) { c.transportLog = log }
}

// NewCheckStatus builds a status client.
func NewCheckStatus(opts ...Option) *CheckStatus {
	c := &CheckStatus{
		timeout:   DefaultTimeout,
		newClient: defaultClientFactory,
		log:       noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultClientFactory(opts httpclient.Options) httpclient.Client {
	return httpclient.NewRestyClientWithOptions(opts)
}

var defaultCheckStatus = NewCheckStatus()

// GetZosmfInfo performs the status check with default settings.
func GetZosmfInfo(ctx context.Context, sess *session.Session) (StatusResponse, error) {
	return defaultCheckStatus.GetZosmfInfo(ctx, sess)
}

// GetZosmfInfo issues one GET to /zosmf/info and returns the parsed body. Every
// failure is a *ClassifiedError. sess is only read.
func (c *CheckStatus) GetZosmfInfo(ctx context.Context, sess *session.Session) (StatusResponse, error) {
	if sess == nil {
		return nil, missingSessionError()
	}
	if err := sess.Validate(); err != nil {
		return nil, invalidSessionError(sess, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts, err := c.clientOptions(sess)
	if err != nil {
		return nil, invalidSessionError(sess, err)
	}
	client := c.newClient(opts)

	url := sess.URL(InfoResource)
	start := time.Now()
	resp, err := client.Get(ctx, url, map[string]string{
		"Accept":   "application/json",
		csrfHeader: "true",
	})
	if err != nil {
		ce := Classify(err, sess)
		c.log.WarnObj("zosmf status request failed", "zosmf_status_error", map[string]any{
			"url":        url,
			"kind":       ce.Kind.String(),
			"error":      ce.Message,
			"detail":     ce.Detail(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return nil, ce
	}

	info, ce := decodeStatus(sess, resp)
	if ce != nil {
		c.log.WarnObj("zosmf status response rejected", "zosmf_status_error", map[string]any{
			"url":         url,
			"kind":        ce.Kind.String(),
			"status_code": resp.StatusCode(),
			"error":       ce.Message,
		})
		return nil, ce
	}

	c.log.DebugObj("zosmf status received", "zosmf_status", map[string]any{
		"url":           url,
		"zosmf_version": info.Version(),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return info, nil
}

func (c *CheckStatus) clientOptions(sess *session.Session) (httpclient.Options, error) {
	opts := httpclient.Options{
		Timeout: c.timeout,
		Logger:  c.transportLog,
	}

	authType := sess.Type
	if authType == "" && sess.User != "" {
		authType = session.AuthBasic
	}

	if sess.IsSecure() {
		tlsOpts := httpclient.TLSOptions{
			ServerName:         sess.Hostname,
			RejectUnauthorized: sess.RejectUnauthorized,
			CAFile:             sess.CAFile,
		}
		if authType == session.AuthCertPEM {
			tlsOpts.CertFile = sess.CertFile
			tlsOpts.KeyFile = sess.CertKeyFile
		}
		tlsCfg, err := httpclient.NewTLSConfig(tlsOpts)
		if err != nil {
			return httpclient.Options{}, err
		}
		opts.TLS = tlsCfg
	}

	switch authType {
	case session.AuthBasic:
		opts.Username = sess.User
		opts.Password = sess.Password
	case session.AuthToken:
		if sess.TokenType == session.TokenTypeBearer {
			opts.AuthToken = sess.TokenValue
		} else {
			opts.Cookies = []*http.Cookie{{Name: sess.TokenType, Value: sess.TokenValue}}
		}
	}
	return opts, nil
}

func decodeStatus(sess *session.Session, resp httpclient.Response) (StatusResponse, *ClassifiedError) {
	code := resp.StatusCode()
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		msg := fmt.Sprintf("Error: z/OSMF returned HTTP %d %s", code, http.StatusText(code))
		if snippet := bodySnippet(resp.Body(), resp.Header().Get("Content-Type")); snippet != "" {
			msg += ": " + snippet
		}
		ce := newClassifiedError(KindHTTPStatus, msg, sess, nil)
		ce.StatusCode = code
		return nil, ce
	}

	var info StatusResponse
	if err := json.Unmarshal(resp.Body(), &info); err != nil {
		ce := newClassifiedError(KindInvalidResponse,
			"Error: z/OSMF status response is not valid JSON: "+err.Error(), sess, err)
		ce.StatusCode = code
		return nil, ce
	}
	if info == nil {
		ce := newClassifiedError(KindInvalidResponse, "Error: z/OSMF status response is empty", sess, nil)
		ce.StatusCode = code
		return nil, ce
	}
	return info, nil
}
