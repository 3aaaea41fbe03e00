// Package session describes how to reach and authenticate against a single z/OSMF instance.
package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// AuthType selects how credentials are presented to z/OSMF.
type AuthType string

const (
	AuthBasic   AuthType = "basic"
	AuthToken   AuthType = "token"
	AuthCertPEM AuthType = "cert-pem"
	AuthNone    AuthType = "none"
)

const (
	ProtocolHTTPS = "https"
	ProtocolHTTP  = "http"

	DefaultPort = 443
)

// Token types understood by z/OSMF and the API mediation layer. Anything other than
// bearer is sent as a cookie named after the token type.
const (
	TokenTypeLtpa   = "LtpaToken2"
	TokenTypeJWT    = "jwtToken"
	TokenTypeAPIML  = "apimlAuthenticationToken"
	TokenTypeBearer = "bearer"
)

var (
	ErrHostnameRequired = errors.New("required parameter 'hostname' must not be blank")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
)

// Session is a connection descriptor. Callers build it once and hand it to clients;
// clients only read from it.
type Session struct {
	User               string
	Password           string
	Hostname           string
	Port               int
	Protocol           string
	BasePath           string
	Type               AuthType
	TokenType          string
	TokenValue         string
	CertFile           string
	CertKeyFile        string
	CAFile             string
	RejectUnauthorized bool
}

// New applies defaults to s and validates the result. The argument is copied.
func New(s Session) (*Session, error) {
	s.Hostname = strings.TrimSpace(s.Hostname)
	s.Protocol = strings.ToLower(strings.TrimSpace(s.Protocol))
	if s.Protocol == "" {
		s.Protocol = ProtocolHTTPS
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.Type == "" {
		s.Type = inferAuthType(s)
	}
	s.BasePath = normalizeBasePath(s.BasePath)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports whether the session can be used for a request.
func (s *Session) Validate() error {
	if s == nil {
		return errors.New("session is nil")
	}
	if strings.TrimSpace(s.Hostname) == "" {
		return ErrHostnameRequired
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w (got %d)", ErrInvalidPort, s.Port)
	}
	switch s.scheme() {
	case ProtocolHTTPS, ProtocolHTTP:
	default:
		return fmt.Errorf("unsupported protocol %q", s.Protocol)
	}

	switch s.Type {
	case "", AuthNone:
	case AuthBasic:
		if s.User == "" || s.Password == "" {
			return errors.New("basic authentication requires user and password")
		}
	case AuthToken:
		if s.TokenType == "" || s.TokenValue == "" {
			return errors.New("token authentication requires token type and value")
		}
	case AuthCertPEM:
		if s.CertFile == "" || s.CertKeyFile == "" {
			return errors.New("certificate authentication requires cert and key files")
		}
	default:
		return fmt.Errorf("unsupported authentication type %q", s.Type)
	}
	return nil
}

// Address returns host:port, bracketing IPv6 literals.
func (s *Session) Address() string {
	return net.JoinHostPort(s.Hostname, strconv.Itoa(s.Port))
}

// URL builds the absolute URL for a z/OSMF resource path such as /zosmf/info.
func (s *Session) URL(resource string) string {
	if !strings.HasPrefix(resource, "/") {
		resource = "/" + resource
	}
	return s.scheme() + "://" + s.Address() + normalizeBasePath(s.BasePath) + resource
}

// IsSecure reports whether the session talks TLS.
func (s *Session) IsSecure() bool {
	return s.scheme() == ProtocolHTTPS
}

func (s *Session) scheme() string {
	p := strings.ToLower(strings.TrimSpace(s.Protocol))
	if p == "" {
		return ProtocolHTTPS
	}
	return p
}

func inferAuthType(s Session) AuthType {
	switch {
	case s.TokenValue != "":
		return AuthToken
	case s.CertFile != "":
		return AuthCertPEM
	case s.User != "":
		return AuthBasic
	default:
		return AuthNone
	}
}

func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
