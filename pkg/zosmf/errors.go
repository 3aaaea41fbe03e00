package zosmf

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/samvad-hq/zosmf-probe/pkg/httpclient"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
)

// ErrorKind is the stable category of a failed status check. Callers should switch on
// the kind; the message text is kept for existing consumers that match substrings.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindMissingSession
	KindInvalidSession
	KindTimeout
	KindHostResolution
	KindConnectionRefused
	KindCertificateValidation
	KindHTTPStatus
	KindInvalidResponse
)

var kindNames = map[ErrorKind]string{
	KindTransport:             "transport",
	KindMissingSession:        "missing_session",
	KindInvalidSession:        "invalid_session",
	KindTimeout:               "timeout",
	KindHostResolution:        "host_resolution",
	KindConnectionRefused:     "connection_refused",
	KindCertificateValidation: "certificate_validation",
	KindHTTPStatus:            "http_status",
	KindInvalidResponse:       "invalid_response",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ClassifiedError is returned for every failed status check.
type ClassifiedError struct {
	Kind       ErrorKind
	Message    string
	Hostname   string
	Port       int
	StatusCode int
	Cause      error
}

func (e *ClassifiedError) Error() string { return e.Message }

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// Detail returns the underlying transport text, or "" when there is no cause.
func (e *ClassifiedError) Detail() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// IsKind reports whether err is a ClassifiedError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Kind == kind
}

func newClassifiedError(kind ErrorKind, msg string, sess *session.Session, cause error) *ClassifiedError {
	e := &ClassifiedError{Kind: kind, Message: msg, Cause: cause}
	if sess != nil {
		e.Hostname = sess.Hostname
		e.Port = sess.Port
	}
	return e
}

func missingSessionError() *ClassifiedError {
	return newClassifiedError(KindMissingSession, ZosmfMessages.MissingSession.Message, nil, nil)
}

func invalidSessionError(sess *session.Session, cause error) *ClassifiedError {
	msg := ZosmfMessages.InvalidSession.Message
	if cause != nil {
		msg = "Error: " + cause.Error()
	}
	return newClassifiedError(KindInvalidSession, msg, sess, cause)
}

// Classify maps a failure from the status request to a ClassifiedError. A nil session
// always classifies as a missing session, whatever err is.
func Classify(err error, sess *session.Session) *ClassifiedError {
	if sess == nil {
		return missingSessionError()
	}
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	// Resolver failures win over timeouts: a lookup that times out is still a DNS problem.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		code := "ENOTFOUND"
		if dnsErr.IsTemporary && !dnsErr.IsNotFound {
			code = "EAI_AGAIN"
		}
		return newClassifiedError(KindHostResolution,
			fmt.Sprintf("Error: getaddrinfo %s %s", code, sess.Hostname), sess, err)
	}

	if isTimeout(err) {
		return newClassifiedError(KindTimeout,
			fmt.Sprintf("Error: ETIMEDOUT request to %s timed out", sess.Address()), sess, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return newClassifiedError(KindConnectionRefused,
			fmt.Sprintf("Error: connect ECONNREFUSED %s", refusedAddress(err, sess)), sess, err)
	}

	if reason, ok := certificateReason(err); ok {
		return newClassifiedError(KindCertificateValidation, "Error: "+reason, sess, err)
	}

	if errors.Is(err, context.Canceled) {
		return newClassifiedError(KindTransport, "Error: request aborted", sess, err)
	}

	return newClassifiedError(KindTransport, "Error: "+err.Error(), sess, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// refusedAddress prefers the dialed address so the message carries the resolved IP,
// falling back to the session's host:port. Either way the port is present.
func refusedAddress(err error, sess *session.Session) string {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Addr != nil {
		if _, port, splitErr := net.SplitHostPort(opErr.Addr.String()); splitErr == nil && port == strconv.Itoa(sess.Port) {
			return opErr.Addr.String()
		}
	}
	return sess.Address()
}

func certificateReason(err error) (string, bool) {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return httpclient.CertificateReason(verifyErr.UnverifiedCertificates, verifyErr.Err), true
	}

	var (
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		unknownErr x509.UnknownAuthorityError
	)
	if errors.As(err, &hostErr) || errors.As(err, &invalidErr) || errors.As(err, &unknownErr) {
		return httpclient.CertificateReason(nil, err), true
	}
	return "", false
}
