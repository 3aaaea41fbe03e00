package httpclient

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// TLSOptions describes how the server certificate is checked and which client
// certificate, if any, is presented.
type TLSOptions struct {
	ServerName         string
	RejectUnauthorized bool
	CAFile             string
	CertFile           string
	KeyFile            string
}

// NewTLSConfig builds a tls.Config from opts. With RejectUnauthorized false the server
// chain is accepted as-is.
func NewTLSConfig(opts TLSOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         opts.ServerName,
		InsecureSkipVerify: !opts.RejectUnauthorized, //nolint:gosec // mirrors the session's rejectUnauthorized flag
	}

	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca file %q contains no PEM certificates", opts.CAFile)
		}
		cfg.RootCAs = pool
	}

	if opts.CertFile != "" || opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// CertificateReason renders a chain verification failure using the conventional
// OpenSSL wording, e.g. "self signed certificate in certificate chain". chain is the
// certificate list the server presented, leaf first; it may be empty.
func CertificateReason(chain []*x509.Certificate, err error) string {
	var (
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		unknownErr x509.UnknownAuthorityError
	)

	switch {
	case errors.As(err, &hostErr):
		return "Hostname/IP does not match certificate's altnames: " + hostErr.Error()
	case errors.As(err, &invalidErr) && invalidErr.Reason == x509.Expired:
		return "certificate has expired"
	case errors.As(err, &unknownErr):
		if len(chain) == 0 && unknownErr.Cert != nil {
			chain = []*x509.Certificate{unknownErr.Cert}
		}
		return unknownAuthorityReason(chain)
	case err != nil:
		return err.Error()
	default:
		return "certificate verification failed"
	}
}

func unknownAuthorityReason(chain []*x509.Certificate) string {
	switch {
	case len(chain) == 0:
		return "unable to get local issuer certificate"
	case isSelfSigned(chain[0]):
		return "self signed certificate"
	case len(chain) > 1 && isSelfSigned(chain[len(chain)-1]):
		return "self signed certificate in certificate chain"
	case len(chain) == 1:
		return "unable to verify the first certificate"
	default:
		return "unable to get local issuer certificate"
	}
}

func isSelfSigned(c *x509.Certificate) bool {
	if c == nil || !bytes.Equal(c.RawIssuer, c.RawSubject) {
		return false
	}
	return c.CheckSignature(c.SignatureAlgorithm, c.RawTBSCertificate, c.Signature) == nil
}
