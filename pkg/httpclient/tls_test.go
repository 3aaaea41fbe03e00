package httpclient

import (
	"crypto/x509"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/testenv"
)

func TestCertificateReasonSelfSignedLeaf(t *testing.T) {
	cert, err := testenv.SelfSignedServerCertificate("127.0.0.1")
	if err != nil {
		t.Fatalf("SelfSignedServerCertificate: %v", err)
	}
	got := CertificateReason([]*x509.Certificate{cert.Leaf}, x509.UnknownAuthorityError{Cert: cert.Leaf})
	if got != "self signed certificate" {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestCertificateReasonSelfSignedRootInChain(t *testing.T) {
	ca, err := testenv.NewCertAuthority("fixture-root")
	if err != nil {
		t.Fatalf("NewCertAuthority: %v", err)
	}
	cert, err := ca.IssueServerCertificate(time.Hour, "127.0.0.1")
	if err != nil {
		t.Fatalf("IssueServerCertificate: %v", err)
	}

	chain := []*x509.Certificate{cert.Leaf, ca.Cert}
	got := CertificateReason(chain, x509.UnknownAuthorityError{Cert: cert.Leaf})
	if got != "self signed certificate in certificate chain" {
		t.Fatalf("unexpected reason %q", got)
	}

	got = CertificateReason(chain[:1], x509.UnknownAuthorityError{Cert: cert.Leaf})
	if got != "unable to verify the first certificate" {
		t.Fatalf("unexpected reason for leaf-only chain %q", got)
	}
}

func TestCertificateReasonExpiredAndHostname(t *testing.T) {
	if got := CertificateReason(nil, x509.CertificateInvalidError{Reason: x509.Expired}); got != "certificate has expired" {
		t.Fatalf("unexpected expired reason %q", got)
	}

	hostErr := x509.HostnameError{Certificate: &x509.Certificate{DNSNames: []string{"a.example"}}, Host: "b.example"}
	got := CertificateReason(nil, hostErr)
	if !strings.HasPrefix(got, "Hostname/IP does not match certificate's altnames") || !strings.Contains(got, "b.example") {
		t.Fatalf("unexpected hostname reason %q", got)
	}

	if got := CertificateReason(nil, errors.New("boom")); got != "boom" {
		t.Fatalf("unexpected fallback %q", got)
	}
}

func TestNewTLSConfig(t *testing.T) {
	cfg, err := NewTLSConfig(TLSOptions{ServerName: "mvs", RejectUnauthorized: false})
	if err != nil {
		t.Fatalf("NewTLSConfig: %v", err)
	}
	if !cfg.InsecureSkipVerify {
		t.Fatalf("expected verification disabled")
	}

	ca, err := testenv.NewCertAuthority("fixture-root")
	if err != nil {
		t.Fatalf("NewCertAuthority: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := testenv.WritePEM(path, ca.Cert); err != nil {
		t.Fatalf("WritePEM: %v", err)
	}
	cfg, err = NewTLSConfig(TLSOptions{ServerName: "mvs", RejectUnauthorized: true, CAFile: path})
	if err != nil {
		t.Fatalf("NewTLSConfig with ca: %v", err)
	}
	if cfg.InsecureSkipVerify || cfg.RootCAs == nil {
		t.Fatalf("expected verification with custom roots")
	}

	if _, err := NewTLSConfig(TLSOptions{CAFile: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Fatalf("expected error for missing ca file")
	}
}
