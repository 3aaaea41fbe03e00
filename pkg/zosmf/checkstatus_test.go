package zosmf

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/testenv"
	"github.com/samvad-hq/zosmf-probe/pkg/httpclient"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
)

const infoBody = `{"zos_version":"04.27.00","zosmf_port":"443","zosmf_version":"27","zosmf_hostname":"mvs.example.com","zosmf_saf_realm":"SAFRealm","zosmf_full_version":"27.0","api_version":"1","plugins":[]}`

type tlsFixture struct {
	srv    *httptest.Server
	caFile string
	conns  atomic.Int32
	hits   atomic.Int32
}

// startZosmf serves handler over TLS with a leaf issued by a throwaway root. The root
// is written to caFile so sessions can opt into trusting it.
func startZosmf(t *testing.T, handler http.HandlerFunc, cert func(*testenv.CertAuthority) (tls.Certificate, error)) *tlsFixture {
	t.Helper()

	ca, err := testenv.NewCertAuthority("fixture-root")
	if err != nil {
		t.Fatalf("NewCertAuthority: %v", err)
	}
	if cert == nil {
		cert = func(ca *testenv.CertAuthority) (tls.Certificate, error) {
			return ca.IssueServerCertificate(time.Hour, "127.0.0.1")
		}
	}
	serverCert, err := cert(ca)
	if err != nil {
		t.Fatalf("issue server certificate: %v", err)
	}

	f := &tlsFixture{caFile: filepath.Join(t.TempDir(), "ca.pem")}
	if err := testenv.WritePEM(f.caFile, ca.Cert); err != nil {
		t.Fatalf("WritePEM: %v", err)
	}

	f.srv = httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		handler(w, r)
	}))
	f.srv.TLS = &tls.Config{Certificates: []tls.Certificate{serverCert}}
	f.srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			f.conns.Add(1)
		}
	}
	f.srv.StartTLS()
	t.Cleanup(f.srv.Close)
	return f
}

func (f *tlsFixture) session(t *testing.T, rejectUnauthorized, trustCA bool) *session.Session {
	t.Helper()
	host, portStr, err := net.SplitHostPort(f.srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	s := &session.Session{
		User:               "ibmuser",
		Password:           "secret",
		Hostname:           host,
		Port:               port,
		Type:               session.AuthBasic,
		RejectUnauthorized: rejectUnauthorized,
	}
	if trustCA {
		s.CAFile = f.caFile
	}
	return s
}

func serveInfo(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != InfoResource {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get(csrfHeader) == "" {
			t.Errorf("missing %s header", csrfHeader)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "ibmuser" || pass != "secret" {
			t.Errorf("unexpected credentials %q/%q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(infoBody))
	}
}

func TestGetZosmfInfoReturnsStatus(t *testing.T) {
	f := startZosmf(t, serveInfo(t), nil)

	info, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, true, true))
	if err != nil {
		t.Fatalf("GetZosmfInfo: %v", err)
	}
	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), "zosmf_version") {
		t.Fatalf("expected zosmf_version in %s", raw)
	}
	if info.Version() != "27" {
		t.Fatalf("unexpected version %q", info.Version())
	}
	if info["zosmf_hostname"] != "mvs.example.com" {
		t.Fatalf("body not passed through: %#v", info)
	}
}

func TestGetZosmfInfoAcceptsUntrustedCertWhenNotRejecting(t *testing.T) {
	f := startZosmf(t, serveInfo(t), nil)

	if _, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, false, false)); err != nil {
		t.Fatalf("GetZosmfInfo: %v", err)
	}
}

func TestGetZosmfInfoMissingSession(t *testing.T) {
	c := NewCheckStatus(WithClientFactory(func(httpclient.Options) httpclient.Client {
		t.Fatalf("no client should be built without a session")
		return nil
	}))

	info, err := c.GetZosmfInfo(context.Background(), nil)
	if err == nil || info != nil {
		t.Fatalf("expected failure, got info=%v err=%v", info, err)
	}
	if !strings.Contains(err.Error(), ZosmfMessages.MissingSession.Message) {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsKind(err, KindMissingSession) {
		t.Fatalf("expected missing session kind, got %v", err)
	}
}

func TestGetZosmfInfoRejectsBlankHostnameBeforeDialing(t *testing.T) {
	c := NewCheckStatus(WithClientFactory(func(httpclient.Options) httpclient.Client {
		t.Fatalf("no client should be built for an invalid session")
		return nil
	}))

	_, err := c.GetZosmfInfo(context.Background(), &session.Session{Port: 443})
	if !IsKind(err, KindInvalidSession) {
		t.Fatalf("expected invalid session, got %v", err)
	}
	if !errors.Is(err, session.ErrHostnameRequired) {
		t.Fatalf("expected ErrHostnameRequired in chain, got %v", err)
	}
}

func TestGetZosmfInfoBadHost(t *testing.T) {
	sess := &session.Session{Hostname: "badHost", Port: 443, User: "u", Password: "p", RejectUnauthorized: true}
	client := &fakeClient{err: &url.Error{
		Op:  "Get",
		URL: sess.URL(InfoResource),
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "badHost", IsNotFound: true}},
	}}

	_, err := NewCheckStatus(WithClientFactory(client.factory)).GetZosmfInfo(context.Background(), sess)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Error: getaddrinfo ENOTFOUND badHost") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsKind(err, KindHostResolution) {
		t.Fatalf("expected host resolution kind, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one request, got %d", client.calls)
	}
}

func TestGetZosmfInfoBadPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sess := &session.Session{Hostname: "127.0.0.1", Port: port, User: "u", Password: "p"}
	_, err = NewCheckStatus(WithTimeout(5*time.Second)).GetZosmfInfo(context.Background(), sess)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Error: connect ECONNREFUSED") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !strings.Contains(err.Error(), strconv.Itoa(port)) {
		t.Fatalf("message %q does not mention port %d", err.Error(), port)
	}
	if !IsKind(err, KindConnectionRefused) {
		t.Fatalf("expected connection refused kind, got %v", err)
	}
}

func TestGetZosmfInfoRejectsSelfSignedChain(t *testing.T) {
	f := startZosmf(t, serveInfo(t), nil)

	_, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, true, false))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Error: self signed certificate in certificate chain") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !IsKind(err, KindCertificateValidation) {
		t.Fatalf("expected certificate kind, got %v", err)
	}
	if f.hits.Load() != 0 {
		t.Fatalf("request reached the handler despite failed verification")
	}
}

func TestGetZosmfInfoCertificateReasons(t *testing.T) {
	cases := []struct {
		name    string
		cert    func(*testenv.CertAuthority) (tls.Certificate, error)
		trustCA bool
		want    string
	}{
		{
			name: "self signed leaf",
			cert: func(*testenv.CertAuthority) (tls.Certificate, error) {
				return testenv.SelfSignedServerCertificate("127.0.0.1")
			},
			want: "Error: self signed certificate",
		},
		{
			name: "expired",
			cert: func(ca *testenv.CertAuthority) (tls.Certificate, error) {
				return ca.IssueServerCertificate(-30*time.Minute, "127.0.0.1")
			},
			trustCA: true,
			want:    "Error: certificate has expired",
		},
		{
			name: "hostname mismatch",
			cert: func(ca *testenv.CertAuthority) (tls.Certificate, error) {
				return ca.IssueServerCertificate(time.Hour, "mvs.example.com")
			},
			trustCA: true,
			want:    "Error: Hostname/IP does not match certificate's altnames",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := startZosmf(t, serveInfo(t), tc.cert)
			_, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, true, tc.trustCA))
			if !IsKind(err, KindCertificateValidation) {
				t.Fatalf("expected certificate kind, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), tc.want) {
				t.Fatalf("message %q does not start with %q", err.Error(), tc.want)
			}
		})
	}
}

func TestGetZosmfInfoRepeatedCallsAreIndependent(t *testing.T) {
	f := startZosmf(t, serveInfo(t), nil)
	sess := f.session(t, true, true)
	c := NewCheckStatus()

	for i := 0; i < 3; i++ {
		info, err := c.GetZosmfInfo(context.Background(), sess)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		info["zosmf_version"] = "mutated"
	}
	if got := f.hits.Load(); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
	if got := f.conns.Load(); got != 3 {
		t.Fatalf("expected one connection per call, got %d", got)
	}
}

func TestGetZosmfInfoLeavesSessionUsableAfterFailure(t *testing.T) {
	var calls atomic.Int32
	f := startZosmf(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`<html><head><title>z/OSMF is starting</title></head><body>wait</body></html>`))
			return
		}
		serveInfo(t)(w, r)
	}, nil)

	sess := f.session(t, true, true)
	before := *sess
	c := NewCheckStatus()

	_, err := c.GetZosmfInfo(context.Background(), sess)
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindHTTPStatus || ce.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected http status error, got %v", err)
	}
	if !strings.Contains(ce.Message, "z/OSMF is starting") {
		t.Fatalf("expected html title in message, got %q", ce.Message)
	}
	if !reflect.DeepEqual(before, *sess) {
		t.Fatalf("session mutated: before=%+v after=%+v", before, *sess)
	}

	if _, err := c.GetZosmfInfo(context.Background(), sess); err != nil {
		t.Fatalf("reuse after failure: %v", err)
	}
}

func TestGetZosmfInfoInvalidJSON(t *testing.T) {
	f := startZosmf(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}, nil)

	_, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, false, false))
	if !IsKind(err, KindInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
}

func TestGetZosmfInfoReportsRedirectAsHTTPStatus(t *testing.T) {
	f := startZosmf(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			_, _ = w.Write([]byte(infoBody))
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}, nil)

	info, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, false, false))
	if info != nil {
		t.Fatalf("expected no status for a redirect, got %#v", info)
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindHTTPStatus || ce.StatusCode != http.StatusFound {
		t.Fatalf("expected HTTP 302 classification, got %v", err)
	}
	if got := f.hits.Load(); got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
}

func TestGetZosmfInfoPassesThroughBodyWithoutVersion(t *testing.T) {
	f := startZosmf(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"api_version":"1"}`))
	}, nil)

	info, err := NewCheckStatus().GetZosmfInfo(context.Background(), f.session(t, false, false))
	if err != nil {
		t.Fatalf("GetZosmfInfo: %v", err)
	}
	if info.Version() != "" || info["api_version"] != "1" {
		t.Fatalf("unexpected info %#v", info)
	}
}

func TestGetZosmfInfoTimeout(t *testing.T) {
	f := startZosmf(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, nil)

	_, err := NewCheckStatus(WithTimeout(100*time.Millisecond)).GetZosmfInfo(context.Background(), f.session(t, false, false))
	if !IsKind(err, KindTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestGetZosmfInfoTokenCookie(t *testing.T) {
	f := startZosmf(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(session.TokenTypeLtpa)
		if err != nil || c.Value != "ltpa-value" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(infoBody))
	}, nil)

	sess := f.session(t, false, false)
	sess.User, sess.Password = "", ""
	sess.Type = session.AuthToken
	sess.TokenType = session.TokenTypeLtpa
	sess.TokenValue = "ltpa-value"

	if _, err := NewCheckStatus().GetZosmfInfo(context.Background(), sess); err != nil {
		t.Fatalf("GetZosmfInfo: %v", err)
	}
}

type fakeClient struct {
	resp  httpclient.Response
	err   error
	calls int
	opts  httpclient.Options
}

func (f *fakeClient) factory(opts httpclient.Options) httpclient.Client {
	f.opts = opts
	return f
}

func (f *fakeClient) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	f.calls++
	return f.resp, f.err
}
