package testenv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/zosmf-probe/pkg/profiles"
)

const sampleProperties = `
defaultSystem: lpar1
systems:
  lpar1:
    zosmf:
      host: mvs1.example.com
      port: 10443
      user: ibmuser
      pass: secret
      rejectUnauthorized: false
`

func writeProperties(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custom_properties.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	return path
}

func TestSetUpWritesZosmfProfile(t *testing.T) {
	t.Setenv(PropertiesEnvVar, writeProperties(t, sampleProperties))

	env, err := SetUp(Options{TestName: "get_zosmf_info", TempProfileTypes: []string{ProfileTypeZosmf}})
	if err != nil {
		t.Fatalf("SetUp: %v", err)
	}

	reg, err := profiles.LoadRegistry(env.ProfilesFile)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	p, ok := reg.Default()
	if !ok || p.Name != ProfileTypeZosmf || p.Host != "mvs1.example.com" || p.RejectUnauthorizedValue() {
		t.Fatalf("unexpected profile %+v", p)
	}

	sess, err := CreateZosmfSession(env)
	if err != nil {
		t.Fatalf("CreateZosmfSession: %v", err)
	}
	if sess.Port != 10443 || sess.User != "ibmuser" || sess.RejectUnauthorized {
		t.Fatalf("unexpected session %+v", sess)
	}

	if err := CleanUp(env); err != nil {
		t.Fatalf("CleanUp: %v", err)
	}
	if _, err := os.Stat(env.WorkingDir); !os.IsNotExist(err) {
		t.Fatalf("working directory still present: %v", err)
	}
}

func TestLoadPropertiesMissingFile(t *testing.T) {
	_, err := LoadProperties(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrNoProperties) {
		t.Fatalf("expected ErrNoProperties, got %v", err)
	}
}

func TestLoadPropertiesUndefinedDefault(t *testing.T) {
	path := writeProperties(t, "defaultSystem: other\nsystems:\n  lpar1:\n    zosmf:\n      host: h\n")
	if _, err := LoadProperties(path); err == nil {
		t.Fatalf("expected error for undefined default system")
	}
}

func TestSetUpRejectsUnknownProfileType(t *testing.T) {
	if _, err := SetUp(Options{PropertiesFile: writeProperties(t, sampleProperties), TempProfileTypes: []string{"tso"}}); err == nil {
		t.Fatalf("expected error for unsupported profile type")
	}
}
