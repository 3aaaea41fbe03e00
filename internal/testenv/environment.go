package testenv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samvad-hq/zosmf-probe/pkg/profiles"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
	"gopkg.in/yaml.v3"
)

const (
	// PropertiesEnvVar names the environment variable pointing at the properties file.
	PropertiesEnvVar = "ZOSMF_TEST_PROPERTIES"

	defaultPropertiesFile = "custom_properties.yaml"

	// ProfileTypeZosmf asks SetUp for a temporary z/OSMF profile.
	ProfileTypeZosmf = "zosmf"
)

// ErrNoProperties is returned when no system test properties file can be found.
var ErrNoProperties = errors.New("system test properties file not found")

// ZosmfProperties describes how to reach z/OSMF on a test system.
type ZosmfProperties struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Pass               string `yaml:"pass"`
	RejectUnauthorized bool   `yaml:"rejectUnauthorized"`
	BasePath           string `yaml:"basePath,omitempty"`
}

// SystemSchema is one test system.
type SystemSchema struct {
	Zosmf ZosmfProperties `yaml:"zosmf"`
}

// Properties is the decoded system test properties file.
type Properties struct {
	DefaultSystemName string                  `yaml:"defaultSystem"`
	Systems           map[string]SystemSchema `yaml:"systems"`
}

// DefaultSystem returns the system named by defaultSystem.
func (p *Properties) DefaultSystem() (SystemSchema, error) {
	if p == nil {
		return SystemSchema{}, ErrNoProperties
	}
	sys, ok := p.Systems[p.DefaultSystemName]
	if !ok {
		return SystemSchema{}, fmt.Errorf("default system %q is not defined", p.DefaultSystemName)
	}
	return sys, nil
}

// LoadProperties reads the properties file at path. An empty path resolves to the
// ZOSMF_TEST_PROPERTIES variable (a .env file is honoured), then custom_properties.yaml.
func LoadProperties(path string) (*Properties, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		_ = godotenv.Load()
		path = strings.TrimSpace(os.Getenv(PropertiesEnvVar))
	}
	if path == "" {
		path = defaultPropertiesFile
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoProperties, path)
		}
		return nil, fmt.Errorf("read properties file: %w", err)
	}

	var props Properties
	if err := yaml.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode properties file: %w", err)
	}
	if _, err := props.DefaultSystem(); err != nil {
		return nil, err
	}
	return &props, nil
}

// Options controls SetUp.
type Options struct {
	TestName         string
	TempProfileTypes []string
	PropertiesFile   string
}

// Environment is the state shared by one system test suite.
type Environment struct {
	TestName             string
	WorkingDir           string
	ProfilesFile         string
	SystemTestProperties *Properties
}

// SetUp loads the properties, creates a working directory and writes the requested
// temporary profiles into it.
func SetUp(opts Options) (*Environment, error) {
	props, err := LoadProperties(opts.PropertiesFile)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(opts.TestName)
	if name == "" {
		name = "system"
	}
	dir, err := os.MkdirTemp("", name+"-")
	if err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	env := &Environment{
		TestName:             name,
		WorkingDir:           dir,
		SystemTestProperties: props,
	}

	for _, typ := range opts.TempProfileTypes {
		if typ != ProfileTypeZosmf {
			_ = CleanUp(env)
			return nil, fmt.Errorf("unsupported temporary profile type %q", typ)
		}
		if err := writeZosmfProfile(env); err != nil {
			_ = CleanUp(env)
			return nil, err
		}
	}
	return env, nil
}

func writeZosmfProfile(env *Environment) error {
	sys, err := env.SystemTestProperties.DefaultSystem()
	if err != nil {
		return err
	}
	reject := sys.Zosmf.RejectUnauthorized
	path := filepath.Join(env.WorkingDir, "profiles.yaml")
	err = profiles.WriteFile(path, ProfileTypeZosmf, []profiles.Profile{{
		Name:               ProfileTypeZosmf,
		Host:               sys.Zosmf.Host,
		Port:               sys.Zosmf.Port,
		User:               sys.Zosmf.User,
		Password:           sys.Zosmf.Pass,
		Type:               string(session.AuthBasic),
		BasePath:           sys.Zosmf.BasePath,
		RejectUnauthorized: &reject,
	}})
	if err != nil {
		return err
	}
	env.ProfilesFile = path
	return nil
}

// CreateZosmfSession builds a basic-auth session for the default system.
func CreateZosmfSession(env *Environment) (*session.Session, error) {
	if env == nil {
		return nil, errors.New("test environment is nil")
	}
	sys, err := env.SystemTestProperties.DefaultSystem()
	if err != nil {
		return nil, err
	}
	return session.New(session.Session{
		User:               sys.Zosmf.User,
		Password:           sys.Zosmf.Pass,
		Hostname:           sys.Zosmf.Host,
		Port:               sys.Zosmf.Port,
		BasePath:           sys.Zosmf.BasePath,
		Type:               session.AuthBasic,
		RejectUnauthorized: sys.Zosmf.RejectUnauthorized,
	})
}

// CleanUp removes the working directory.
func CleanUp(env *Environment) error {
	if env == nil || env.WorkingDir == "" {
		return nil
	}
	if err := os.RemoveAll(env.WorkingDir); err != nil {
		return fmt.Errorf("remove working directory: %w", err)
	}
	return nil
}
