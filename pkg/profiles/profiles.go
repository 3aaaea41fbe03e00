package profiles

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/zosmf-probe/internal/fileconf"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
)

// configFile represents the structure of the profiles file.
type configFile struct {
	Default  string    `json:"default,omitempty" yaml:"default,omitempty"`
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Profile is one named z/OSMF connection as declared in the profiles file.
type Profile struct {
	Name               string `json:"name" yaml:"name"`
	Host               string `json:"host" yaml:"host"`
	Port               int    `json:"port,omitempty" yaml:"port,omitempty"`
	User               string `json:"user,omitempty" yaml:"user,omitempty"`
	Password           string `json:"password,omitempty" yaml:"password,omitempty"`
	Type               string `json:"type,omitempty" yaml:"type,omitempty"`
	Protocol           string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	BasePath           string `json:"base_path,omitempty" yaml:"base_path,omitempty"`
	RejectUnauthorized *bool  `json:"reject_unauthorized,omitempty" yaml:"reject_unauthorized,omitempty"`
	TokenType          string `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	TokenValue         string `json:"token_value,omitempty" yaml:"token_value,omitempty"`
	CertFile           string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	CertKeyFile        string `json:"cert_key_file,omitempty" yaml:"cert_key_file,omitempty"`
	CAFile             string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

// RejectUnauthorizedValue returns the TLS validation flag, defaulting to true.
func (p Profile) RejectUnauthorizedValue() bool {
	if p.RejectUnauthorized == nil {
		return true
	}
	return *p.RejectUnauthorized
}

// Session builds a validated session from the profile.
func (p Profile) Session() (*session.Session, error) {
	sess, err := session.New(session.Session{
		User:               p.User,
		Password:           p.Password,
		Hostname:           p.Host,
		Port:               p.Port,
		Protocol:           p.Protocol,
		BasePath:           p.BasePath,
		Type:               session.AuthType(p.Type),
		TokenType:          p.TokenType,
		TokenValue:         p.TokenValue,
		CertFile:           p.CertFile,
		CertKeyFile:        p.CertKeyFile,
		CAFile:             p.CAFile,
		RejectUnauthorized: p.RejectUnauthorizedValue(),
	})
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return sess, nil
}

// Registry materializes profile definitions loaded from a profiles file.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile
	idx      map[string]Profile
	def      string
}

// LoadRegistry loads the profile registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	var file configFile
	if err := fileconf.Load(path, "profiles", &file); err != nil {
		return nil, err
	}
	return NewRegistry(file.Default, file.Profiles)
}

// NewRegistry validates profiles and indexes them by name. def may be empty, in which
// case the first profile is the default.
func NewRegistry(def string, profiles []Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, errors.New("profiles file contains no profiles entries")
	}

	reg := &Registry{
		profiles: make([]Profile, len(profiles)),
		idx:      make(map[string]Profile, len(profiles)),
		def:      strings.TrimSpace(def),
	}
	for i := range profiles {
		p := sanitizeProfile(profiles[i])
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profiles[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.Name]; exists {
			return nil, fmt.Errorf("duplicate profile name %q", p.Name)
		}
		reg.profiles[i] = p
		reg.idx[p.Name] = p
	}
	if reg.def != "" {
		if _, ok := reg.idx[reg.def]; !ok {
			return nil, fmt.Errorf("default profile %q is not defined", reg.def)
		}
	}
	return reg, nil
}

// sanitizeProfile trims and normalizes the profile fields.
func sanitizeProfile(p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.Host = strings.TrimSpace(p.Host)
	p.User = strings.TrimSpace(p.User)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.Protocol = strings.ToLower(strings.TrimSpace(p.Protocol))
	p.BasePath = strings.TrimSpace(p.BasePath)
	p.TokenType = strings.TrimSpace(p.TokenType)
	return p
}

// validateProfile checks that required fields are present.
func validateProfile(p Profile) error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Host == "" {
		return fmt.Errorf("host is required for profile %q", p.Name)
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("port %d out of range for profile %q", p.Port, p.Name)
	}
	return nil
}

// ByName returns the profile with the given name.
func (r *Registry) ByName(name string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[name]
	return p, ok
}

// Default returns the declared default profile, or the first one.
func (r *Registry) Default() (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.def != "" {
		p, ok := r.idx[r.def]
		return p, ok
	}
	if len(r.profiles) == 0 {
		return Profile{}, false
	}
	return r.profiles[0], true
}

// Resolve returns the named profile, falling back to the default when name is empty.
func (r *Registry) Resolve(name string) (Profile, error) {
	if strings.TrimSpace(name) == "" {
		p, ok := r.Default()
		if !ok {
			return Profile{}, errors.New("no default profile")
		}
		return p, nil
	}
	p, ok := r.ByName(name)
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// All returns all configured profiles.
func (r *Registry) All() []Profile {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// WriteFile persists profiles as YAML, readable by LoadRegistry.
func WriteFile(path, def string, profiles []Profile) error {
	return fileconf.Write(path, "profiles", configFile{Default: def, Profiles: profiles})
}
