package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen = "127.0.0.1:8080"
	DefaultAPIURL = "http://localhost:3000"
	DefaultPath   = "./eventlist.yaml"
)

// Selectors name the page elements the View binds to. Each value is a
// simple selector: "#id", ".class" or a tag name.
type Selectors struct {
	Form         string `yaml:"form" json:"form"`
	NameInput    string `yaml:"name_input" json:"name_input"`
	StartInput   string `yaml:"start_input" json:"start_input"`
	EndInput     string `yaml:"end_input" json:"end_input"`
	TableBody    string `yaml:"table_body" json:"table_body"`
	ToggleButton string `yaml:"toggle_button" json:"toggle_button"`
	Notice       string `yaml:"notice" json:"notice"`
}

// DefaultSelectors matches the embedded page markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Form:         ".event-form",
		NameInput:    "#input-event-name",
		StartInput:   "#input-event-start",
		EndInput:     "#input-event-end",
		TableBody:    "#event-table-body",
		ToggleButton: "#show-form-btn",
		Notice:       "#notice",
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls the headless screenshot of the page.
type CaptureConfig struct {
	// URL defaults to the local web UI.
	URL        string        `yaml:"url" json:"url"`
	OutputPath string        `yaml:"output" json:"output"`
	Width      int           `yaml:"width" json:"width"`
	Height     int           `yaml:"height" json:"height"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI.
	Listen string `yaml:"listen" json:"listen"`

	// APIURL is the base URL of the events service.
	APIURL string `yaml:"api_url" json:"api_url"`

	// RequestTimeout bounds each call to the events service. Zero means no
	// timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// RefreshCron re-fetches and re-renders the list on a cron schedule
	// (e.g. "*/5 * * * *"). Empty disables periodic refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Timezone is the IANA zone used to interpret bare times ("09:00")
	// in ICS export and to lay out imported occurrences.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Page optionally points at replacement page markup. Empty uses the
	// embedded page.
	Page string `yaml:"page,omitempty" json:"page,omitempty"`

	Selectors Selectors `yaml:"selectors" json:"selectors"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Listen:    DefaultListen,
		APIURL:    DefaultAPIURL,
		Timezone:  "UTC",
		Selectors: DefaultSelectors(),
	}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that partially
// filled config files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.RequestTimeout < 0 {
		c.RequestTimeout = 0
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}

	def := DefaultSelectors()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&c.Selectors.Form, def.Form)
	fill(&c.Selectors.NameInput, def.NameInput)
	fill(&c.Selectors.StartInput, def.StartInput)
	fill(&c.Selectors.EndInput, def.EndInput)
	fill(&c.Selectors.TableBody, def.TableBody)
	fill(&c.Selectors.ToggleButton, def.ToggleButton)
	fill(&c.Selectors.Notice, def.Notice)

	if c.Capture.URL == "" {
		c.Capture.URL = "http://" + c.Listen + "/"
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = "./cache/preview.png"
	}
}

// ApplyEnv overrides file values with EVENTLIST_API_URL / EVENTLIST_LISTEN
// when they are set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("EVENTLIST_API_URL")); v != "" {
		c.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("EVENTLIST_LISTEN")); v != "" {
		c.Listen = v
	}
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unwritable config dir is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventlist-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
