package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/joyland/internal/schedule"
)

// StorageConfig selects where tracker state is persisted.
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// SchedulesConfig points at an alternate schedule table.
type SchedulesConfig struct {
	File string `yaml:"file,omitempty"`
}

// UIConfig holds rendering preferences.
type UIConfig struct {
	Timeline bool `yaml:"timeline"`
	Notify   bool `yaml:"notify"`
}

// Config holds joyland configuration.
type Config struct {
	Version   string          `yaml:"version"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Schedules SchedulesConfig `yaml:"schedules,omitempty"`
	UI        UIConfig        `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		UI: UIConfig{
			Timeline: true,
		},
	}
}

// Store represents a loaded JOYLAND_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the JOYLAND_HOME path, respecting the JOYLAND_HOME env var.
func Home() string {
	if h := os.Getenv("JOYLAND_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".joyland")
	}
	return filepath.Join(home, ".joyland")
}

// Init creates the JOYLAND_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("JOYLAND_HOME already exists at %s (use --force to reinitialize)", home)
	}

	if err := os.MkdirAll(filepath.Join(home, "state"), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads an existing JOYLAND_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read JOYLAND_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// LoadOrInit loads JOYLAND_HOME, creating it with defaults on first use.
func LoadOrInit(home string) (*Store, error) {
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); os.IsNotExist(err) {
		if err := Init(home, true); err != nil {
			return nil, err
		}
	}
	return Load(home)
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(s.Home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "storage.backend").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "storage.backend":
		if !validBackend(value) {
			return fmt.Errorf("storage.backend must be one of: %s, %s, %s", BackendFile, BackendSQLite, BackendBadger)
		}
		s.Config.Storage.Backend = value
	case "schedules.file":
		if value != "" {
			if _, err := schedule.Load(s.resolve(value)); err != nil {
				return err
			}
		}
		s.Config.Schedules.File = value
	case "ui.timeline":
		s.Config.UI.Timeline = value == "true"
	case "ui.notify":
		s.Config.UI.Notify = value == "true"
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: storage.backend, schedules.file, ui.timeline, ui.notify", key)
	}
	return s.SaveConfig()
}

// Path resolves a path within JOYLAND_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// Table returns the configured schedule table, or the built-in one.
func (s *Store) Table() (*schedule.Table, error) {
	if s.Config.Schedules.File == "" {
		return schedule.Default(), nil
	}
	return schedule.Load(s.resolve(s.Config.Schedules.File))
}

func (s *Store) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return s.Path(p)
}

// CheckHealth verifies JOYLAND_HOME structure integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, "state")
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
		return issues
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		return issues
	}
	if !validBackend(cfg.Storage.Backend) {
		issues = append(issues, Issue{"error", fmt.Sprintf("unknown storage.backend %q", cfg.Storage.Backend)})
	}
	if cfg.Schedules.File != "" {
		s := &Store{Home: home, Config: cfg}
		if _, err := s.Table(); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("schedule table: %v", err)})
		}
	}
	return issues
}

// FixIssues attempts to repair simple issues in JOYLAND_HOME.
func FixIssues(home string) []string {
	var fixed []string

	p := filepath.Join(home, "state")
	if _, err := os.Stat(p); err != nil {
		if err := os.MkdirAll(p, 0755); err == nil {
			fixed = append(fixed, "recreated missing directory: state")
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		data, _ := yaml.Marshal(DefaultConfig())
		if os.WriteFile(cfgPath, data, 0644) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	return fixed
}
