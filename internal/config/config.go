// Package config loads settings for the lottery server and the agency
// client from a YAML file, environment variables and command-line flags,
// applied in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidBackends lists the storage backends the server accepts.
var ValidBackends = []string{"csv", "sqlite", "memory"}

// Config is the root of the configuration file. Both binaries read the
// same file and use their own section.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Agency  AgencyConfig  `yaml:"agency"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the lottery server.
type ServerConfig struct {
	Storage          StorageConfig `yaml:"storage"`
	MetricsAddr      string        `yaml:"metrics_addr"` // Empty disables /metrics
	ShutdownTimeout  Duration      `yaml:"shutdown_timeout"`
	Port             int           `yaml:"port"`
	ListenBacklog    int           `yaml:"listen_backlog"`
	ExpectedAgencies int           `yaml:"expected_agencies"`
}

// StorageConfig selects and locates the bet store.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// AgencyConfig configures the agency client.
type AgencyConfig struct {
	ServerAddress  string   `yaml:"server_address"`
	DataFile       string   `yaml:"data_file"`
	LoopPeriod     Duration `yaml:"loop_period"`
	ID             int      `yaml:"id"`
	BatchMaxAmount int      `yaml:"batch_max_amount"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Duration is a time.Duration written as a Go duration string ("5s") in YAML.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             12345,
			ListenBacklog:    5,
			ExpectedAgencies: 5,
			ShutdownTimeout:  Duration(5 * time.Second),
			Storage: StorageConfig{
				Backend: "csv",
				Path:    "./bets.csv",
			},
		},
		Agency: AgencyConfig{
			ServerAddress:  "server:12345",
			BatchMaxAmount: 100,
			LoopPeriod:     Duration(time.Second),
			DataFile:       "./agency.csv",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load reads path, falling back to defaults when the file does not exist,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	overrides := []struct {
		key   string
		apply func(string) error
	}{
		{"SERVER_PORT", intSetter(&c.Server.Port)},
		{"SERVER_LISTEN_BACKLOG", intSetter(&c.Server.ListenBacklog)},
		{"EXPECTED_AGENCIES", intSetter(&c.Server.ExpectedAgencies)},
		{"SHUTDOWN_TIMEOUT", durationSetter(&c.Server.ShutdownTimeout)},
		{"STORAGE_BACKEND", stringSetter(&c.Server.Storage.Backend)},
		{"STORAGE_PATH", stringSetter(&c.Server.Storage.Path)},
		{"METRICS_ADDR", stringSetter(&c.Server.MetricsAddr)},
		{"LOGGING_LEVEL", stringSetter(&c.Logging.Level)},
		{"CLI_ID", intSetter(&c.Agency.ID)},
		{"CLI_SERVER_ADDRESS", stringSetter(&c.Agency.ServerAddress)},
		{"CLI_BATCH_MAXAMOUNT", intSetter(&c.Agency.BatchMaxAmount)},
		{"CLI_LOOP_PERIOD", durationSetter(&c.Agency.LoopPeriod)},
		{"CLI_DATA_FILE", stringSetter(&c.Agency.DataFile)},
	}

	for _, o := range overrides {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		if err := o.apply(v); err != nil {
			return fmt.Errorf("invalid %s: %w", o.key, err)
		}
	}
	return nil
}

func stringSetter(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func intSetter(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func durationSetter(dst *Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = Duration(d)
		return nil
	}
}

// Validate checks the server section.
func (s ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be within 1-65535", s.Port)
	}
	if s.ListenBacklog < 1 {
		return fmt.Errorf("invalid listen backlog %d: must be at least 1", s.ListenBacklog)
	}
	if s.ExpectedAgencies < 1 {
		return fmt.Errorf("invalid expected agencies %d: must be at least 1", s.ExpectedAgencies)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be positive", s.ShutdownTimeout.Std())
	}

	validBackend := false
	for _, b := range ValidBackends {
		if s.Storage.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid storage backend: %s (valid: %v)", s.Storage.Backend, ValidBackends)
	}
	if s.Storage.Backend != "memory" && s.Storage.Path == "" {
		return fmt.Errorf("storage backend %s requires a path", s.Storage.Backend)
	}
	return nil
}

// Validate checks the agency section.
func (a AgencyConfig) Validate() error {
	if a.ID < 1 {
		return fmt.Errorf("invalid agency id %d: must be positive", a.ID)
	}
	if a.ServerAddress == "" {
		return fmt.Errorf("server address not configured")
	}
	if a.BatchMaxAmount < 1 {
		return fmt.Errorf("invalid batch max amount %d: must be at least 1", a.BatchMaxAmount)
	}
	if a.LoopPeriod < 0 {
		return fmt.Errorf("invalid loop period %v: must not be negative", a.LoopPeriod.Std())
	}
	return nil
}
