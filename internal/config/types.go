package config

import "time"

// Config is the top-level orchestrator configuration parsed from YAML.
type Config struct {
	Store     StoreConfig               `yaml:"store"`
	DB        DBConfig                  `yaml:"db"`
	Agent     AgentConfig               `yaml:"agent"`
	Review    ReviewConfig              `yaml:"review"`
	Processes map[string]map[string]any `yaml:"processes"`
}

// StoreConfig selects and configures the durable record store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`      // "fs" or "postgres"
	BaseDir     string `yaml:"base_dir"`     // fs backend; empty = ~/.qaforge/runs
	PostgresDSN string `yaml:"postgres_dsn"` // postgres backend
}

// DBConfig locates the audit database.
type DBConfig struct {
	Path string `yaml:"path"` // empty = ~/.qaforge/qaforge.db
}

// AgentConfig defines the subprocess that executes work units.
type AgentConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Timeout string   `yaml:"timeout"`
}

// ReviewConfig selects the review channel for quality gates.
type ReviewConfig struct {
	Mode    string `yaml:"mode"`    // "console" or "auto"
	Timeout string `yaml:"timeout"` // bound on each gate suspension; empty = none
}

// AgentTimeout returns the parsed per-invocation timeout, 0 for none.
func (c *AgentConfig) AgentTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ReviewTimeout returns the parsed gate suspension timeout, 0 for none.
func (c *ReviewConfig) ReviewTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ProcessParams returns the configured default parameters for a process, or
// nil if none are set.
func (c *Config) ProcessParams(process string) map[string]any {
	return c.Processes[process]
}
