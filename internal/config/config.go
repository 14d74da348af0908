package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Everything operational
// is a command-line flag; the file carries what does not belong on a
// command line: the credential allow-list and log output settings.
type Config struct {
	Users []User    `yaml:"users,omitempty"`
	Log   LogConfig `yaml:"log,omitempty"`
}

// User is one allow-list entry.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LogConfig holds optional rotating log file settings. An empty Filename
// leaves logging on stderr.
type LogConfig struct {
	Filename   string `yaml:"filename,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty"` // megabytes
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAge     int    `yaml:"max_age,omitempty"` // days
	Compress   bool   `yaml:"compress,omitempty"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	for i, u := range cfg.Users {
		if u.Username == "" {
			return nil, fmt.Errorf("config %s: users[%d] has no username", path, i)
		}
	}

	return &cfg, nil
}
