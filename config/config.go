// Package config defines the TaskDash application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level TaskDash configuration.
type Config struct {
	Server   ServerConfig `json:"server" yaml:"server"`
	Auth     AuthConfig   `json:"auth" yaml:"auth"`
	Users    []UserConfig `json:"users" yaml:"users"`
	DataDir  string       `json:"data_dir" yaml:"data_dir"`
	LogLevel string       `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8080"
}

// AuthConfig controls session token issuance.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
}

// UserConfig defines a single login account. PasswordHash (bcrypt) takes
// precedence; the plaintext Password field is for development setups only.
type UserConfig struct {
	Username     string `json:"username" yaml:"username"`
	Password     string `json:"password,omitempty" yaml:"password"`
	PasswordHash string `json:"password_hash,omitempty" yaml:"password_hash"`
	Role         string `json:"role" yaml:"role"` // "Developer" or "Manager"
}

// DefaultConfig returns a config with sensible defaults, including the two
// development accounts.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		DataDir:  "./data",
		LogLevel: "info",
		Users: []UserConfig{
			{Username: "dev", Password: "1234", Role: "Developer"},
			{Username: "manager", Password: "admin", Role: "Manager"},
		},
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
