package config

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Config represents the configuration file of the rewriter
type Config struct {
	ID string `yaml:"id" json:"id"`

	// Version is the dialect version. When unset it is derived from
	// ServerVersion.
	Version       types.Version `yaml:"version,omitempty" json:"version,omitempty"`
	ServerVersion string        `yaml:"server_version,omitempty" json:"server_version,omitempty"`

	AllowApoc     bool     `yaml:"allow_apoc" json:"allow_apoc"`
	Strict        bool     `yaml:"strict,omitempty" json:"strict,omitempty"`
	ApocAllowList []string `yaml:"apoc_allow_list,omitempty" json:"apoc_allow_list,omitempty"`
}

// LoadFromFile loads configuration from a file
func LoadFromFile(filename string) (*Config, error) {
	slog.Debug("Loading config from file", "filename", filename)
	data, err := os.ReadFile(filename)
	if err != nil {
		slog.Debug("Failed to read file", "error", err)
		return nil, errors.Wrapf(err, "failed to read config file %s", filename)
	}

	slog.Debug("File content preview", "content", string(data[:min(200, len(data))]))

	var config Config

	// Try YAML first, then JSON
	slog.Debug("Attempting YAML unmarshal")
	if err := yaml.Unmarshal(data, &config); err != nil {
		slog.Debug("YAML unmarshal failed", "error", err)
		slog.Debug("Attempting JSON unmarshal")
		if err := json.Unmarshal(data, &config); err != nil {
			slog.Debug("JSON unmarshal failed", "error", err)
			return nil, errors.Wrapf(err, "failed to parse config file %s", filename)
		}
		slog.Debug("JSON unmarshal succeeded")
	} else {
		slog.Debug("YAML unmarshal succeeded")
	}

	slog.Debug("Loaded config", "id", config.ID, "version", config.Version, "allow_apoc", config.AllowApoc)
	return &config, nil
}

// DefaultConfig returns a default configuration: V5, APOC disabled.
func DefaultConfig(id string) *Config {
	return &Config{
		ID:      id,
		Version: types.Version_V5,
	}
}

// RewriteConfig resolves the file configuration into the value the
// rewriter takes. An explicit version wins over ServerVersion unless the
// two disagree, which is an error.
func (c *Config) RewriteConfig() (types.Config, error) {
	version := c.Version
	if c.ServerVersion != "" {
		detected, err := dialect.Detect(c.ServerVersion)
		if err != nil {
			return types.Config{}, err
		}
		if version != types.Version_VERSION_UNSPECIFIED && version != detected {
			return types.Config{}, errors.Errorf("version %s does not match server version %s (%s)", version, c.ServerVersion, detected)
		}
		version = detected
	}
	if !version.IsValid() {
		return types.Config{}, errors.Errorf("unsupported dialect version: %v", version)
	}

	cfg := types.Config{
		Version:   version,
		AllowApoc: c.AllowApoc,
		Strict:    c.Strict,
	}
	if len(c.ApocAllowList) > 0 {
		cfg.ApocAllowList = append([]string(nil), c.ApocAllowList...)
	}
	return cfg, nil
}
