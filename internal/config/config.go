package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models pariharam.yml.
type Config struct {
	Service struct {
		Listen   string `yaml:"listen"`
		BasePath string `yaml:"base_path"`
	} `yaml:"service"`
	Auth struct {
		JWTSecret            string `yaml:"jwt_secret"`
		AllowDevActorHeaders bool   `yaml:"allow_dev_actor_headers"`
	} `yaml:"auth"`
	Astro struct {
		EngineURL string `yaml:"engine_url"`
	} `yaml:"astro"`
	Consultations struct {
		// FocusTags is the fixed enumeration of category labels a request
		// may carry. Order matters for display.
		FocusTags []FocusTag `yaml:"focus_tags"`
	} `yaml:"consultations"`
}

type FocusTag struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// FocusTagAllowed reports whether id is in the configured enumeration.
func (c *Config) FocusTagAllowed(id string) bool {
	for _, t := range c.Consultations.FocusTags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Consultations.FocusTags) == 0 {
		return fmt.Errorf("config.consultations.focus_tags must not be empty")
	}
	seen := map[string]bool{}
	for _, t := range c.Consultations.FocusTags {
		if t.ID == "" {
			return fmt.Errorf("config.consultations.focus_tags contains empty id")
		}
		if seen[t.ID] {
			return fmt.Errorf("config.consultations.focus_tags contains duplicate id %s", t.ID)
		}
		seen[t.ID] = true
	}
	if c.Service.BasePath == "" {
		c.Service.BasePath = "/v0"
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "pariharam.yml")
}

// Default returns the built-in default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `service:
  listen: "127.0.0.1:8793"
  base_path: /v0

auth:
  jwt_secret: ""
  allow_dev_actor_headers: false

astro:
  engine_url: "http://127.0.0.1:8000"

consultations:
  focus_tags:
    - id: career
      label: "Career & Growth"
    - id: love
      label: "Relationships"
    - id: health
      label: "Health & Vitality"
    - id: wealth
      label: "Financial Strategy"
    - id: family
      label: "Family Dynamics"
`
