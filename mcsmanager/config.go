package mcsmanager

import (
	"net/http"
	"strings"
	"time"
)

// InstanceRef names an instance on a daemon node so slash commands can
// refer to it by a short alias.
type InstanceRef struct {
	Name     string `yaml:"name"`
	UUID     string `yaml:"uuid"`
	DaemonID string `yaml:"daemon_id"`
}

// Config holds MCSManager panel client configuration.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	Instances  []InstanceRef `yaml:"instances"`
	HTTPClient *http.Client  `yaml:"-"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "mcsm-bot"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// Enabled reports whether a panel is configured.
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}

// Lookup finds a configured instance by alias, case-insensitively.
func (c Config) Lookup(name string) (InstanceRef, error) {
	for _, inst := range c.Instances {
		if strings.EqualFold(inst.Name, strings.TrimSpace(name)) {
			return inst, nil
		}
	}
	return InstanceRef{}, ErrUnknownInstance
}
