package mclogs

import (
	"net/http"
	"path"
	"strings"
	"time"
)

// Config holds log upload configuration.
type Config struct {
	Disabled   bool         `yaml:"disabled"`
	APIURL     string       `yaml:"api_url"`
	MaxBytes   int64        `yaml:"max_bytes"`
	Extensions []string     `yaml:"extensions"`
	Channels   []string     `yaml:"channels"`
	HTTPClient *http.Client `yaml:"-"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.APIURL == "" {
		c.APIURL = "https://api.mclo.gs/1/log"
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".log", ".txt"}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
}

// Accepts reports whether filename has one of the configured extensions.
func (c Config) Accepts(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return false
	}
	for _, allowed := range c.Extensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
