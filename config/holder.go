package config

import (
	"sync"
	"sync/atomic"
)

// Holder publishes the current configuration and reloads it from the
// files it was first loaded from. Readers always see a complete snapshot.
type Holder struct {
	files   []string
	current atomic.Pointer[AppConfig]

	mu        sync.Mutex
	listeners []func(*AppConfig)
}

// NewHolder wraps an already loaded configuration.
func NewHolder(cfg *AppConfig, files ...string) *Holder {
	h := &Holder{files: files}
	h.current.Store(cfg)
	return h
}

// Get returns the current configuration snapshot.
func (h *Holder) Get() *AppConfig {
	return h.current.Load()
}

// Files returns the files the configuration is loaded from.
func (h *Holder) Files() []string {
	return h.files
}

// OnReload registers fn to be called with every successfully reloaded config.
func (h *Holder) OnReload(fn func(*AppConfig)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Reload re-reads the configuration files. An invalid configuration is
// rejected and the previous snapshot stays in place.
func (h *Holder) Reload() (*AppConfig, error) {
	cfg, err := LoadWithDefaults(h.files...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h.current.Store(cfg)

	h.mu.Lock()
	listeners := append([]func(*AppConfig){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return cfg, nil
}
