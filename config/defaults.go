package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default returns a configuration with every default applied. Secrets stay
// empty; secrets.yaml or the environment overrides fill them in.
func Default() *AppConfig {
	cfg := &AppConfig{
		Shortcuts: ShortcutsConfig{ImportPath: "shortcuts.json"},
	}
	cfg.Defaults()
	return cfg
}

// WriteDefault renders Default() as YAML to path. An existing file is
// never overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}
