package store

// Config holds store configuration.
type Config struct {
	Path string `yaml:"path"`
}
