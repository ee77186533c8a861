package chunking

import "errors"

const (
	// DefaultTargetSize is the preferred chunk length in runes.
	DefaultTargetSize = 1200
	// DefaultMaxSize is the hard upper bound on chunk length in runes.
	DefaultMaxSize = 1800
)

var (
	// ErrInvalidConfig indicates an unusable size configuration.
	ErrInvalidConfig = errors.New("invalid chunking configuration")
)

// Config controls how document text is segmented. Sizes are measured
// in runes. Segments end at sentence or paragraph boundaries whenever
// one falls inside the allowed range; hard truncation only happens for
// a single sentence longer than MaxSize.
type Config struct {
	TargetSize int `toml:"target_size"`
	MaxSize    int `toml:"max_size"`
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.TargetSize <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("target_size must be > 0"))
	}
	if c.MaxSize < c.TargetSize {
		return errors.Join(ErrInvalidConfig, errors.New("max_size must be >= target_size"))
	}
	return nil
}
