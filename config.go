package trace

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
	"github.com/microsoftarchive/semantic-logging-sub002/parsers/clr"
	"github.com/microsoftarchive/semantic-logging-sub002/schema"
)

// Config holds the settings of a Source. The zero value is not useful, start
// from DefaultConfig.
type Config struct {

	// Bounds is the bounds policy for reads outside of a validated payload,
	// "strict" or "lenient".
	Bounds string `yaml:"bounds"`

	// SchemaDir is a directory of provider manifests named by provider GUID
	// used to decode records no parser knows. Empty disables it.
	SchemaDir string `yaml:"schema_dir"`

	// MaxFixedSize is the largest fixed field size trusted in provider
	// manifests.
	MaxFixedSize int `yaml:"max_fixed_size"`

	// AllocClampMin and AllocClampMax bound allocation amounts once a stream
	// reported a negative one.
	AllocClampMin int64 `yaml:"alloc_clamp_min"`
	AllocClampMax int64 `yaml:"alloc_clamp_max"`

	// LogLevel is a zerolog level name.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Bounds:        event.Strict.String(),
		MaxFixedSize:  schema.DefaultMaxFixedSize,
		AllocClampMin: clr.DefaultAllocationMin,
		AllocClampMax: clr.DefaultAllocationMax,
		LogLevel:      zerolog.InfoLevel.String(),
	}
}

// ParseConfig parses a YAML document over DefaultConfig, keys absent from
// data keep their default. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, errors.Wrap(err, `trace: parse config`)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig reads and parses the YAML config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, `trace: load config`)
	}
	return ParseConfig(data)
}

// Validate reports the first invalid setting of c.
func (c Config) Validate() error {
	if _, err := c.BoundsPolicy(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxFixedSize <= 0 {
		return errors.Errorf(`trace: max_fixed_size must be positive, got %d`, c.MaxFixedSize)
	}
	if c.AllocClampMin <= 0 {
		return errors.Errorf(`trace: alloc_clamp_min must be positive, got %d`, c.AllocClampMin)
	}
	if c.AllocClampMax < c.AllocClampMin {
		return errors.Errorf(`trace: alloc_clamp_max %d is below alloc_clamp_min %d`,
			c.AllocClampMax, c.AllocClampMin)
	}
	return nil
}

// BoundsPolicy returns the parsed Bounds setting.
func (c Config) BoundsPolicy() (event.BoundsPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Bounds)) {
	case event.Strict.String(), ``:
		return event.Strict, nil
	case event.Lenient.String():
		return event.Lenient, nil
	}
	return event.Strict, errors.Errorf(`trace: unknown bounds policy %q`, c.Bounds)
}

// Level returns the parsed LogLevel setting.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == `` {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, errors.Wrap(err, `trace: log_level`)
	}
	return lvl, nil
}

// NewLogger returns a logger writing JSON lines to w at the level of c.
func (c Config) NewLogger(w io.Writer) (zerolog.Logger, error) {
	lvl, err := c.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
