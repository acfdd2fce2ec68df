package simulation

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/cache"
	"gopkg.in/yaml.v3"
)

// ErrInvalidHierarchy is wrapped by the errors returned for hierarchy
// descriptions that cannot be built.
var ErrInvalidHierarchy = errors.New("invalid hierarchy")

// LevelConfig describes one cache level.
type LevelConfig struct {
	Name         string `yaml:"name" json:"name"`
	cache.Config `yaml:",inline"`
	Latency      mem.Latency `yaml:"latency" json:"latency"`
}

// MemoryConfig describes the memory at the bottom of the hierarchy.
type MemoryConfig struct {
	Latency mem.Latency `yaml:"latency" json:"latency"`

	// Capacity is the number of bytes that hold data. Zero means the memory
	// does not keep data and reads return zeros.
	Capacity uint64 `yaml:"capacity" json:"capacity"`
}

// Config describes a hierarchy. Levels are listed from the top, the level
// that receives the trace, down to the last cache before the memory.
type Config struct {
	Levels     []LevelConfig `yaml:"levels" json:"levels"`
	Memory     MemoryConfig  `yaml:"memory" json:"memory"`
	FlushAtEnd bool          `yaml:"flush_at_end" json:"flush_at_end"`
}

// DefaultLevel returns a 32KB, 8-way, write-back, write-allocate LRU cache of
// 64-byte blocks with a 3-cycle bus and a 10-cycle hit latency.
func DefaultLevel(name string) LevelConfig {
	return LevelConfig{
		Name: name,
		Config: cache.Config{
			Size:          32 * mem.KB,
			BlockSize:     64,
			Associativity: 8,
			WriteAllocate: true,
			Replacement:   cache.ReplacementLRU,
		},
		Latency: mem.Latency{BusLatency: 3, HitLatency: 10},
	}
}

// DefaultConfig returns a single-level hierarchy in front of a memory with a
// 6-cycle bus and a 100-cycle access latency.
func DefaultConfig() Config {
	return Config{
		Levels: []LevelConfig{DefaultLevel("L1")},
		Memory: MemoryConfig{
			Latency: mem.Latency{BusLatency: 6, HitLatency: 100},
		},
	}
}

// LoadConfig reads and validates a YAML hierarchy description.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML hierarchy description. Unknown
// keys are rejected. Levels without a name are named L1, L2, and so on, and
// levels without a replacement policy use LRU.
func ParseConfig(data []byte) (Config, error) {
	var c Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Levels {
		level := &c.Levels[i]

		if level.Name == "" {
			level.Name = fmt.Sprintf("L%d", i+1)
		}

		if level.Replacement == "" {
			level.Replacement = cache.ReplacementLRU
		}
	}
}

// Validate checks that the hierarchy can be built.
func (c Config) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("%w: no cache level", ErrInvalidHierarchy)
	}

	names := map[string]bool{}

	for _, level := range c.Levels {
		if level.Name == "" {
			return fmt.Errorf("%w: level without a name", ErrInvalidHierarchy)
		}

		if names[level.Name] {
			return fmt.Errorf("%w: duplicated level name %q",
				ErrInvalidHierarchy, level.Name)
		}

		names[level.Name] = true

		if err := level.Config.Validate(); err != nil {
			return fmt.Errorf("level %s: %w", level.Name, err)
		}

		if err := validateLatency(level.Latency); err != nil {
			return fmt.Errorf("level %s: %w", level.Name, err)
		}
	}

	for i := 1; i < len(c.Levels); i++ {
		upper, lower := c.Levels[i-1], c.Levels[i]
		if lower.BlockSize < upper.BlockSize {
			return fmt.Errorf("%w: level %s has %d-byte blocks, smaller "+
				"than the %d-byte blocks of level %s above it",
				ErrInvalidHierarchy, lower.Name, lower.BlockSize,
				upper.BlockSize, upper.Name)
		}
	}

	if err := validateLatency(c.Memory.Latency); err != nil {
		return fmt.Errorf("memory: %w", err)
	}

	return nil
}

func validateLatency(l mem.Latency) error {
	if l.BusLatency < 0 {
		return fmt.Errorf("%w: negative bus latency %d",
			ErrInvalidHierarchy, l.BusLatency)
	}

	if l.HitLatency <= 0 {
		return fmt.Errorf("%w: hit latency %d is not positive",
			ErrInvalidHierarchy, l.HitLatency)
	}

	return nil
}
