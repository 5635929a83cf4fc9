package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/snoopsim/timing/cache"
	"github.com/sarchlab/snoopsim/timing/coherence"
)

// Config holds the full simulation configuration.
type Config struct {
	// Protocol selects the coherence scheme: MESI, Dragon, MOESI, or MESIF.
	Protocol string `json:"protocol"`

	// NumCores is the number of processors.
	NumCores int `json:"num_cores"`

	// CacheSize in bytes, per core.
	CacheSize int `json:"cache_size"`

	// Associativity (number of ways).
	Associativity int `json:"associativity"`

	// BlockSize in bytes (cache line size).
	BlockSize int `json:"block_size"`

	// UseWriteBuffer fronts the memory controller with a draining
	// write buffer that coalesces eviction latency with reads.
	UseWriteBuffer bool `json:"use_write_buffer"`

	// WriteBufferCapacity bounds the write buffer; -1 is unbounded.
	WriteBufferCapacity int `json:"write_buffer_capacity"`
}

// DefaultConfig returns the default simulation parameters: MESI on two
// cores with a 4KB 2-way cache of 32-byte lines and no write buffer.
func DefaultConfig() Config {
	return Config{
		Protocol:            "MESI",
		NumCores:            2,
		CacheSize:           4096,
		Associativity:       2,
		BlockSize:           32,
		UseWriteBuffer:      false,
		WriteBufferCapacity: 8,
	}
}

// LoadConfig loads a Config from a JSON file, filling unset fields with
// defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// CacheConfig returns the per-core cache geometry.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		Size:          c.CacheSize,
		Associativity: c.Associativity,
		BlockSize:     c.BlockSize,
	}
}

// Validate checks the configuration for usability.
func (c Config) Validate() error {
	if _, err := coherence.NewProtocol(c.Protocol); err != nil {
		return err
	}
	if c.NumCores < 1 {
		return fmt.Errorf("num_cores must be at least 1, got %d", c.NumCores)
	}
	if err := c.CacheConfig().Validate(); err != nil {
		return err
	}
	if c.UseWriteBuffer && c.WriteBufferCapacity < 1 && c.WriteBufferCapacity != -1 {
		return fmt.Errorf("write buffer capacity must be positive or -1 for unbounded")
	}
	return nil
}
