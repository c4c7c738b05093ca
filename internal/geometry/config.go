package geometry

import (
	"errors"
	"math"
	"sync"
)

var ErrInvalidFieldSize = errors.New("field size must be positive and finite")

func validFieldSize(fs float64) bool {
	return fs > 0 && !math.IsInf(fs, 0)
}

// Config holds the current orientation. Every change bumps Version so that
// readers holding an older orientation can tell it went stale.
type Config struct {
	mu      sync.RWMutex
	o       Orientation
	version uint64
}

func NewConfig(o Orientation) (*Config, error) {
	if !validFieldSize(o.FieldSize) {
		return nil, ErrInvalidFieldSize
	}
	return &Config{o: o, version: 1}, nil
}

// Current returns the orientation and its version.
func (c *Config) Current() (Orientation, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.o, c.version
}

func (c *Config) Orientation() Orientation {
	o, _ := c.Current()
	return o
}

func (c *Config) Version() uint64 {
	_, v := c.Current()
	return v
}

// Set replaces the orientation and returns the new version. Setting an
// identical orientation is a no-op.
func (c *Config) Set(o Orientation) (uint64, error) {
	if !validFieldSize(o.FieldSize) {
		return 0, ErrInvalidFieldSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if o != c.o {
		c.o = o
		c.version++
	}
	return c.version, nil
}
