package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

var (
	ErrInvalidTransport = errors.New("BOARD_TRANSPORT must be one of ws, http, auto, redis")
	ErrInvalidFieldSize = errors.New("BOARD_FIELD_SIZE must be positive")
)

type AppConfig struct {
	Transport string `yaml:"transport"`
	WSURL     string `yaml:"ws_url"`
	BaseURL   string `yaml:"base_url"`
	RedisURL  string `yaml:"redis_url"`
	Channel   string `yaml:"channel"`

	WSMaxReconnect int `yaml:"ws_max_reconnect"`

	FieldSize     float64 `yaml:"field_size"`
	Flipped       bool    `yaml:"flipped"`
	DragThreshold float64 `yaml:"drag_threshold"`

	ResyncWindowSec int `yaml:"resync_window_sec"`

	FrameOutput     string `yaml:"frame_output"`
	FrameIntervalMS int    `yaml:"frame_interval_ms"`

	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Transport:       "auto",
		Channel:         "default",
		WSMaxReconnect:  10,
		FieldSize:       64,
		ResyncWindowSec: 10,
		FrameIntervalMS: 500,
	}
}

// Load applies defaults, then the YAML file named by BOARD_CONFIG_FILE,
// then environment overrides, and validates the result.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("BOARD_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.Transport, "BOARD_TRANSPORT")
	setString(&c.WSURL, "BOARD_WS_URL")
	setString(&c.BaseURL, "BOARD_BASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.Channel, "BOARD_CHANNEL")
	setString(&c.FrameOutput, "FRAME_OUTPUT")
	setString(&c.MessagesDir, "BOARD_MESSAGES_DIR")

	if v := strings.TrimSpace(os.Getenv("BOARD_FIELD_SIZE")); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BOARD_FIELD_SIZE: %w", err)
		}
		c.FieldSize = n
	}
	if v := strings.TrimSpace(os.Getenv("BOARD_FLIPPED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOARD_FLIPPED: %w", err)
		}
		c.Flipped = b
	}
	if v := strings.TrimSpace(os.Getenv("DRAG_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 {
			c.DragThreshold = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESYNC_WINDOW_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ResyncWindowSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FRAME_INTERVAL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.FrameIntervalMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_MAX_RECONNECT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.WSMaxReconnect = n
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate checks the fields the selected transport needs.
func (c *AppConfig) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if !(c.FieldSize > 0) || math.IsInf(c.FieldSize, 0) {
		return ErrInvalidFieldSize
	}
	switch c.Transport {
	case "ws":
		if c.WSURL == "" {
			return errors.New("BOARD_WS_URL is required for ws transport")
		}
	case "http":
		if c.BaseURL == "" {
			return errors.New("BOARD_BASE_URL is required for http transport")
		}
	case "auto":
		if c.WSURL == "" {
			return errors.New("BOARD_WS_URL is required for auto transport")
		}
		if c.BaseURL == "" {
			return errors.New("BOARD_BASE_URL is required for auto transport")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for redis transport")
		}
		if strings.TrimSpace(c.Channel) == "" {
			return errors.New("BOARD_CHANNEL is required for redis transport")
		}
	default:
		return ErrInvalidTransport
	}
	return nil
}

func (c *AppConfig) ResyncWindow() time.Duration {
	return time.Duration(c.ResyncWindowSec) * time.Second
}

func (c *AppConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}
