package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOARD_CONFIG_FILE", "BOARD_TRANSPORT", "BOARD_WS_URL", "BOARD_BASE_URL",
		"REDIS_URL", "BOARD_CHANNEL", "BOARD_FIELD_SIZE", "BOARD_FLIPPED",
		"DRAG_THRESHOLD", "RESYNC_WINDOW_SEC", "FRAME_OUTPUT", "FRAME_INTERVAL_MS",
		"WS_MAX_RECONNECT", "BOARD_MESSAGES_DIR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOARD_TRANSPORT", "WS")
	t.Setenv("BOARD_WS_URL", "ws://localhost:8080/board")
	t.Setenv("BOARD_FLIPPED", "true")
	t.Setenv("RESYNC_WINDOW_SEC", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport != "ws" || !cfg.Flipped || cfg.FieldSize != 64 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ResyncWindow() != 3*time.Second {
		t.Fatalf("ResyncWindow = %v", cfg.ResyncWindow())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "board.yaml")
	body := "transport: redis\nredis_url: redis://localhost:6379/0\nchannel: lobby\nfield_size: 48\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BOARD_CONFIG_FILE", path)
	t.Setenv("BOARD_CHANNEL", "room-7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport != "redis" || cfg.FieldSize != 48 || cfg.Channel != "room-7" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOARD_TRANSPORT", "auto")
	t.Setenv("BOARD_WS_URL", "ws://x")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing base url error")
	}

	t.Setenv("BOARD_TRANSPORT", "carrier-pigeon")
	if _, err := Load(); !errors.Is(err, ErrInvalidTransport) {
		t.Fatalf("err = %v, want ErrInvalidTransport", err)
	}

	t.Setenv("BOARD_TRANSPORT", "ws")
	t.Setenv("BOARD_FIELD_SIZE", "0")
	if _, err := Load(); !errors.Is(err, ErrInvalidFieldSize) {
		t.Fatalf("err = %v, want ErrInvalidFieldSize", err)
	}
	for _, v := range []string{"NaN", "Inf", "-Inf"} {
		t.Setenv("BOARD_FIELD_SIZE", v)
		if _, err := Load(); !errors.Is(err, ErrInvalidFieldSize) {
			t.Fatalf("BOARD_FIELD_SIZE=%s: err = %v, want ErrInvalidFieldSize", v, err)
		}
	}
}
