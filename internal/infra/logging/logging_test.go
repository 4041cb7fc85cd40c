package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestInitWithFile(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	path := filepath.Join(t.TempDir(), "cart.log")
	logger, err := Init("production", path)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if zap.L() != logger {
		t.Fatalf("global logger not replaced")
	}

	logger.Info("hello", zap.String("namespace", "test"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestInitDevelopment(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	if _, err := Init("", ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
}
