package obslog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Console: true, ConsoleWriter: &buf, Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("review_game_done", zap.String("game_id", "g1"))
	_ = logger.Sync()
	out := buf.String()
	if !strings.Contains(out, `"msg":"review_game_done"`) || !strings.Contains(out, `"game_id":"g1"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "review.log")
	logger, err := New(Options{Level: "info", ToFile: true, FilePath: path, Format: "console"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("engine_restart")
	_ = logger.Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "engine_restart") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != zapcore.WarnLevel || parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatalf("unexpected level parsing")
	}
}

func TestSetNil(t *testing.T) {
	Set(nil)
	if L() == nil {
		t.Fatalf("global logger must never be nil")
	}
}
