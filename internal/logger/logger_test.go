package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}

	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	expectedDir := filepath.Join(realTmpDir, defaultLogDirName)
	if realGot != expectedDir {
		t.Fatalf("unexpected log dir: got=%s expected=%s", realGot, expectedDir)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(filepath.Dir(got)); err != nil {
		t.Fatalf("expected log dir to be created: %v", err)
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Options{
		Dir:      tmpDir,
		Filename: "release.log",
	}
	log := New("release", cfg)
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Options{
		Dir:      tmpDir,
		Filename: "debug.log",
	}
	log := New("debug", cfg)
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevel(t *testing.T) {
	if got := resolveLevel("debug", ""); got != zapcore.DebugLevel {
		t.Fatalf("debug mode should default to debug level, got %s", got)
	}
	if got := resolveLevel("release", ""); got != zapcore.InfoLevel {
		t.Fatalf("release mode should default to info level, got %s", got)
	}
	if got := resolveLevel("debug", "WARN"); got != zapcore.WarnLevel {
		t.Fatalf("configured level should win, got %s", got)
	}
	if got := resolveLevel("release", "verbose"); got != zapcore.InfoLevel {
		t.Fatalf("invalid level should fall back to mode default, got %s", got)
	}
}

func TestNewReleaseHonoursConfiguredLevel(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "level.log", Level: "error"})
	log.Info("info-should-be-dropped")
	log.Error("error-should-be-kept")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "level.log"))
	if err != nil {
		t.Fatalf("read level log failed: %v", err)
	}
	if strings.Contains(string(content), "info-should-be-dropped") {
		t.Fatalf("info entry should be filtered by error level")
	}
	if !strings.Contains(string(content), "error-should-be-kept") {
		t.Fatalf("error entry should be written, got=%s", string(content))
	}
}

func TestFromContextCarriesFields(t *testing.T) {
	tmpDir := t.TempDir()
	prev := L
	L = New("release", Options{Dir: tmpDir, Filename: "ctx.log"})
	t.Cleanup(func() { L = prev })

	ctx := IntoContext(context.Background(), "request_id", "req-42")
	ctx = IntoContext(ctx, "order_id", 7)
	FromContext(ctx).Infow("ctx_fields_test")
	_ = L.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "ctx.log"))
	if err != nil {
		t.Fatalf("read ctx log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"request_id":"req-42"`) || !strings.Contains(text, `"order_id":7`) {
		t.Fatalf("expected context fields in log line, got=%s", text)
	}
}

func TestIntoContextWithoutFieldsReturnsSameContext(t *testing.T) {
	ctx := context.Background()
	if IntoContext(ctx) != ctx {
		t.Fatalf("empty field list should not wrap the context")
	}
	if FromContext(ctx) == nil {
		t.Fatalf("plain context should still yield a logger")
	}
}
