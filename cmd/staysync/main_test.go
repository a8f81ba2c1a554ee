package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 characters, got %d", len(a))
	}
	b, _ := generatePassword(16)
	if a == b {
		t.Error("expected two generated passwords to differ")
	}
}

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(&levelRouter{
		stdout: slog.NewTextHandler(&out, nil),
		stderr: slog.NewTextHandler(&errOut, nil),
		level:  slog.LevelInfo,
	}).With("component", "test")

	logger.Debug("hidden")
	logger.Info("to stdout")
	logger.Warn("also stdout")
	logger.Error("to stderr")

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug record should be filtered")
	}
	if !strings.Contains(out.String(), "to stdout") || !strings.Contains(out.String(), "also stdout") {
		t.Errorf("stdout missing records: %q", out.String())
	}
	if strings.Contains(out.String(), "to stderr") {
		t.Error("error record leaked to stdout")
	}
	if !strings.Contains(errOut.String(), "component=test") {
		t.Errorf("stderr missing attrs: %q", errOut.String())
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled")
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"users", "create"},
		{"users", "list"},
		{"users", "disable"},
		{"backups", "list"},
		{"backups", "restore"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}
