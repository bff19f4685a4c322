package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLoggingDisabledByDefault(t *testing.T) {
	logFile := setupLogging(0)
	if logFile != nil {
		t.Error("expected nil log file when verbosity is 0")
		logFile.Close()
	}
	if output := log.Writer(); output != io.Discard {
		t.Errorf("expected log output to be io.Discard, got %v", output)
	}
}

func TestSetupLoggingEnabledWithVerbosity(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	logFile := setupLogging(1)
	if logFile == nil {
		t.Fatal("expected non-nil log file when verbosity > 0")
	}
	defer logFile.Close()

	logPath := filepath.Join(logDir, logFileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("expected log file to be created")
	}
}

func TestSetupLoggingRotation(t *testing.T) {
	dir := t.TempDir()
	restore := chdir(t, dir)
	defer restore()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	logPath := filepath.Join(logDir, logFileName)
	if err := os.WriteFile(logPath, make([]byte, maxLogSize+1), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	logFile := setupLogging(1)
	if logFile == nil {
		t.Fatal("expected non-nil log file")
	}
	defer logFile.Close()

	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	rotated := false
	for _, e := range entries {
		if e.Name() != logFileName && filepath.Ext(e.Name()) == ".log" {
			rotated = true
		}
	}
	if !rotated {
		t.Error("expected to find a rotated log file")
	}
}

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	return func() { os.Chdir(old) }
}

func TestLoadDesignReportsMissingReader(t *testing.T) {
	_, _, err := loadDesign("mychip")
	if err == nil {
		t.Fatal("expected an error naming the missing LEF/DEF reader")
	}
	if !strings.Contains(err.Error(), "mychip.lef") || !strings.Contains(err.Error(), "mychip.def") {
		t.Errorf("error = %v, want it to name both mychip.lef and mychip.def", err)
	}
}

func TestRunScriptDispatchesAndStopsAtQuit(t *testing.T) {
	c := &recordingDispatcher{}
	script := "layer_info all\n# a comment\n\nquit\nlayer_info all\n"
	if err := runScriptOver(c, strings.NewReader(script)); err != nil {
		t.Fatalf("runScriptOver() error = %v", err)
	}
	if len(c.calls) != 1 || c.calls[0] != "layer_info" {
		t.Errorf("dispatched = %v, want exactly one layer_info call before quit", c.calls)
	}
}

type recordingDispatcher struct {
	calls []string
}

func (r *recordingDispatcher) Dispatch(cmd string, args []string) error {
	r.calls = append(r.calls, cmd)
	return nil
}
