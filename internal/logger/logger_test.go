package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// capture redirects output to a buffer with the given modes and restores
// the defaults when the test ends.
func capture(t *testing.T, verbose, quiet bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	SetQuiet(quiet)
	t.Cleanup(func() {
		SetVerbose(false)
		SetQuiet(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestLevels(t *testing.T) {
	emit := map[string]func(){
		"debug":   func() { Debug("indexed %d chunks", 3) },
		"info":    func() { Info("loaded %s", "index") },
		"warn":    func() { Warn("fallback: %s", "timeout") },
		"section": func() { Section("Retrieve") },
	}

	tests := []struct {
		name    string
		call    string
		verbose bool
		quiet   bool
		want    string
	}{
		{"debug verbose", "debug", true, false, "[DEBUG] indexed 3 chunks\n"},
		{"debug silent", "debug", false, false, ""},
		{"info verbose", "info", true, false, "[INFO] loaded index\n"},
		{"info silent", "info", false, false, ""},
		{"warn default", "warn", false, false, "[WARN] fallback: timeout\n"},
		{"warn verbose", "warn", true, false, "[WARN] fallback: timeout\n"},
		{"warn quiet", "warn", false, true, ""},
		{"quiet keeps debug", "debug", true, true, "[DEBUG] indexed 3 chunks\n"},
		{"section verbose", "section", true, false, "\n=== Retrieve ===\n"},
		{"section silent", "section", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose, tt.quiet)
			emit[tt.call]()
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	buf := capture(t, false, false)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(true)
			Debug("worker %d", i)
			_ = IsVerbose()
			Warn("worker %d", i)
		}()
	}
	wg.Wait()

	assert.Contains(t, buf.String(), "[WARN] worker")
}
