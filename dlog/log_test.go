package dlog

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	defer SetLogMode(InfoMode)

	SetLogMode(WarningMode)
	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warningf("warn %d", 3)
	Errorf("error %d", 4)
	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "WARNING warn 3")
	assert.Contains(t, out, "ERROR error 4")

	buf.Reset()
	SetLogMode(DebugMode)
	NewTimeLog().Debugf("timed")
	assert.Contains(t, buf.String(), "DEBUG timed: ")
	assert.Equal(t, "[3] ghost %d", Rankf(3, "ghost %d"))
}

func TestLogFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	fname := filepath.Join(t.TempDir(), "gopart.log")
	cfg := &LogConfig{Logfile: fname, MaxSize: 1, MaxAge: 1}
	cfg.SetLogger()
	Criticalf("to the file")
	Shutdown()
	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CRITICAL to the file")
}
