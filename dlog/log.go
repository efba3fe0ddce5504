/*
Package dlog provides leveled logging for the engine and its tools. Messages
go through the standard log package unless a log file is configured, in
which case they are written to a size-rotated file.
*/
package dlog

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
)

type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var (
	mu   sync.Mutex
	mode = InfoMode
	file *lumberjack.Logger
)

// SetLogMode sets the severity required for a log message to be printed.
func SetLogMode(newMode ModeFlag) {
	mu.Lock()
	mode = newMode
	mu.Unlock()
}

func Mode() ModeFlag {
	mu.Lock()
	defer mu.Unlock()
	return mode
}

type LogConfig struct {
	Logfile string `yaml:"Logfile"`
	MaxSize int    `yaml:"MaxLogSize"` // megabytes
	MaxAge  int    `yaml:"MaxLogAge"`  // days
}

// SetLogger sends log messages to a rotating log file, or to stderr when no
// file is configured.
func (c *LogConfig) SetLogger() {
	mu.Lock()
	defer mu.Unlock()
	if c == nil || c.Logfile == "" {
		file = nil
		return
	}
	file = &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize,
		MaxAge:   c.MaxAge,
	}
	log.SetOutput(file)
}

// Shutdown closes the log file, if any.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
}

func output(level ModeFlag, prefix, format string, args ...interface{}) {
	if Mode() > level {
		return
	}
	log.Printf(prefix+format, args...)
}

func Debugf(format string, args ...interface{}) {
	output(DebugMode, " DEBUG ", format, args...)
}

func Infof(format string, args ...interface{}) {
	output(InfoMode, " INFO ", format, args...)
}

func Warningf(format string, args ...interface{}) {
	output(WarningMode, " WARNING ", format, args...)
}

func Errorf(format string, args ...interface{}) {
	output(ErrorMode, " ERROR ", format, args...)
}

func Criticalf(format string, args ...interface{}) {
	output(CriticalMode, " CRITICAL ", format, args...)
}

// TimeLog adds elapsed time to logging.
// Example:
//
//	mylog := NewTimeLog()
//	...
//	mylog.Debugf("stuff happened")  // Appends elapsed time from NewTimeLog() to message.
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	Debugf(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	Infof(format+": %s", append(args, time.Since(t.start))...)
}

// Rankf prefixes a message with the process rank, the form used by the
// distributed graph routines.
func Rankf(rank int, format string) string {
	return fmt.Sprintf("[%d] %s", rank, format)
}
