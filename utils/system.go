package utils

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
)

// MemUsage summarizes the heap of the running program.
func MemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	return fmt.Sprintf("Alloc = %s TotalAlloc = %s Sys = %s NumGC = %v",
		humanize.IBytes(m.Alloc), humanize.IBytes(m.TotalAlloc), humanize.IBytes(m.Sys), m.NumGC)
}
