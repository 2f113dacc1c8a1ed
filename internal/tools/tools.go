// Package tools contains small helpers shared by server commands.
package tools

import (
	"os"
	"strconv"
)

// WritePidFile writes the current process PID to pidFile. Empty path is a
// no-op.
func WritePidFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

// FileExists reports whether a file exists at filename.
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
