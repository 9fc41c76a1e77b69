//go:build unix

package mods

import (
	"os"

	"golang.org/x/sys/unix"
)

// readable reports whether path is a regular file the process may read
func readable(path string) bool {
	if unix.Access(path, unix.R_OK) != nil {
		return false
	}

	finfo, err := os.Stat(path)
	return err == nil && !finfo.IsDir()
}
