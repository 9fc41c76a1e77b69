//go:build !unix

package mods

import "os"

// readable reports whether path is a regular file that can be opened
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	finfo, err := f.Stat()
	return err == nil && !finfo.IsDir()
}
