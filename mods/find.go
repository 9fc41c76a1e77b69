package mods

import (
	"path/filepath"

	"mu/common"
)

// candidates are the readable representations of a module found in one
// search path entry
type candidates struct {
	native  string
	archive string
	source  string
}

// findCandidates checks a directory for `<name>.so|.dll|.dylib`,
// `<name>.muc` and `<name>.mu`
func findCandidates(dir, name string) candidates {
	var c candidates

	base := filepath.Join(dir, name)
	for _, ext := range common.NativeExtensions {
		if readable(base + ext) {
			c.native = base + ext
			break
		}
	}

	if readable(base + common.ArchiveFileExtension) {
		c.archive = base + common.ArchiveFileExtension
	}

	if readable(base + common.SrcFileExtension) {
		c.source = base + common.SrcFileExtension
	}

	return c
}

// findSource returns the first source file for name along the search path
func (l *Loader) findSource(name string) (string, bool) {
	for _, dir := range l.opts.Path {
		if c := findCandidates(dir, name); c.source != "" {
			return c.source, true
		}
	}

	return "", false
}
