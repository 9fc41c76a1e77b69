package mods

import (
	"fmt"
	"strings"

	"mu/archive"
	"mu/common"
	"mu/logging"
	"mu/walk"
)

// compile writes the archive (and optionally the documentation sidecar) of a
// unit next to its source file and returns the archive path.  Assumes the
// lock is held.
func (l *Loader) compile(unit *walk.Unit, srcPath string) (string, error) {
	a, err := archive.Capture(unit, srcPath)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(srcPath, common.SrcFileExtension)
	path := base + common.ArchiveFileExtension
	if err := archive.WriteFile(path, a); err != nil {
		return "", err
	}

	logging.LogInfo("Compile", fmt.Sprintf("compiled %s to %s", srcPath, path))
	if l.opts.DebugArchive {
		logging.LogDebug("Archive", archive.Dump(a))
	}

	if l.opts.CompileDocs {
		if err := archive.WriteDocs(base+common.DocFileExtension, archive.CaptureDocs(unit)); err != nil {
			return "", err
		}
	}

	return path, nil
}

// Compile compiles the source of the named module to an archive and returns
// the archive path.  The module is loaded from source first if it is not
// already loaded from source.
func (l *Loader) Compile(name string) (string, error) {
	l.m.Lock()
	defer l.m.Unlock()

	srcPath, ok := l.findSource(name)
	if !ok {
		return "", fmt.Errorf("no source file found for module `%s`", name)
	}

	unit, ok := l.units[name]
	if !ok || unit.Module.Location() != srcPath {
		if l.states[name] == Loaded {
			return "", fmt.Errorf("module `%s` was not loaded from %s", name, srcPath)
		}

		l.states[name] = Loading

		var err error
		if _, unit, err = l.loadSource(name, srcPath); err != nil {
			l.states[name] = Failed
			return "", err
		}

		l.finish(name, unit.Module)
	}

	return l.compile(unit, srcPath)
}
