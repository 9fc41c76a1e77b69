package mods

import (
	"fmt"
	"path/filepath"
	"strings"

	"mu/archive"
	"mu/common"
	"mu/logging"
	"mu/sem"
)

// Documentation attaches the documentation sidecar of a module the first
// time it is asked for.  The sidecar is looked for next to the file the
// module was loaded from and then along the search path; a sidecar whose
// module name differs is ignored.  A module without a sidecar yields nil.
func (l *Loader) Documentation(m *sem.Module) (*archive.Docs, error) {
	l.m.Lock()
	defer l.m.Unlock()

	if docs, ok := l.docs[m]; ok {
		return docs, nil
	}

	path, resolved := m.DocumentationPath()
	if !resolved {
		path = l.findDocs(m)
		m.SetDocumentationPath(path)
	}

	if path == "" {
		l.docs[m] = nil
		return nil, nil
	}

	docs, err := archive.ReadDocs(path)
	if err != nil {
		return nil, err
	}

	n := docs.Apply(l.ctx)
	logging.LogInfo("Docs", fmt.Sprintf("documented %d symbols of %s from %s", n, m.Name(), path))

	l.docs[m] = docs
	return docs, nil
}

func (l *Loader) findDocs(m *sem.Module) string {
	var paths []string

	if loc := m.Location(); loc != "" {
		ext := filepath.Ext(loc)
		paths = append(paths, strings.TrimSuffix(loc, ext)+common.DocFileExtension)
	}

	for _, dir := range l.opts.Path {
		paths = append(paths, filepath.Join(dir, m.Name()+common.DocFileExtension))
	}

	for _, path := range paths {
		if !readable(path) {
			continue
		}

		if name, ok := archive.DocsModule(path); ok && name == m.QualifiedName() {
			return path
		}
	}

	return ""
}
