package common

import (
	"os"
	"strings"
)

// SplitQualifiedName splits a dotted name into its components.  Empty
// components are dropped so that `a..b` and `a.b` name the same symbol.
func SplitQualifiedName(name string) []string {
	parts := strings.Split(name, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// SplitPathList splits a module search path list.  Both `:` and `;` are
// accepted as separators on every platform except that a `:` following a single
// drive letter (eg. `C:\mods`) is kept as part of the path.
func SplitPathList(list string) []string {
	var paths []string
	start := 0
	for i := 0; i < len(list); i++ {
		c := list[i]
		if c == ';' || (c == ':' && !isDriveColon(list, start, i)) {
			if i > start {
				paths = append(paths, list[start:i])
			}
			start = i + 1
		}
	}

	if start < len(list) {
		paths = append(paths, list[start:])
	}

	return paths
}

// isDriveColon reports whether the colon at index i follows a lone drive letter
func isDriveColon(list string, start, i int) bool {
	return os.PathSeparator == '\\' && i-start == 1 && i+1 < len(list) && (list[i+1] == '\\' || list[i+1] == '/')
}
