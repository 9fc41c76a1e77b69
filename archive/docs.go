package archive

import (
	"fmt"
	"os"

	"mu/sem"
	"mu/walk"

	"github.com/pelletier/go-toml"
)

// Docs is the content of a `.mud` documentation sidecar.  Archives do not
// carry documentation strings; they are attached from the sidecar when a
// module's documentation is first asked for.
type Docs struct {
	Module  string      `toml:"module"`
	Entries []*DocEntry `toml:"entry"`
}

// DocEntry documents one symbol.  Signature selects the overload of a
// function.
type DocEntry struct {
	Name      string `toml:"name"`
	Signature string `toml:"signature,omitempty"`
	Doc       string `toml:"doc"`
}

// CaptureDocs collects the documentation strings of a unit's declarations
func CaptureDocs(unit *walk.Unit) *Docs {
	docs := &Docs{Module: unit.Module.QualifiedName()}

	for _, sym := range unit.Decls {
		if sym.Doc() == "" {
			continue
		}

		entry := &DocEntry{Name: sym.QualifiedName(), Doc: sym.Doc()}
		if f, ok := sym.(*sem.Function); ok {
			entry.Signature = f.Signature()
		}
		docs.Entries = append(docs.Entries, entry)
	}

	return docs
}

// WriteDocs saves a documentation sidecar
func WriteDocs(path string, docs *Docs) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(docs); err != nil {
		return fmt.Errorf("error encoding documentation: %s", err.Error())
	}

	return nil
}

// ReadDocs loads a documentation sidecar
func ReadDocs(path string) (*Docs, error) {
	buff, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	docs := &Docs{}
	if err := toml.Unmarshal(buff, docs); err != nil {
		return nil, err
	}

	return docs, nil
}

// DocsModule reads only the module name of a sidecar so that candidate files
// can be checked without decoding every entry
func DocsModule(path string) (string, bool) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return "", false
	}

	name, ok := tree.Get("module").(string)
	return name, ok
}

// Apply attaches the sidecar's documentation to symbols that have none and
// returns the number of symbols documented
func (d *Docs) Apply(ctx *sem.Context) int {
	n := 0
	for _, e := range d.Entries {
		var sym sem.Symbol
		if e.Signature != "" {
			for _, f := range ctx.FindFunctions(nil, e.Name) {
				if f.Signature() == e.Signature {
					sym = f
					break
				}
			}
		} else {
			sym = ctx.FindSymbolByQualifiedName(e.Name, false)
		}

		if sym != nil && sym.Doc() == "" {
			sym.SetDoc(e.Doc)
			n++
		}
	}

	return n
}
