package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mu/common"
	"mu/engine"
	"mu/syntax"

	"github.com/peterh/liner"
)

const (
	historyFile  = ".mu_history"
	promptMain   = "mu> "
	promptCont   = "... "
	consoleTitle = "Mu %s console: enter expressions or declarations, :quit to exit"
)

// runConsole runs an interactive session.  Declarations persist between
// inputs; failures are reported and the session continues.
func runConsole(rt *engine.Runtime) int {
	fmt.Printf(consoleTitle+"\n", common.MuVersion)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}

	for {
		src, ok := readForms(ln)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if consoleCommand(rt, trimmed) {
				break
			}
			continue
		}

		v, err := rt.EvalSource(src)
		if err != nil {
			reportError(err)
			continue
		}

		printValue(v)
	}

	if f, err := os.Create(histPath); err == nil {
		ln.WriteHistory(f)
		f.Close()
	}

	return 0
}

// readForms reads lines until they hold complete forms.  The second result is
// false at end of input.
func readForms(ln *liner.State) (string, bool) {
	var sb strings.Builder

	for {
		prompt := promptMain
		if sb.Len() > 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		} else if err != nil {
			// Ctrl+C abandons the current input
			return "", true
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)

		src := sb.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}

		_, perr := syntax.Parse("<input>", src)

		var serr *syntax.Error
		if errors.As(perr, &serr) && serr.Incomplete {
			continue
		}

		return src, true
	}
}

// consoleCommand runs a `:` command and reports whether the session should
// end
func consoleCommand(rt *engine.Runtime, line string) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":require":
		for _, name := range fields[1:] {
			if _, err := rt.EvalSource("", name); err != nil {
				reportError(err)
			}
		}
	case ":doc":
		if len(fields) != 2 {
			fmt.Println("usage: :doc <module>")
			break
		}

		m := rt.Require(fields[1])
		if m == nil {
			fmt.Printf("unable to locate module `%s`\n", fields[1])
			break
		}

		docs, err := rt.Documentation(m)
		if err != nil {
			reportError(err)
		} else if docs == nil {
			fmt.Printf("module `%s` has no documentation\n", m.Name())
		} else {
			for _, e := range docs.Entries {
				fmt.Printf("%s %s\n    %s\n", e.Name, e.Signature, e.Doc)
			}
		}
	default:
		fmt.Println("commands: :require <module>..., :doc <module>, :quit")
	}

	return false
}
