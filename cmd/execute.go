package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"mu/archive"
	"mu/common"
	"mu/config"
	"mu/engine"
	"mu/logging"
	"mu/sem"

	"github.com/ComedicChimera/olive"
)

// Execute runs the main `mu` application and returns its exit status
func Execute() int {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("mu", "mu runs and compiles Mu modules", true)
	cli.AddSelectorArg("loglevel", "ll", "the runtime log level", false, []string{"silent", "error", "warn", "verbose"})

	runCmd := cli.AddSubcommand("run", "evaluate a source file", true)
	runCmd.AddPrimaryArg("file", "the path to the file to run", true)

	evalCmd := cli.AddSubcommand("eval", "evaluate an expression and print its value", true)
	evalCmd.AddPrimaryArg("expr", "the source text to evaluate", true)

	cli.AddSubcommand("console", "start an interactive session", false)

	compileCmd := cli.AddSubcommand("compile", "compile a module on the search path to an archive", true)
	compileCmd.AddPrimaryArg("module", "the name of the module to compile", true)

	dumpCmd := cli.AddSubcommand("dump", "print the decoded content of an archive", true)
	dumpCmd.AddPrimaryArg("file", "the path to the archive", true)

	cli.AddSubcommand("version", "print the Mu version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		logging.PrintErrorMessage("CLI Usage Error", err)
		return 1
	}

	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "version":
		logging.PrintInfoMessage("Mu Version", common.MuVersion)
		return 0
	case "dump":
		return execDumpCommand(subResult)
	}

	loglevel, _ := result.Arguments["loglevel"].(string)
	rt, ok := newRuntime(loglevel)
	if !ok {
		return 1
	}

	switch subcmdName {
	case "run":
		return execRunCommand(rt, subResult)
	case "eval":
		return execEvalCommand(rt, subResult)
	case "console":
		return runConsole(rt)
	case "compile":
		return execCompileCommand(rt, subResult)
	}

	return 0
}

// newRuntime loads the configuration of the working directory and creates a
// runtime from it.  A log level given on the command line overrides the
// configured one.
func newRuntime(loglevel string) (*engine.Runtime, bool) {
	workDir, err := os.Getwd()
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return nil, false
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		logging.PrintErrorMessage("Config Error", err)
		return nil, false
	}

	if loglevel == "" {
		loglevel = cfg.LogLevel
	}
	logging.Initialize(loglevel)

	rt, err := engine.New(cfg, os.Stdout)
	if err != nil {
		logging.PrintErrorMessage("Runtime Error", err)
		return nil, false
	}

	return rt, true
}

// execRunCommand runs a file as a batch: an uncaught exception is fatal
func execRunCommand(rt *engine.Runtime, result *olive.ArgParseResult) int {
	relPath, _ := result.PrimaryArg()

	path, err := filepath.Abs(relPath)
	if err != nil {
		logging.PrintErrorMessage("Path Error", err)
		return 1
	}

	if _, err := rt.EvalFile(path); err != nil {
		reportError(err)
		return 1
	}

	if !logging.ShouldProceed() {
		return 1
	}

	return 0
}

// execEvalCommand evaluates an expression given on the command line
func execEvalCommand(rt *engine.Runtime, result *olive.ArgParseResult) int {
	expr, _ := result.PrimaryArg()

	v, err := rt.EvalSource(expr)
	if err != nil {
		reportError(err)
		return 1
	}

	printValue(v)
	return 0
}

// execCompileCommand writes the archive of a module found on the search path
func execCompileCommand(rt *engine.Runtime, result *olive.ArgParseResult) int {
	name, _ := result.PrimaryArg()

	path, err := rt.Compile(name)
	if err != nil {
		logging.PrintErrorMessage("Compile Error", err)
		return 1
	}

	logging.PrintInfoMessage("Compiled", path)
	return 0
}

// execDumpCommand prints the records of an archive
func execDumpCommand(result *olive.ArgParseResult) int {
	path, _ := result.PrimaryArg()

	a, err := archive.ReadFile(path)
	if err != nil {
		logging.PrintErrorMessage("Archive Error", err)
		return 1
	}

	fmt.Println(archive.Dump(a))
	return 0
}

// -----------------------------------------------------------------------------

// reportError displays a failed evaluation.  Uncaught exceptions are shown
// with their backtrace.
func reportError(err error) {
	if exc, ok := engine.ExceptionOf(err); ok {
		logging.LogException(exc.Error(), exc.Backtrace)
	} else {
		logging.PrintErrorMessage("Error", err)
	}
}

// printValue prints the result of an evaluation unless it has none
func printValue(v sem.Value) {
	if !v.IsNone() {
		fmt.Println(v.String())
	}
}
