package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

// PrintErrorMessage prints a standard Go error to the console
func PrintErrorMessage(tag string, err error) {
	logger.m.Lock()
	defer logger.m.Unlock()
	printTagged(logger.out, ErrorStyleBG, ErrorColorFG, tag, err.Error())
}

// PrintWarningMessage prints a warning message to the console
func PrintWarningMessage(tag, msg string) {
	logger.m.Lock()
	defer logger.m.Unlock()
	printTagged(logger.out, WarnStyleBG, WarnColorFG, tag, msg)
}

// PrintInfoMessage prints an informational message to the user
func PrintInfoMessage(tag, msg string) {
	logger.m.Lock()
	defer logger.m.Unlock()
	printTagged(logger.out, InfoStyleBG, InfoColorFG, tag, msg)
}

func printTagged(w io.Writer, tagStyle *pterm.Style, msgColor pterm.Color, tag, msg string) {
	fmt.Fprintln(w, tagStyle.Sprint(tag)+msgColor.Sprint(" "+msg))
}

// -----------------------------------------------------------------------------
// This section contains the display functions for the different kinds of
// messages that can be logged.

// ModuleMessage is an error or warning produced while loading a module
type ModuleMessage struct {
	ModName string
	Message string
	IsError bool
}

func (mm *ModuleMessage) isError() bool { return mm.IsError }
func (mm *ModuleMessage) isInfo() bool  { return false }

func (mm *ModuleMessage) display(w io.Writer) {
	if mm.IsError {
		printTagged(w, ErrorStyleBG, ErrorColorFG, "Module Error", fmt.Sprintf("[%s] %s", mm.ModName, mm.Message))
	} else {
		printTagged(w, WarnStyleBG, WarnColorFG, "Module Warning", fmt.Sprintf("[%s] %s", mm.ModName, mm.Message))
	}
}

// ConfigError is an error in the runtime configuration
type ConfigError struct {
	Kind    string
	Message string
}

func (ce *ConfigError) isError() bool { return true }
func (ce *ConfigError) isInfo() bool  { return false }

func (ce *ConfigError) display(w io.Writer) {
	printTagged(w, ErrorStyleBG, ErrorColorFG, ce.Kind+" Error", ce.Message)
}

// ExceptionMessage is an uncaught exception raised by a program
type ExceptionMessage struct {
	Message   string
	Backtrace []string
}

func (em *ExceptionMessage) isError() bool { return true }
func (em *ExceptionMessage) isInfo() bool  { return false }

func (em *ExceptionMessage) display(w io.Writer) {
	printTagged(w, ErrorStyleBG, ErrorColorFG, "Uncaught Exception", em.Message)

	// innermost frame first
	for i := len(em.Backtrace) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  %s %s\n", InfoColorFG.Sprint(fmt.Sprintf("%2d:", len(em.Backtrace)-1-i)), em.Backtrace[i])
	}
}

// InfoMessage is a verbose-only informational message
type InfoMessage struct {
	Tag     string
	Message string
	Block   bool
}

func (im *InfoMessage) isError() bool { return false }
func (im *InfoMessage) isInfo() bool  { return true }

func (im *InfoMessage) display(w io.Writer) {
	if im.Block {
		printTagged(w, InfoStyleBG, InfoColorFG, im.Tag, "")
		fmt.Fprintln(w, strings.TrimRight(im.Message, "\n"))
		return
	}

	printTagged(w, InfoStyleBG, InfoColorFG, im.Tag, im.Message)
}
