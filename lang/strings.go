package lang

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mu/sem"
)

// formatArgs renders values the way print shows them
func formatArgs(args []sem.Value) string {
	sb := strings.Builder{}
	for _, a := range args {
		if a.IsNone() {
			continue
		}
		sb.WriteString(a.String())
	}

	return sb.String()
}

func declareStrings(d *declarer) {
	ctx := d.ctx

	print := d.native("print", ctx.Void, sem.FnNone, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		if _, err := fmt.Fprint(ev.Output(), formatArgs(args)); err != nil {
			return sem.NoValue, err
		}

		return sem.VoidValue(ctx.Void), nil
	}, sem.Param("value", ctx.Any))
	d.repeat(print, maxRepeats)

	println := d.native("println", ctx.Void, sem.FnNone, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		if _, err := fmt.Fprintln(ev.Output(), formatArgs(args)); err != nil {
			return sem.NoValue, err
		}

		return sem.VoidValue(ctx.Void), nil
	}, sem.ParamDefault("value", ctx.Any, sem.NoValue))
	d.repeat(println, maxRepeats)

	d.native("to-string", ctx.String, sem.FnMaybePure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return str(ctx, args[0].String()), nil
	}, sem.Param("value", ctx.Any))

	d.native("length", ctx.Int, sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		return sem.IntValue(ctx.Int, int64(utf8.RuneCountInString(args[0].Str()))), nil
	}, sem.Param("s", ctx.String))

	d.native("substring", ctx.String, sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		runes := []rune(args[0].Str())
		start, end := int(args[1].Int()), int(args[2].Int())
		if end < 0 || end > len(runes) {
			end = len(runes)
		}

		if start < 0 || start > end {
			return sem.NoValue, sem.NewException(sem.ExceptionBadArgument, "substring bounds %d:%d out of range", start, end)
		}

		return str(ctx, string(runes[start:end])), nil
	}, sem.Param("s", ctx.String), sem.Param("start", ctx.Int), sem.ParamDefault("end", ctx.Int, sem.IntValue(ctx.Int, -1)))

	d.native("char-at", ctx.Char, sem.FnPure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		runes := []rune(args[0].Str())
		i := int(args[1].Int())
		if i < 0 || i >= len(runes) {
			return sem.NoValue, sem.NewException(sem.ExceptionBadArgument, "index %d out of range for a string of length %d", i, len(runes))
		}

		return sem.IntValue(ctx.Char, int64(runes[i])), nil
	}, sem.Param("s", ctx.String), sem.Param("index", ctx.Int))
}
