package sem

import "fmt"

// ExceptionKind classifies program exceptions
type ExceptionKind int

const (
	ExceptionUser ExceptionKind = iota
	ExceptionBadArgument
	ExceptionWrongArgCount
	ExceptionNoMatchingOverload
	ExceptionAmbiguousOverload
	ExceptionBadCast
	ExceptionNilArgument
	ExceptionRuntime
)

var exceptionKindNames = map[ExceptionKind]string{
	ExceptionUser:               "exception",
	ExceptionBadArgument:        "bad argument",
	ExceptionWrongArgCount:      "wrong number of arguments",
	ExceptionNoMatchingOverload: "no matching overload",
	ExceptionAmbiguousOverload:  "ambiguous overload",
	ExceptionBadCast:            "bad cast",
	ExceptionNilArgument:        "nil argument",
	ExceptionRuntime:            "runtime error",
}

func (k ExceptionKind) String() string {
	return exceptionKindNames[k]
}

// Exception is a catchable program failure.  It travels up interpreted call
// chains as an error and lands in a Thread's exception slot at the boundary.
type Exception struct {
	Kind    ExceptionKind
	Message string

	// Value is the thrown value.  Exceptions raised by the runtime carry their
	// message as a string value once they reach a catch handler.
	Value Value

	// Backtrace lists the active functions, outermost first, at the point the
	// exception was raised
	Backtrace []string
}

// NewException creates an exception of the given kind
func NewException(kind ExceptionKind, format string, args ...interface{}) *Exception {
	return &Exception{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ThrowValue creates a user exception carrying v
func ThrowValue(v Value) *Exception {
	return &Exception{Kind: ExceptionUser, Message: v.String(), Value: v}
}

func (e *Exception) Error() string {
	if e.Kind == ExceptionUser {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches sentinel exceptions by kind
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrBadArgument        = &Exception{Kind: ExceptionBadArgument}
	ErrWrongArgCount      = &Exception{Kind: ExceptionWrongArgCount}
	ErrNoMatchingOverload = &Exception{Kind: ExceptionNoMatchingOverload}
	ErrAmbiguousOverload  = &Exception{Kind: ExceptionAmbiguousOverload}
	ErrBadCast            = &Exception{Kind: ExceptionBadCast}
	ErrNilArgument        = &Exception{Kind: ExceptionNilArgument}
)
