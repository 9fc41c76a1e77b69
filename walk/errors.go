package walk

import (
	"errors"
	"fmt"

	"mu/syntax"
)

// errorf creates an error positioned at a form
func (w *Walker) errorf(at syntax.ASTNode, format string, args ...interface{}) error {
	return &syntax.Error{Pos: at.Position(), Message: fmt.Sprintf(format, args...)}
}

// wrap positions an error returned by the symbol table or resolver.  Errors
// that already carry a position are returned unchanged.
func (w *Walker) wrap(at syntax.ASTNode, err error) error {
	var serr *syntax.Error
	var werr *Error
	if errors.As(err, &serr) || errors.As(err, &werr) {
		return err
	}

	return &Error{Pos: at.Position(), Err: err}
}

// Error is a failure of the symbol table or overload resolver at a source
// position.  It unwraps to the underlying error so that callers can test for
// sem exceptions such as sem.ErrNoMatchingOverload.
type Error struct {
	Pos syntax.Position
	Err error
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
