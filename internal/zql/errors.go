package zql

import "fmt"

// LexError is a malformed token. It always carries the position of the
// offending character.
type LexError struct {
	Msg string
	Pos Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// ParseError is an unexpected token, a missing or duplicate clause, or a
// malformed clause operand.
type ParseError struct {
	Msg string
	Pos Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// EvalError is a genuine evaluation defect (invalid cast, invalid regex
// pattern), as opposed to a semantic non-match which degrades to false/Null.
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string {
	return e.Msg
}

func evalErrorf(format string, args ...any) *EvalError {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}
