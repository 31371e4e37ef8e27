package shogi

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds     = errors.New("square out of bounds")
	ErrIllegalMove     = errors.New("illegal move")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrParse           = errors.New("parse error")
	ErrNoLegalMoves    = errors.New("no legal moves")
)

// ParseError reports malformed SFEN, USI or KIF text.
type ParseError struct {
	Input  string
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("parse %q: %s at %q", e.Input, e.Reason, e.Token)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

func parseErr(input, token, reason string) error {
	return &ParseError{Input: input, Token: token, Reason: reason}
}
