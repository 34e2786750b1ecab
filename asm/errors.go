package asm

import (
	"fmt"
	"strings"
	"text/scanner"
)

// maxErrors bounds how many parse errors we accumulate before giving up on
// a source file, mirroring the teacher assembler's error-recovery limit.
const maxErrors = 10

// ParseError is one ill-formed piece of source.
type ParseError struct {
	Pos scanner.Position
	Msg string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// ErrParse collects every ParseError found in one parse, up to maxErrors.
type ErrParse []ParseError

func (e ErrParse) Error() string {
	l := make([]string, 0, len(e))
	for _, err := range e {
		l = append(l, err.Error())
	}
	return strings.Join(l, "\n")
}
