package asm

import (
	"strings"
)

// Parse tokenises PetraVM assembly source into an AST of lines. The name
// parameter is used only to annotate error positions (pass the source file
// name, or "" for anonymous input).
func Parse(name, source string) (*Program, error) {
	var (
		prog Program
		errs ErrParse
	)

	rawLines := strings.Split(source, "\n")
	for idx, raw := range rawLines {
		lineNo := idx + 1
		if len(errs) >= maxErrors {
			break
		}
		body := stripComment(raw)
		if strings.TrimSpace(body) == "" {
			continue // comment-only or blank: shape 3
		}
		toks, err := tokenizeLine(name, lineNo, body)
		if err != nil {
			if ep, ok := err.(ErrParse); ok {
				errs = append(errs, ep...)
				continue
			}
			return nil, err
		}
		if len(toks) == 0 {
			continue
		}
		line, lerrs := parseLineTokens(toks)
		if len(lerrs) > 0 {
			errs = append(errs, lerrs...)
			continue
		}
		prog.Lines = append(prog.Lines, line)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &prog, nil
}

// stripComment removes a ";;" end-of-line comment, if present.
func stripComment(line string) string {
	if i := strings.Index(line, ";;"); i >= 0 {
		return line[:i]
	}
	return line
}

// parseLineTokens consumes the token stream for one physical line and
// builds the corresponding Line, following the grammar:
//
//	line := (frame_annot? label instruction? | instruction)
func parseLineTokens(toks []token) (Line, ErrParse) {
	line := Line{Pos: toks[0].pos}
	pos := 0
	var errs ErrParse

	if pos < len(toks) && toks[pos].kind == tPunct && toks[pos].r == '#' &&
		pos+1 < len(toks) && toks[pos+1].kind == tPunct && toks[pos+1].r == '[' {
		fs, n, e := parseFrameAnnot(toks, pos)
		if e != nil {
			errs = append(errs, *e)
			return line, errs
		}
		line.FrameSize = &fs
		pos = n
	}

	if pos < len(toks) && toks[pos].kind == tIdent &&
		pos+1 < len(toks) && toks[pos+1].kind == tPunct && toks[pos+1].r == ':' {
		line.Label = toks[pos].text
		pos += 2
	}

	if pos < len(toks) {
		instr, n, e := parseInstruction(toks, pos)
		if e != nil {
			errs = append(errs, *e)
			return line, errs
		}
		line.Instruction = instr
		pos = n
	}

	if pos != len(toks) {
		errs = append(errs, ParseError{toks[pos].pos, "unexpected trailing token " + toks[pos].text})
	}
	return line, errs
}

// parseFrameAnnot parses `#[framesize(0xNN)]` starting at toks[start]=='#'.
func parseFrameAnnot(toks []token, start int) (uint64, int, *ParseError) {
	pos := start
	expectPunct := func(r rune) *ParseError {
		if pos >= len(toks) || toks[pos].kind != tPunct || toks[pos].r != r {
			return &ParseError{toks[start].pos, "malformed #[framesize(...)] annotation"}
		}
		pos++
		return nil
	}
	if e := expectPunct('#'); e != nil {
		return 0, pos, e
	}
	if e := expectPunct('['); e != nil {
		return 0, pos, e
	}
	if pos >= len(toks) || toks[pos].kind != tIdent || toks[pos].text != "framesize" {
		return 0, pos, &ParseError{toks[start].pos, "expected 'framesize' in annotation"}
	}
	pos++
	if e := expectPunct('('); e != nil {
		return 0, pos, e
	}
	if pos >= len(toks) || toks[pos].kind != tInt {
		return 0, pos, &ParseError{toks[start].pos, "expected frame size integer"}
	}
	if toks[pos].i < 0 {
		return 0, pos, &ParseError{toks[pos].pos, "frame size must not be negative"}
	}
	n := uint64(toks[pos].i)
	pos++
	if e := expectPunct(')'); e != nil {
		return 0, pos, e
	}
	if e := expectPunct(']'); e != nil {
		return 0, pos, e
	}
	return n, pos, nil
}

// parseInstruction parses a mnemonic, optional `!` prover-hint flag, and a
// comma-separated operand list, starting at toks[start].
func parseInstruction(toks []token, start int) (*Instruction, int, *ParseError) {
	if toks[start].kind != tIdent {
		return nil, start, &ParseError{toks[start].pos, "expected instruction mnemonic, got " + toks[start].text}
	}
	instr := &Instruction{Mnemonic: toks[start].text, Pos: toks[start].pos}
	pos := start + 1

	if pos < len(toks) && toks[pos].kind == tPunct && toks[pos].r == '!' {
		instr.Hint = true
		pos++
	}

	for pos < len(toks) {
		if toks[pos].kind == tPunct && toks[pos].r == ',' {
			pos++
			continue
		}
		op, n, e := parseOperand(toks, pos)
		if e != nil {
			return nil, pos, e
		}
		instr.Operands = append(instr.Operands, op)
		pos = n
	}
	return instr, pos, nil
}

// parseOperand parses one of: @N, @N[M], #[-]DIGITS[G], or a bare label
// identifier.
func parseOperand(toks []token, start int) (Operand, int, *ParseError) {
	t := toks[start]
	switch {
	case t.kind == tPunct && t.r == '@':
		return parseSlotOperand(toks, start)
	case t.kind == tPunct && t.r == '#':
		return parseImmOperand(toks, start)
	case t.kind == tIdent:
		return Operand{Kind: OperandLabel, Label: t.text, Pos: t.pos}, start + 1, nil
	default:
		return Operand{}, start, &ParseError{t.pos, "unexpected token in operand position: " + t.text}
	}
}

func parseSlotOperand(toks []token, start int) (Operand, int, *ParseError) {
	pos := start + 1
	if pos >= len(toks) || toks[pos].kind != tInt || toks[pos].i < 0 {
		return Operand{}, pos, &ParseError{toks[start].pos, "expected slot index after '@'"}
	}
	op := Operand{Kind: OperandSlot, Slot: uint32(toks[pos].i), Pos: toks[start].pos}
	pos++
	if pos < len(toks) && toks[pos].kind == tPunct && toks[pos].r == '[' {
		pos++
		if pos >= len(toks) || toks[pos].kind != tInt {
			return Operand{}, pos, &ParseError{toks[start].pos, "expected offset integer in '@N[M]'"}
		}
		op.Kind = OperandSlotOffset
		op.Offset = uint32(toks[pos].i)
		pos++
		if pos >= len(toks) || toks[pos].kind != tPunct || toks[pos].r != ']' {
			return Operand{}, pos, &ParseError{toks[start].pos, "expected ']' to close slot offset"}
		}
		pos++
	}
	return op, pos, nil
}

func parseImmOperand(toks []token, start int) (Operand, int, *ParseError) {
	pos := start + 1
	neg := false
	if pos < len(toks) && toks[pos].kind == tPunct && toks[pos].r == '-' {
		neg = true
		pos++
	}
	if pos >= len(toks) || toks[pos].kind != tInt {
		return Operand{}, pos, &ParseError{toks[start].pos, "expected integer after '#'"}
	}
	v := toks[pos].i
	if neg {
		v = -v
	}
	pos++
	op := Operand{Kind: OperandImmInt, Int: v, Pos: toks[start].pos}
	if pos < len(toks) && toks[pos].kind == tIdent && toks[pos].text == "G" {
		op.Kind = OperandImmField
		pos++
	}
	return op, pos, nil
}
