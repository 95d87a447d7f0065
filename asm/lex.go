package asm

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// mnemonicFold normalizes a mnemonic for case-insensitive lookup. Register
// names and labels are left untouched elsewhere — only mnemonics fold.
var mnemonicFold = cases.Lower(language.Und)

func foldMnemonic(s string) string {
	return mnemonicFold.String(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentCont(s[i]) {
			return false
		}
	}
	return true
}

// stripComment removes everything from the first '#' to end of line.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// splitLabel detects a leading "ident:" label declaration, which may be
// followed by an instruction on the same line.
func splitLabel(raw string) (label, rest string, hasLabel bool) {
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return "", raw, false
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+1:]), true
}

// splitOperands splits a comma-separated operand list, trimming whitespace
// around each operand. An empty input yields no operands.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// parseImmediate accepts decimal (optionally signed), hexadecimal (0x...),
// and binary (0b...) integer literals.
func parseImmediate(s string) (int64, error) {
	neg := false
	t := s
	if strings.HasPrefix(t, "-") {
		neg = true
		t = t[1:]
	} else if strings.HasPrefix(t, "+") {
		t = t[1:]
	}

	var v uint64
	var err error
	switch {
	case strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X"):
		v, err = strconv.ParseUint(t[2:], 16, 64)
	case strings.HasPrefix(t, "0b") || strings.HasPrefix(t, "0B"):
		v, err = strconv.ParseUint(t[2:], 2, 64)
	default:
		v, err = strconv.ParseUint(t, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("not an integer literal: %q", s)
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

// parseMemOperand splits the "imm(reg)" syntax used by loads, stores, and
// jalr into its immediate and register parts.
func parseMemOperand(s string) (imm int64, reg string, err error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, "", fmt.Errorf("expected imm(reg), got %q", s)
	}
	immPart := strings.TrimSpace(s[:open])
	regPart := strings.TrimSpace(s[open+1 : len(s)-1])
	if immPart == "" {
		imm = 0
	} else {
		imm, err = parseImmediate(immPart)
		if err != nil {
			return 0, "", err
		}
	}
	return imm, regPart, nil
}
