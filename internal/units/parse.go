package units

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// ParseSize turns strings such as "100gb" or "1 TB" into a byte quantity.
func ParseSize(input string) (Quantity, error) {
	return parse(Sizes, input)
}

// ParseDuration turns strings such as "30d" or "1 MO" into a second quantity.
func ParseDuration(input string) (Quantity, error) {
	return parse(Times, input)
}

// parse 只接受一组数字与一组字母，其余字符视为分隔符。
// 出现多组数字或多组字母时（如 "1d2h"），剩余部分会作为未知单位返回，
// 不做静默截断。
func parse(reg *Registry, input string) (Quantity, error) {
	if input == "" {
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Err: ErrEmptyInput}
	}
	upper := strings.ToUpper(input)
	tokens := scanTokens(upper)
	if tokens.digitRuns == 0 {
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Err: ErrMissingQuantity}
	}
	if tokens.letterRuns == 0 {
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Err: ErrMissingUnit}
	}
	if tokens.digitRuns > 1 || tokens.letterRuns > 1 {
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Token: tokens.remainder, Err: ErrUnknownUnit}
	}

	count, err := strconv.ParseInt(tokens.digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Token: tokens.digits, Err: ErrOverflow}
		}
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Token: tokens.digits, Err: ErrMissingQuantity}
	}
	unit, err := reg.Lookup(tokens.letters)
	if err != nil {
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Token: tokens.letters, Err: ErrUnknownUnit}
	}
	scaled, err := unit.Times(count)
	if err != nil {
		return Quantity{}, &ParseError{Kind: reg.kind, Input: input, Token: tokens.digits, Err: err}
	}
	return scaled, nil
}

type tokenScan struct {
	digits     string
	letters    string
	digitRuns  int
	letterRuns int
	// remainder holds every digit and letter except the first digit run.
	remainder string
}

func scanTokens(s string) tokenScan {
	const (
		runNone = iota
		runDigit
		runLetter
	)
	var (
		out       tokenScan
		digits    strings.Builder
		letters   strings.Builder
		remainder strings.Builder
		current   = runNone
	)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			if current != runDigit {
				out.digitRuns++
				current = runDigit
			}
			if out.digitRuns == 1 {
				digits.WriteRune(r)
			} else {
				remainder.WriteRune(r)
			}
		case unicode.IsLetter(r):
			if current != runLetter {
				out.letterRuns++
				current = runLetter
			}
			if out.letterRuns == 1 {
				letters.WriteRune(r)
			}
			remainder.WriteRune(r)
		default:
			current = runNone
		}
	}
	out.digits = digits.String()
	out.letters = letters.String()
	out.remainder = remainder.String()
	return out
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
