package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed dice expression.
//
// Invariant: Count >= 1, Sides >= 2, 0 <= KeepHighest < Count.
type Expression struct {
	Raw         string
	Count       int
	Sides       int
	Modifier    int
	KeepHighest int
}

// Parse reads "NdS", "dS", "NdS+M", "NdS-M" and "NdSkhK[+/-M]". Whitespace
// is ignored and the "d" is case-insensitive.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	e := Expression{Raw: expr, Count: 1}

	countStr, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expression{}, fmt.Errorf("dice: %q has no 'd'", expr)
	}
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 1 {
			return Expression{}, fmt.Errorf("dice: bad count in %q", expr)
		}
		e.Count = n
	}

	body, mod := splitModifier(rest)
	if mod != "" {
		m, err := strconv.Atoi(mod)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: bad modifier in %q: %w", expr, err)
		}
		e.Modifier = m
	}

	sides, keep, hasKeep := strings.Cut(body, "kh")
	n, err := strconv.Atoi(sides)
	if err != nil || n < 2 {
		return Expression{}, fmt.Errorf("dice: bad sides in %q", expr)
	}
	e.Sides = n
	if hasKeep {
		k, err := strconv.Atoi(keep)
		if err != nil || k < 1 || k >= e.Count {
			return Expression{}, fmt.Errorf("dice: keep-highest in %q must be in [1, %d)", expr, e.Count)
		}
		e.KeepHighest = k
	}
	return e, nil
}

// splitModifier splits "6kh3+2" into ("6kh3", "+2"). A sign in the first
// position belongs to the body.
func splitModifier(s string) (string, string) {
	if i := strings.IndexAny(s[min(1, len(s)):], "+-"); i >= 0 {
		i += min(1, len(s))
		return s[:i], s[i:]
	}
	return s, ""
}

// MustParse is Parse for package-level expressions; it panics on error.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}
