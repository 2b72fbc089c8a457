// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package combat is the deterministic rules engine: dice, attacks, spells,
// and ability checks. It holds no shared state; randomness comes from an
// injected source, so every outcome is reproducible in tests.
package combat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// Dice notation limits.
const (
	MinDiceCount = 1
	MaxDiceCount = 20
)

// allowedSides are the die types the engine accepts.
var allowedSides = map[int]struct{}{
	4: {}, 6: {}, 8: {}, 10: {}, 12: {}, 20: {}, 100: {},
}

// CodeValidation is the oops error code for malformed notation.
const CodeValidation = "validation"

// notationLexer tokenizes dice notation like "2d6+3".
var notationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `\d+`},
	{Name: "Die", Pattern: `[dD]`},
	{Name: "Sign", Pattern: `[+-]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// notationAST is the parse tree for {count}d{sides}[±modifier].
type notationAST struct {
	Count *int    `parser:"@Int?"`
	Sides int     `parser:"Die @Int"`
	Sign  *string `parser:"( @Sign"`
	Mod   *int    `parser:"  @Int )?"`
}

// notationParser is the singleton participle parser instance.
var notationParser = participle.MustBuild[notationAST](
	participle.Lexer(notationLexer),
)

// Spec is a validated dice specification.
type Spec struct {
	Count    int `json:"count"`
	Sides    int `json:"sides"`
	Modifier int `json:"modifier"`
}

// Notation renders the spec back to canonical text form.
func (s Spec) Notation() string {
	switch {
	case s.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", s.Count, s.Sides, s.Modifier)
	case s.Modifier < 0:
		return fmt.Sprintf("%dd%d-%d", s.Count, s.Sides, -s.Modifier)
	default:
		return fmt.Sprintf("%dd%d", s.Count, s.Sides)
	}
}

var (
	parenRE   = regexp.MustCompile(`\([^)]*\)`)
	unicodeRE = strings.NewReplacer("＋", "+", "−", "-", "–", "-", "—", "-")
)

// normalizeNotation strips the junk actors wrap notation in: quotes,
// parenthesized asides, unicode plus/minus variants.
func normalizeNotation(notation string) string {
	text := strings.ToLower(strings.TrimSpace(notation))
	for _, q := range []string{`"`, `'`} {
		if len(text) >= 2 && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	text = parenRE.ReplaceAllString(text, "")
	text = unicodeRE.Replace(text)
	return strings.TrimSpace(text)
}

// ParseNotation parses and validates dice notation such as "2d6+3", "d20"
// or "1d8-1". The count defaults to 1 and must stay within [1, 20]; sides
// must be one of 4, 6, 8, 10, 12, 20, 100.
func ParseNotation(notation string) (Spec, error) {
	text := normalizeNotation(notation)
	if text == "" {
		return Spec{}, validationErr(notation, "empty dice notation")
	}

	ast, err := notationParser.ParseString("", text)
	if err != nil {
		return Spec{}, oops.Code(CodeValidation).With("notation", notation).Wrapf(err, "invalid dice notation %q", notation)
	}

	spec := Spec{Count: 1, Sides: ast.Sides}
	if ast.Count != nil {
		spec.Count = *ast.Count
	}
	if ast.Mod != nil {
		spec.Modifier = *ast.Mod
		if ast.Sign != nil && *ast.Sign == "-" {
			spec.Modifier = -spec.Modifier
		}
	}

	if spec.Count < MinDiceCount || spec.Count > MaxDiceCount {
		return Spec{}, validationErr(notation, "dice count %d out of range [%d, %d]", spec.Count, MinDiceCount, MaxDiceCount)
	}
	if _, ok := allowedSides[spec.Sides]; !ok {
		return Spec{}, validationErr(notation, "unsupported die type d%d", spec.Sides)
	}
	return spec, nil
}

// looksLikeNotation reports whether the text contains anything resembling
// dice notation. The gateway uses this to decide between parsing and
// falling back to a default die.
var notationHintRE = regexp.MustCompile(`\d*\s*d\s*\d+`)

// LooksLikeNotation reports whether text plausibly contains dice notation.
func LooksLikeNotation(text string) bool {
	return notationHintRE.MatchString(strings.ToLower(text))
}

func validationErr(notation, format string, args ...any) error {
	return oops.Code(CodeValidation).With("notation", notation).Errorf(format, args...)
}
