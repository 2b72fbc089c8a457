// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"encoding/json"
	"strings"
)

// InvocationKind tags how an invocation was found in actor text.
type InvocationKind int

const (
	// KindNone means the text carries no tool invocation. Not an error.
	KindNone InvocationKind = iota
	// KindStructured means the whole message was a JSON call object.
	KindStructured
	// KindTextEmbedded means the call object was embedded in prose.
	KindTextEmbedded
)

// Invocation is one tool call extracted from actor text.
type Invocation struct {
	Kind      InvocationKind
	Name      string
	Arguments map[string]any
	// Raw is the JSON fragment the invocation was parsed from.
	Raw string
}

// Parse extracts a tool invocation from actor text. The chain is: strict
// JSON over the whole message, then a permissive pass that rewrites Python
// literals (True/False/None) outside strings, then a scan for the first
// balanced {...} fragment. Text with no braces yields KindNone and no
// error; braces that never resolve into a call yield a parse_error the
// caller may log and otherwise ignore.
func Parse(text string) (Invocation, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.Contains(trimmed, "{") {
		return Invocation{Kind: KindNone}, nil
	}

	if inv, ok := tryCallObject(trimmed); ok {
		inv.Kind = KindStructured
		return inv, nil
	}

	fragment, ok := balancedFragment(trimmed)
	if !ok {
		return Invocation{Kind: KindNone}, parseErr("text contains braces but no balanced JSON object")
	}
	if inv, ok := tryCallObject(fragment); ok {
		inv.Kind = KindTextEmbedded
		return inv, nil
	}
	return Invocation{Kind: KindNone}, parseErr("no recognizable tool invocation in text")
}

// tryCallObject attempts to decode a call object out of a candidate JSON
// fragment, retrying after Python-literal normalization.
func tryCallObject(candidate string) (Invocation, bool) {
	for _, attempt := range []string{candidate, normalizePythonLiterals(candidate)} {
		var obj map[string]any
		if err := json.Unmarshal([]byte(attempt), &obj); err != nil {
			continue
		}
		name, _ := obj["name"].(string)
		if name == "" {
			continue
		}
		return Invocation{
			Name:      name,
			Arguments: callArguments(obj),
			Raw:       attempt,
		}, true
	}
	return Invocation{}, false
}

// callArguments reads the arguments object, accepting both the canonical
// "arguments" key and the "parameters" spelling some actors emit. A string
// value that itself decodes as an object is unwrapped.
func callArguments(obj map[string]any) map[string]any {
	for _, key := range []string{"arguments", "parameters"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case map[string]any:
			return v
		case string:
			var nested map[string]any
			if err := json.Unmarshal([]byte(normalizePythonLiterals(v)), &nested); err == nil {
				return nested
			}
		}
	}
	return map[string]any{}
}

// balancedFragment returns the first balanced {...} substring, tracking
// string state so braces inside quoted values don't confuse the depth.
func balancedFragment(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// normalizePythonLiterals rewrites True/False/None tokens outside strings
// into their JSON forms, so actors that emit Python-ish dicts still parse.
func normalizePythonLiterals(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if i == 0 || !isWordByte(text[i-1]) {
			if replaced, skip := matchLiteral(text[i:]); skip > 0 {
				b.WriteString(replaced)
				i += skip - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

var pythonLiterals = []struct {
	from, to string
}{
	{"True", "true"},
	{"False", "false"},
	{"None", "null"},
}

func matchLiteral(rest string) (string, int) {
	for _, lit := range pythonLiterals {
		if !strings.HasPrefix(rest, lit.from) {
			continue
		}
		if len(rest) > len(lit.from) && isWordByte(rest[len(lit.from)]) {
			continue
		}
		return lit.to, len(lit.from)
	}
	return "", 0
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
