// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/moushegh/daid/internal/combat"
)

// Sanitizer repairs tool arguments before validation and dispatch. Actors
// routinely emit quoted ids, stringified lists, alias argument names, and
// negative or fractional amounts; the sanitizer coerces all of these into
// the shape the tool's argument struct expects instead of failing the call.
type Sanitizer struct {
	// DefaultGameID fills a missing or blank game_id argument.
	DefaultGameID string
}

// Sanitize returns a repaired copy of args for the given tool. The input
// map is not modified.
func (s Sanitizer) Sanitize(d *Descriptor, args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}

	// Alias repair before shape coercion so the canonical key is the one
	// coerced.
	if alias, ok := out["target"]; ok {
		if canonical, exists := out["target_name"]; !exists || isBlank(canonical) {
			out["target_name"] = alias
		}
		delete(out, "target")
	}

	if d.Args != nil {
		shapes := argShapes(d.Args)
		for key, shape := range shapes {
			v, ok := out[key]
			if !ok || v == nil {
				continue
			}
			out[key] = coerceShape(v, shape)
		}
		if _, wantsID := shapes["game_id"]; wantsID {
			out["game_id"] = s.normalizeGameID(out["game_id"])
		}
	}

	if v, ok := out["amount"]; ok {
		out["amount"] = clampAmount(v)
	}
	if v, ok := out["result"]; ok {
		if str, isStr := v.(string); isStr {
			out["result"] = strings.ToUpper(strings.TrimSpace(str))
		}
	}
	if d.Name == "roll" {
		s.repairNotation(out)
	}
	return out
}

// normalizeGameID strips wrapping quotes and whitespace and fills the
// session default when the argument is blank or of the wrong type.
func (s Sanitizer) normalizeGameID(v any) string {
	id, _ := v.(string)
	id = strings.TrimSpace(id)
	id = strings.Trim(id, `"'`)
	id = strings.TrimSpace(id)
	if id == "" {
		return s.DefaultGameID
	}
	return id
}

// repairNotation falls back to a plain d20 when the notation is not usable,
// keeping the original text as the roll's purpose.
func (s Sanitizer) repairNotation(args map[string]any) {
	notation, _ := args["notation"].(string)
	if _, err := combat.ParseNotation(notation); err == nil {
		return
	}
	if purpose, _ := args["purpose"].(string); purpose == "" && strings.TrimSpace(notation) != "" {
		args["purpose"] = strings.TrimSpace(notation)
	}
	args["notation"] = "1d20"
}

// clampAmount coerces an amount to a non-negative integer; direction is
// carried by the tool (damage vs heal), never by a sign.
func clampAmount(v any) int {
	var n float64
	switch amt := v.(type) {
	case int:
		n = float64(amt)
	case int64:
		n = float64(amt)
	case float64:
		n = amt
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(amt), 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	return int(math.Abs(math.Trunc(n)))
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return !ok || strings.TrimSpace(s) == ""
}

// shape classifies what the argument struct expects for one key.
type shape int

const (
	shapeString shape = iota
	shapeInt
	shapeNumber
	shapeBool
	shapeStringSlice
	shapeSlice
	shapeMap
	shapeOther
)

// argShapes maps json keys of the argument struct to expected shapes.
func argShapes(args any) map[string]shape {
	t := reflect.TypeOf(args)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	shapes := make(map[string]shape, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		shapes[tag] = shapeOf(field.Type)
	}
	return shapes
}

func shapeOf(t reflect.Type) shape {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return shapeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return shapeInt
	case reflect.Float32, reflect.Float64:
		return shapeNumber
	case reflect.Bool:
		return shapeBool
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			return shapeStringSlice
		}
		return shapeSlice
	case reflect.Map:
		return shapeMap
	default:
		return shapeOther
	}
}

// coerceShape bends a value toward the expected shape, returning it
// unchanged when no sensible coercion exists.
func coerceShape(v any, want shape) any {
	switch want {
	case shapeString:
		return coerceString(v)
	case shapeInt:
		if n, ok := coerceNumber(v); ok {
			return int(math.Trunc(n))
		}
	case shapeNumber:
		if n, ok := coerceNumber(v); ok {
			return n
		}
	case shapeBool:
		if b, ok := coerceBool(v); ok {
			return b
		}
	case shapeStringSlice:
		return coerceStringSlice(v)
	case shapeSlice, shapeMap:
		if s, ok := v.(string); ok {
			if parsed := parseStructured(s); parsed != nil {
				return parsed
			}
		}
	}
	return v
}

func coerceString(v any) any {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case []any, map[string]any:
		raw, err := json.Marshal(val)
		if err != nil {
			return v
		}
		return string(raw)
	default:
		return v
	}
}

func coerceNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func coerceBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(val)))
		return b, err == nil
	default:
		return false, false
	}
}

// coerceStringSlice accepts a real list, a JSON array string, or a
// delimiter-separated string ("A, B, C").
func coerceStringSlice(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := coerceString(item).(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "[") {
			if parsed := parseStructured(trimmed); parsed != nil {
				return coerceStringSlice(parsed)
			}
		}
		fields := strings.FieldsFunc(trimmed, func(r rune) bool {
			return r == ',' || r == '\n' || r == ';'
		})
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out
	default:
		return v
	}
}

// parseStructured decodes a string that carries JSON (or Python-ish)
// structured data. Returns nil when it doesn't parse.
func parseStructured(s string) any {
	for _, attempt := range []string{s, normalizePythonLiterals(s)} {
		var parsed any
		if err := json.Unmarshal([]byte(attempt), &parsed); err != nil {
			continue
		}
		switch parsed.(type) {
		case []any, map[string]any:
			return parsed
		}
	}
	return nil
}
