// Package sanitizer recovers a JSON object from free-form model output.
//
// Models are asked for pure JSON but often wrap it in markdown fences, add
// prose around it or leave trailing commas. Parse runs an ordered chain of
// pure recovery stages and stops at the first one that yields an object.
package sanitizer

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Stage names the recovery step that produced an object.
type Stage int

const (
	StageNone Stage = iota
	StageDirectParse
	StageFenceStripped
	StageBraceExtracted
	StageTrailingCommaFixed
)

func (s Stage) String() string {
	switch s {
	case StageDirectParse:
		return "DirectParse"
	case StageFenceStripped:
		return "FenceStripped"
	case StageBraceExtracted:
		return "BraceExtracted"
	case StageTrailingCommaFixed:
		return "TrailingCommaFixed"
	default:
		return "None"
	}
}

var fencePattern = regexp.MustCompile("```[a-zA-Z]*\\s*\\n?|```")

type stage struct {
	name Stage
	fn   func(string) (map[string]any, bool)
}

// Each stage sees the raw text and repeats the cleanup of the stages before it.
var stages = []stage{
	{StageDirectParse, DirectParse},
	{StageFenceStripped, FenceStripped},
	{StageBraceExtracted, BraceExtracted},
	{StageTrailingCommaFixed, TrailingCommaFixed},
}

// Parse returns the first object recovered from text and the stage that
// recovered it. ok is false when every stage fails.
func Parse(text string) (obj map[string]any, st Stage, ok bool) {
	for _, s := range stages {
		if obj, ok := s.fn(text); ok {
			return obj, s.name, true
		}
	}
	return nil, StageNone, false
}

// ParseModelJSON returns the recovered object or nil.
func ParseModelJSON(text string) map[string]any {
	obj, _, _ := Parse(text)
	return obj
}

// Decode recovers an object from text and decodes it into v.
func Decode(text string, v any) (Stage, bool) {
	obj, st, ok := Parse(text)
	if !ok {
		return StageNone, false
	}
	// Round-trip through encoding/json so v gets its own field mapping.
	b, err := json.Marshal(obj)
	if err != nil {
		return StageNone, false
	}
	if err := json.Unmarshal(b, v); err != nil {
		return StageNone, false
	}
	return st, true
}

// DirectParse parses text as is, ignoring surrounding whitespace.
func DirectParse(text string) (map[string]any, bool) {
	return decodeObject(strings.TrimSpace(text))
}

// FenceStripped removes markdown code fences such as ```json ... ``` and parses.
func FenceStripped(text string) (map[string]any, bool) {
	return decodeObject(stripFences(text))
}

// BraceExtracted parses the span between the first '{' and the last '}'
// of the fence-stripped text, dropping any prose around it.
func BraceExtracted(text string) (map[string]any, bool) {
	span, ok := braceSpan(stripFences(text))
	if !ok {
		return nil, false
	}
	return decodeObject(span)
}

// TrailingCommaFixed removes commas that directly precede a closing bracket
// or brace in the extracted span and parses. Commas inside string values are
// kept.
func TrailingCommaFixed(text string) (map[string]any, bool) {
	span, ok := braceSpan(stripFences(text))
	if !ok {
		return nil, false
	}
	return decodeObject(dropTrailingCommas(span))
}

func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func stripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// decodeObject accepts only a JSON object; arrays, scalars and null fail.
func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
