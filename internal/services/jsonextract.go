package services

import (
	"encoding/json"
	"strings"
)

// maxSpanAttempts bounds how many '{' positions are tried as span starts.
// Each attempt scans to the end of the text in the worst case.
const maxSpanAttempts = 8

// ExtractJSONObject pulls a JSON object out of free-form model output. It
// tries the balanced {...} spans starting at the first few '{' positions in
// order, then the widest span from the first '{' to the last '}', and
// returns an empty map when nothing parses.
func ExtractJSONObject(text string) map[string]any {
	first := strings.IndexByte(text, '{')
	if first < 0 {
		return map[string]any{}
	}
	for start, attempt := first, 0; attempt < maxSpanAttempts; attempt++ {
		if end := balancedEnd(text, start); end > start {
			if obj, ok := decodeObject(text[start : end+1]); ok {
				return obj
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	if last := strings.LastIndexByte(text, '}'); last > first {
		if obj, ok := decodeObject(text[first : last+1]); ok {
			return obj
		}
	}
	return map[string]any{}
}

// balancedEnd returns the index of the brace closing the one at start, or -1.
// Braces inside JSON strings are ignored.
func balancedEnd(text string, start int) int {
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
				return i
			}
		}
	}
	return -1
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
