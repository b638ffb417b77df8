package prompts

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON document out of free-form model text. It first
// attempts a direct parse, then scans for the first balanced {...} or [...]
// region and tries that substring. Returns false when no parseable region
// exists.
func ExtractJSON(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), true
	}

	for _, open := range []byte{'{', '['} {
		start := strings.IndexByte(text, open)
		if start == -1 {
			continue
		}
		depth := 0
	scan:
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return json.RawMessage(candidate), true
					}
					break scan
				}
			}
		}
	}
	return nil, false
}
