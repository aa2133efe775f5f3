package generator

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// ExtractJSON pulls the first JSON object out of a model response that may be
// wrapped in prose or markdown fences. It tolerates trailing commas and junk
// after the closing brace. Returns false when no parseable object is present.
func ExtractJSON(response string) ([]byte, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < 0 || end <= start {
		return nil, false
	}

	candidate := response[start : end+1]
	if json.Valid([]byte(candidate)) {
		return []byte(candidate), true
	}

	// Strip trailing commas before } or ] and retry. Models under token
	// pressure also emit half-finished trailing objects; truncating at the
	// last balanced brace is handled by the LastIndex above.
	cleaned := trailingComma.ReplaceAllString(candidate, "$1")
	if json.Valid([]byte(cleaned)) {
		return []byte(cleaned), true
	}
	return nil, false
}

// DecodeJSON is ExtractJSON plus unmarshalling into out.
func DecodeJSON(response string, out any) bool {
	raw, ok := ExtractJSON(response)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
