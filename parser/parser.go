// Package parser extracts structured content from model responses.
//
// Models wrap machine-readable answers in prose and markdown fences. This
// package recovers fenced code blocks, JSON objects, and YAML documents so
// callers (the structured package, the workflow router) do not have to trust
// the model to emit bare JSON.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Language string // language tag after the opening fence, may be empty
	Content  string
}

var (
	fenceRegex = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")
)

// CodeBlocks returns all fenced code blocks in the response.
func CodeBlocks(response string) []CodeBlock {
	matches := fenceRegex.FindAllStringSubmatch(response, -1)
	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, CodeBlock{Language: m[1], Content: strings.TrimRight(m[2], "\n")})
	}
	return blocks
}

// Code returns the first code block with the given language, or "".
func Code(response, language string) string {
	for _, b := range CodeBlocks(response) {
		if b.Language == language {
			return b.Content
		}
	}
	return ""
}

// JSON returns the raw text of the first JSON value (object or array) in
// the response. It looks inside json-tagged and untagged fences first, then
// scans the response body. Returns "" when nothing parses.
func JSON(response string) string {
	for _, b := range CodeBlocks(response) {
		if b.Language != "json" && b.Language != "" {
			continue
		}
		if trimmed := strings.TrimSpace(b.Content); json.Valid([]byte(trimmed)) {
			return trimmed
		}
		if candidate := firstValue(b.Content); candidate != "" {
			return candidate
		}
	}
	return firstValue(response)
}

// Unmarshal extracts the first JSON value and decodes it into v.
func Unmarshal(response string, v any) error {
	raw := JSON(response)
	if raw == "" {
		// Last resort: the whole response may be a bare JSON scalar.
		raw = strings.TrimSpace(response)
	}
	return json.Unmarshal([]byte(raw), v)
}

// YAML decodes the first yaml-tagged fence (or the whole response when no
// fences are present) into v.
func YAML(response string, v any) error {
	for _, b := range CodeBlocks(response) {
		if b.Language == "yaml" || b.Language == "yml" {
			return yaml.Unmarshal([]byte(b.Content), v)
		}
	}
	return yaml.Unmarshal([]byte(response), v)
}

// firstValue scans text for the first balanced top-level JSON object or
// array that actually decodes, tracking strings so delimiters inside values
// do not count.
func firstValue(text string) string {
	start := strings.IndexAny(text, "{[")
	for start != -1 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			switch {
			case escaped:
				escaped = false
			case ch == '\\' && inString:
				escaped = true
			case ch == '"':
				inString = !inString
			case !inString && (ch == '{' || ch == '['):
				depth++
			case !inString && (ch == '}' || ch == ']'):
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate
					}
					i = len(text) // abandon this start position
				}
			}
		}
		next := strings.IndexAny(text[start+1:], "{[")
		if next == -1 {
			return ""
		}
		start = start + 1 + next
	}
	return ""
}
