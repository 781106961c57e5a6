package prompt

import (
	"regexp"
	"strings"
)

var helperNames = []string{
	"json", "truncate", "indent", "upper", "lower", "trim", "join", "default",
}

// goTemplateKeywords must not be rewritten into variable references.
var goTemplateKeywords = map[string]bool{
	"else": true, "end": true, "if": true, "range": true,
	"with": true, "define": true, "template": true, "block": true,
}

var (
	ifPattern   = regexp.MustCompile(`\{\{#if\s+(\w+)\}\}`)
	eachPattern = regexp.MustCompile(`\{\{#each\s+(\w+)\}\}`)
	varPattern  = regexp.MustCompile(`\{\{([a-zA-Z_]\w*)\}\}`)
)

// convertSyntax rewrites Handlebars-style templates into Go template syntax:
//
//	{{variable}}               -> {{.variable}}
//	{{#if x}}...{{/if}}        -> {{if .x}}...{{end}}
//	{{#each xs}}...{{/each}}   -> {{range .xs}}...{{end}}
//	{{helper arg 10}}          -> {{helper .arg 10}}
func convertSyntax(input string) string {
	out := ifPattern.ReplaceAllString(input, "{{if .$1}}")
	out = strings.ReplaceAll(out, "{{/if}}", "{{end}}")
	out = eachPattern.ReplaceAllString(out, "{{range .$1}}")
	out = strings.ReplaceAll(out, "{{/each}}", "{{end}}")

	out = varPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := match[2 : len(match)-2]
		if goTemplateKeywords[name] {
			return match
		}
		return "{{." + name + "}}"
	})

	return convertHelperArgs(out)
}

// convertHelperArgs adds dot prefixes to bare identifiers in helper calls.
func convertHelperArgs(input string) string {
	for _, helper := range helperNames {
		pattern := regexp.MustCompile(`\{\{` + helper + `\s+([^{}]+)\}\}`)
		input = pattern.ReplaceAllStringFunc(input, func(match string) string {
			args := strings.TrimSpace(match[len(helper)+3 : len(match)-2])
			return "{{" + helper + " " + rewriteArgs(args) + "}}"
		})
	}
	return input
}

func rewriteArgs(args string) string {
	parts := splitArgs(args)
	for i, part := range parts {
		if strings.HasPrefix(part, ".") || isLiteral(part) {
			continue
		}
		if isIdentifier(part) {
			parts[i] = "." + part
		}
	}
	return strings.Join(parts, " ")
}

// splitArgs splits on spaces outside quotes.
func splitArgs(args string) []string {
	var parts []string
	var cur strings.Builder
	var quote rune
	for _, ch := range args {
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
			cur.WriteRune(ch)
		case quote == ch:
			quote = 0
			cur.WriteRune(ch)
		case quote == 0 && ch == ' ':
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(ch)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func isLiteral(s string) bool {
	if s == "true" || s == "false" {
		return true
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return true
		}
	}
	return isNumber(s)
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if (ch == '-' && i == 0) || ch == '.' {
			continue
		}
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if i == 0 && ch >= '0' && ch <= '9' {
			return false
		}
		ok := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
		if !ok {
			return false
		}
	}
	return true
}

var controlPattern = regexp.MustCompile(`\{\{#(?:if|each)\s+([a-zA-Z_]\w*)\}\}`)
var helperVarPattern = regexp.MustCompile(`\{\{\w+\s+([a-zA-Z_]\w*)`)

// extractVariables returns the deduplicated variable names a template reads.
func extractVariables(tmpl string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !goTemplateKeywords[name] && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, m := range varPattern.FindAllStringSubmatch(tmpl, -1) {
		add(m[1])
	}
	for _, m := range controlPattern.FindAllStringSubmatch(tmpl, -1) {
		add(m[1])
	}
	for _, m := range helperVarPattern.FindAllStringSubmatch(tmpl, -1) {
		if isIdentifier(m[1]) && !isNumber(m[1]) {
			add(m[1])
		}
	}
	return out
}
