// Package prompt renders prompt templates with variable substitution.
//
// Templates use {{variable}} placeholders in the Handlebars style, which are
// converted to Go text/template syntax before execution. Control structures
// ({{#if x}}, {{#each items}}) and a small helper set (json, truncate,
// indent, upper, lower, trim, join, default) are supported.
//
//	engine := prompt.NewEngine()
//	out, err := engine.Render("Summarize for a {{audience}}: {{text}}", map[string]any{
//	    "audience": "lawyer",
//	    "text":     input,
//	})
package prompt
