// internal/service/renderer.go
package service

import (
	"strings"

	"github.com/unclebandit/mailtrail-backend/internal/model"
)

// RenderTemplate substitutes {{key}} placeholders with recipient values.
// The inner key is trimmed of whitespace; a key the recipient does not carry
// is left in place verbatim. A placeholder span runs from "{{" to the first
// following "}}". Pure and deterministic, no I/O.
func RenderTemplate(content string, recipient model.Recipient) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "{{")
		if start < 0 {
			b.WriteString(content)
			break
		}
		rest := content[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			b.WriteString(content)
			break
		}

		b.WriteString(content[:start])
		key := strings.TrimSpace(rest[:end])
		if value, ok := recipient[key]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(content[start : start+2+end+2])
		}
		content = rest[end+2:]
	}
	return b.String()
}
