// Package render materializes template documents by substituting
// {{key}} placeholders with variable values.
package render

import "regexp"

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Materialize replaces every {{key}} occurrence that has a value. Placeholders
// without a matching variable are left untouched, and variables without a
// placeholder are ignored; neither is an error.
func Materialize(templateText string, values map[string]string) string {
	if len(values) == 0 {
		return templateText
	}
	return placeholderRE.ReplaceAllStringFunc(templateText, func(m string) string {
		match := placeholderRE.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}
		if v, ok := values[match[1]]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct placeholder keys in document order.
func Placeholders(templateText string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, match := range placeholderRE.FindAllStringSubmatch(templateText, -1) {
		if len(match) == 2 && !seen[match[1]] {
			seen[match[1]] = true
			keys = append(keys, match[1])
		}
	}
	return keys
}
