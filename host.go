package dryml

import (
	"regexp"
	"strings"
)

// codeAttributePrefix marks an attribute value as host code rather than a
// string literal: <foo x="&user.name"/>.
const codeAttributePrefix = "&"

const dryMLName = `[a-zA-Z_][a-zA-Z0-9_]*`

var (
	nameRx      = regexp.MustCompile(`^` + dryMLName + `$`)
	attrsSpecRx = regexp.MustCompile(`^\s*` + dryMLName + `(\s*,\s*` + dryMLName + `)*\s*$`)
	attrsSepRx  = regexp.MustCompile(`\s*,\s*`)
	symbolRx    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*[?!]?$`)
)

// reservedWords cannot be used as method or local names in generated code.
var reservedWords = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "class": true,
	"else": true, "elsif": true, "unless": true, "case": true, "when": true,
	"module": true, "in": true,
}

// Unreserve maps a tag or attribute name to a binding name that does not
// collide with a reserved word of the host language.
func Unreserve(word string) string {
	if reservedWords[word] {
		return word + "_"
	}
	return word
}

func isCodeAttribute(v string) bool {
	return strings.HasPrefix(v, codeAttributePrefix)
}

func isTemplateName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// rubySymbol renders name as a symbol literal, quoting it when it is not a
// bare identifier (e.g. data-id).
func rubySymbol(name string) string {
	if symbolRx.MatchString(name) {
		return ":" + name
	}
	return `:"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}

func rubySymbolList(names []string) string {
	items := make([]string, len(names))
	for i, n := range names {
		items[i] = rubySymbol(n)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func rubyStringList(names []string) string {
	items := make([]string, len(names))
	for i, n := range names {
		items[i] = `"` + n + `"`
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func splitAttrsSpec(spec string) []string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	return attrsSepRx.Split(spec, -1)
}
