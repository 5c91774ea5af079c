package dryml

import "strings"

// elementKind is the generation rule an element is dispatched to.
type elementKind int

const (
	kindLegacyParam elementKind = iota
	kindInclude
	kindSetTheme
	kindDef
	kindTagbody
	kindSet
	kindTemplateCall
	kindTagCall
	kindStatic
)

var elementKindNames = [...]string{
	kindLegacyParam:  "legacy-param",
	kindInclude:      "include",
	kindSetTheme:     "set_theme",
	kindDef:          "def",
	kindTagbody:      "tagbody",
	kindSet:          "set",
	kindTemplateCall: "template-call",
	kindTagCall:      "tag-call",
	kindStatic:       "static",
}

func (k elementKind) String() string {
	if int(k) < len(elementKindNames) {
		return elementKindNames[k]
	}
	return "unknown"
}

// classify picks the rule for el. Rules are tried in order; a later rule
// only applies when no earlier one matched.
func classify(el *Element, tags TagRegistry) elementKind {
	if strings.HasPrefix(el.Name, ":") {
		return kindLegacyParam
	}
	switch name := el.DrymlName(); name {
	case "include":
		return kindInclude
	case "set_theme":
		return kindSetTheme
	case "def":
		return kindDef
	case "tagbody":
		return kindTagbody
	case "set":
		return kindSet
	default:
		if !tags.IsStatic(name) || el.HasAttr("param") {
			if isTemplateName(name) {
				return kindTemplateCall
			}
			return kindTagCall
		}
		return kindStatic
	}
}
