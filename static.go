package dryml

import (
	"regexp"
	"strings"
)

var (
	quotedAttrRx    = regexp.MustCompile(`=\s*("[^"]*"|'[^']*')`)
	interpolationRx = regexp.MustCompile(`(?s)#\{(.*?)\}`)
	cdataDelimRx    = regexp.MustCompile(regexp.QuoteMeta(cdataStart) + `|` + regexp.QuoteMeta(cdataEnd))
)

// staticElement copies plain markup through. Elements that need runtime
// help (parts, merged attributes) are rendered with the tag helper instead.
func (t *Template) staticElement(el *Element, sc defScope) (*erb, error) {
	if el.HasAttr("part") || el.HasAttr("merge_attrs") {
		return t.staticTagCall(el, sc)
	}

	start := cdataDelimRx.ReplaceAllString(el.StartTag, "")
	start = quotedAttrRx.ReplaceAllStringFunc(start, func(m string) string {
		return interpolationRx.ReplaceAllString(m, "<%= ${1} %>")
	})
	out := newERB().text(start)
	if !el.HasEndTag {
		return out, nil
	}
	children, err := t.childrenERB(el, sc)
	if err != nil {
		return nil, err
	}
	return out.nest(children).text("</" + el.Name + ">"), nil
}

func escapeDoubleQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func (t *Template) staticTagCall(el *Element, sc defScope) (*erb, error) {
	partName, isPart := el.Attr("part")

	var items []string
	for _, a := range el.Attrs {
		if err := t.checkAttributeName(el, a.Name); err != nil {
			return nil, err
		}
		if a.Name == "part" || a.Name == "merge_attrs" {
			continue
		}
		v, ok := t.scriptlets.Interpolate(a.Value, escapeDoubleQuotes)
		if !ok {
			return nil, t.errorf(ErrForbiddenScriptlet, el, "erb scriptlet not allowed in this attribute (use #{ ... } instead)")
		}
		items = append(items, rubySymbol(a.Name)+` => "`+v+`"`)
	}
	if isPart && !el.HasAttr("id") {
		items = append(items, ":id => '"+partName+"'")
	}
	attrs := "{" + strings.Join(items, ", ") + "}"

	if ma, ok := el.Attr("merge_attrs"); ok {
		if !isCodeAttribute(ma) {
			return nil, t.errorf(ErrInvalidAttribute, el, "merge_attrs was given a string")
		}
		expr := ma[len(codeAttributePrefix):]
		attrs = "merge_attrs(" + attrs + ", ((__merge_attrs__ = (" + expr + ")) == true ? attributes : __merge_attrs__))"
	}

	nl := tagNewlines(el)
	if len(el.Children) == 0 {
		if isPart {
			return nil, t.errorf(ErrPlacement, el, "part attribute on empty static tag")
		}
		return newERB().expr("tag(" + rubySymbol(el.Name) + ", " + attrs + nl + ")"), nil
	}

	body, err := t.childrenERB(el, sc)
	if err != nil {
		return nil, err
	}
	if isPart {
		// The part method keeps the start tag's newlines.
		if body, err = t.partElement(el, body); err != nil {
			return nil, err
		}
		nl = ""
	}
	return newERB().
		expr("tag " + rubySymbol(el.Name) + ", " + attrs + ", true" + nl).
		nest(body).
		text("</" + el.Name + ">"), nil
}
