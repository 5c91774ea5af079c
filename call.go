package dryml

import (
	"strings"
)

// Attributes that steer a call instead of being passed to it.
var callControlAttrs = map[string]bool{
	"param":        true,
	"merge_attrs":  true,
	"merge_params": true,
	"for_type":     true,
}

var templateModifiers = map[string]bool{
	"before":  true,
	"after":   true,
	"append":  true,
	"prepend": true,
	"replace": true,
}

// extractParamName returns the parameter name el is published under when it
// carries a param attribute.
func (t *Template) extractParamName(el *Element) (string, bool, error) {
	pn, ok := el.Attr("param")
	if !ok {
		return "", false, nil
	}
	def := el.FindAncestor(func(e *Element) bool { return e.Name == "def" })
	if def == nil || !isTemplateName(def.AttrOr("tag", "")) {
		return "", false, t.errorf(ErrPlacement, el, "param is not allowed outside of template definitions")
	}
	if pn == defaultAttributeValue {
		pn = el.DrymlName()
	}
	if isTemplateName(el.Name) {
		if !isTemplateName(pn) {
			return "", false, t.errorf(ErrInvalidAttribute, el, "param name for a template call must be capitalised")
		}
	} else if isTemplateName(pn) {
		return "", false, t.errorf(ErrInvalidAttribute, el, "param name for a block-tag call must not be capitalised")
	}
	return pn, true, nil
}

// mergeExpr resolves a merge_attrs or merge_params attribute. The bare
// sentinel merges the caller's own value, given as self.
func (t *Template) mergeExpr(el *Element, attr, self string) (string, bool, error) {
	v, ok := el.Attr(attr)
	switch {
	case !ok:
		return "", false, nil
	case v == defaultAttributeValue:
		return self, true, nil
	case isCodeAttribute(v):
		return v[len(codeAttributePrefix):], true, nil
	default:
		return "", false, t.errorf(ErrInvalidAttribute, el, "invalid %s", attr)
	}
}

// tagAttributes renders the attribute hash passed to a tag or template.
func (t *Template) tagAttributes(el *Element) (string, error) {
	var items []string
	for _, a := range el.Attrs {
		if err := t.checkAttributeName(el, a.Name); err != nil {
			return "", err
		}
		if callControlAttrs[a.Name] {
			continue
		}
		v, err := t.attributeToRuby(a.Value)
		if err != nil {
			return "", err
		}
		items = append(items, rubySymbol(a.Name)+" => "+v)
	}
	if field, ok := el.FieldName(); ok {
		items = append(items, `:field => "`+field+`"`)
	}
	hash := "{" + strings.Join(items, ", ") + "}"

	extra, ok, err := t.mergeExpr(el, "merge_attrs", "attributes")
	if err != nil {
		return "", err
	}
	if ok {
		return hash + ".merge((" + extra + ") || {})", nil
	}
	return hash, nil
}

func (t *Template) templateCall(el *Element, sc defScope) (*erb, error) {
	name := Unreserve(el.DrymlName())
	pn, hasParam, err := t.extractParamName(el)
	if err != nil {
		return nil, err
	}
	attrs, err := t.tagAttributes(el)
	if err != nil {
		return nil, err
	}
	params, err := t.tagParameters(el, sc)
	if err != nil {
		return nil, err
	}
	polymorphic := el.HasAttr("for_type")

	out := newERB().code("_output(")
	switch {
	case hasParam:
		sym, err := t.attributeToSymbol(pn)
		if err != nil {
			return nil, err
		}
		target := rubySymbol(name)
		if polymorphic {
			target = "find_polymorphic_template(" + rubySymbol(name) + ")"
		}
		out.code("merge_and_call_template(" + target + ", " + attrs + ", ").
			splice(params).
			code(", parameters[" + sym + "])")
	case polymorphic:
		out.code("send(find_polymorphic_template(" + rubySymbol(name) + "), " + attrs + ", ").
			splice(params).
			code(")")
	default:
		out.code(name + "(" + attrs + ", ").splice(params).code(")")
	}
	return out.stmt(")" + tagNewlines(el)), nil
}

// paramGroup collects the children of a template call that share the name
// before the first '.'.
type paramGroup struct {
	name     string
	elements []*Element
}

func groupParameters(el *Element) []*paramGroup {
	var groups []*paramGroup
	index := map[string]*paramGroup{}
	for _, e := range el.Elements() {
		name, _, _ := strings.Cut(e.Name, ".")
		g, ok := index[name]
		if !ok {
			g = &paramGroup{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.elements = append(g.elements, e)
	}
	return groups
}

// tagParameters renders the parameter hash of a template call from its
// element children.
func (t *Template) tagParameters(el *Element, sc defScope) (*erb, error) {
	for _, c := range el.Children {
		blank := true
		switch n := c.(type) {
		case *Text:
			blank = n.IsBlank()
		case *CData:
			blank = strings.TrimSpace(n.Content()) == ""
		}
		if !blank {
			return nil, t.errorf(ErrPlacement, el, "content is not allowed directly inside template calls")
		}
	}

	var items []*erb
	for _, g := range groupParameters(el) {
		if len(g.elements) == 1 && !strings.Contains(g.elements[0].Name, ".") {
			item, err := t.singleParameter(g.elements[0], sc)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			continue
		}

		var param *Element
		var modifiers []*Element
		for _, e := range g.elements {
			if e.Name != g.name {
				modifiers = append(modifiers, e)
				continue
			}
			if param != nil {
				return nil, t.errorf(ErrNameConflict, e, "duplicate template parameter: %s", g.name)
			}
			param = e
		}
		proc, err := t.templateProc(param, modifiers, sc)
		if err != nil {
			return nil, err
		}
		items = append(items, newERB().code(rubySymbol(g.name)+" => ").splice(proc))
	}

	out := newERB().code("{").splice(joinERB(items, ", ")).code("}")
	extra, ok, err := t.mergeExpr(el, "merge_params", "parameters")
	if err != nil {
		return nil, err
	}
	if ok {
		out.code(".merge((" + extra + ") || {})")
	}
	return out, nil
}

// singleParameter renders a parameter with no modifiers. A parameter that is
// itself republished with param merges with the caller's value for it.
func (t *Template) singleParameter(e *Element, sc defScope) (*erb, error) {
	pn, hasParam, err := t.extractParamName(e)
	if err != nil {
		return nil, err
	}
	proc, err := t.templateProc(e, nil, sc)
	if err != nil {
		return nil, err
	}
	item := newERB().code(rubySymbol(e.Name) + " => ")
	if !hasParam {
		return item.splice(proc), nil
	}
	sym, err := t.attributeToSymbol(pn)
	if err != nil {
		return nil, err
	}
	merger := "merge_option_procs"
	if isTemplateName(e.Name) {
		merger = "merge_template_parameter_procs"
	}
	return item.code(merger + "(").splice(proc).code(", parameters[" + sym + "])"), nil
}

// templateProc renders the proc supplying one template parameter. el may be
// nil when the group only has modifiers.
func (t *Template) templateProc(el *Element, modifiers []*Element, sc defScope) (*erb, error) {
	var entries []*erb
	for _, m := range modifiers {
		_, mod, _ := strings.Cut(m.Name, ".")
		mod, _, _ = strings.Cut(mod, ".")
		if !templateModifiers[mod] {
			return nil, t.errorf(ErrInvalidAttribute, m, "invalid template parameter modifier: %s", m.Name)
		}
		body, err := t.childrenERB(m, sc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, newERB().code(":_"+mod+" => proc { new_context { ").nest(body).code(" } }"))
	}

	if el != nil {
		for _, a := range el.Attrs {
			if err := t.checkAttributeName(el, a.Name); err != nil {
				return nil, err
			}
			if a.Name == "param" {
				continue
			}
			v, err := t.attributeToRuby(a.Value)
			if err != nil {
				return nil, err
			}
			entries = append(entries, newERB().code(rubySymbol(a.Name)+" => "+v))
		}
	}

	lead := el
	if lead == nil {
		lead = modifiers[0]
	}
	if isTemplateName(lead.Name) {
		params := newERB().code("{}")
		if el != nil {
			var err error
			if params, err = t.tagParameters(el, sc); err != nil {
				return nil, err
			}
		}
		return newERB().code("proc { [{").splice(joinERB(entries, ", ")).code("}, ").splice(params).code("] }"), nil
	}

	if el != nil && el.HasEndTag {
		body, err := t.childrenERB(el, sc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, newERB().code(":tagbody => proc { new_context { ").nest(body).code(" } }"))
	}
	return newERB().code("proc { {").splice(joinERB(entries, ", ")).code("} }"), nil
}

func (t *Template) tagCall(el *Element, sc defScope) (*erb, error) {
	name := Unreserve(el.DrymlName())
	pn, hasParam, err := t.extractParamName(el)
	if err != nil {
		return nil, err
	}
	attrs, err := t.tagAttributes(el)
	if err != nil {
		return nil, err
	}
	polymorphic := el.HasAttr("for_type")

	var call string
	switch {
	case hasParam:
		sym, err := t.attributeToSymbol(pn)
		if err != nil {
			return nil, err
		}
		target := rubySymbol(name)
		if polymorphic {
			target = "find_polymorphic_tag(" + rubySymbol(name) + ")"
		}
		call = "merge_and_call(" + target + ", " + attrs + ", parameters[" + sym + "])"
	case polymorphic:
		call = "send(find_polymorphic_tag(" + rubySymbol(name) + ")" + optionalArg(attrs) + ")"
	default:
		call = name + "(" + strings.TrimPrefix(optionalArg(attrs), ", ") + ")"
	}

	_, isPart := el.Attr("part")
	nl := tagNewlines(el)
	if len(el.Children) == 0 {
		if isPart {
			return t.partSpan(el, newERB().expr(call))
		}
		return newERB().expr(call + nl), nil
	}

	children, err := t.childrenERB(el, sc)
	if err != nil {
		return nil, err
	}
	if isPart {
		return t.partSpan(el, newERB().code("_output("+call+" do").nest(children).stmt("end)"))
	}
	return newERB().code("_output(" + call + " do" + nl).nest(children).stmt("end)"), nil
}

// optionalArg renders attrs as a trailing argument, omitted when empty.
func optionalArg(attrs string) string {
	if attrs == "{}" {
		return ""
	}
	return ", " + attrs
}
