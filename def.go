package dryml

import (
	"strings"
)

// reservedDefAttrs are names the generated method already binds.
var reservedDefAttrs = map[string]bool{"with": true, "field": true, "this": true}

// defElement compiles a tag or template definition. A fresh top-level
// definition leaves only newline padding at the call site and is queued as
// a Def instruction; a def nested directly inside another def redefines the
// tag at runtime and is emitted inline.
func (t *Template) defElement(el *Element, sc defScope) (*erb, error) {
	redefine := el.Parent != nil && el.Parent.Name == "def"
	if !redefine {
		if err := t.requireToplevel(el, "must be at the top-level or directly inside a <def>"); err != nil {
			return nil, err
		}
	}
	if err := t.requireAttributes(el,
		attrRule{name: "tag", format: nameRx},
		attrRule{name: "attrs", format: attrsSpecRx, optional: true},
		attrRule{name: "alias_of", format: nameRx, optional: true},
		attrRule{name: "alias_current", format: nameRx, optional: true},
	); err != nil {
		return nil, err
	}

	unsafeName, _ := el.Attr("tag")
	name := Unreserve(unsafeName)
	aliasOf, hasAliasOf := el.Attr("alias_of")
	aliasCurrent, hasAliasCurrent := el.Attr("alias_current")
	if hasAliasOf && hasAliasCurrent {
		return nil, t.errorf(ErrNameConflict, el, "def cannot have both alias_of and alias_current")
	}
	if hasAliasOf && len(el.Children) > 0 {
		return nil, t.errorf(ErrPlacement, el, "def with alias_of must be empty")
	}

	reAlias := newERB()
	if hasAliasOf || hasAliasCurrent {
		oldName, newName := aliasOf, name
		if hasAliasCurrent {
			oldName, newName = name, aliasCurrent
		}
		if redefine {
			reAlias.stmt("self.class.send(:alias_method, " + rubySymbol(newName) + ", " + rubySymbol(oldName) + ")")
		} else {
			t.instructions.addAlias(oldName, newName)
		}
	}
	if hasAliasOf {
		return reAlias.pad(strings.Count(el.StartTag, "\n")), nil
	}

	attrs := splitAttrsSpec(el.AttrOr("attrs", ""))
	var invalid []string
	for _, a := range attrs {
		if reservedDefAttrs[a] {
			invalid = append(invalid, a)
		}
	}
	if len(invalid) > 0 {
		return nil, t.errorf(ErrInvalidAttribute, el, "invalid attrs in def: %s", strings.Join(invalid, ", "))
	}

	body, err := t.tagMethodBody(el, unsafeName, attrs, sc)
	if err != nil {
		return nil, err
	}
	src := t.methodSource(name, isTemplateName(name), redefine, reAlias, body, sc)
	if !redefine {
		src.stmt("_register_tag_attrs(" + rubySymbol(name) + ", " + rubySymbolList(attrs) + ")")
	}
	if el.HasAttr("debug_source") {
		t.log.V(1).Info("def source", "tag", name, "path", t.path, "src", t.restore(src))
	}
	if redefine {
		return src, nil
	}
	t.instructions.addDef(name, t.restore(src), t.lineNum(el))
	return newERB().pad(src.newlines()), nil
}

// tagMethodBody binds the declared attrs as locals and renders the children
// inside a tag context. Nested defs see the composite definition name.
func (t *Template) tagMethodBody(el *Element, tag string, attrs []string, sc defScope) (*erb, error) {
	var locals strings.Builder
	for _, a := range attrs {
		locals.WriteString(Unreserve(a) + ", ")
	}
	locals.WriteString("attributes, = _tag_locals(__attributes__, " + rubySymbolList(attrs) + ")")

	children, err := t.childrenERB(el, sc.enter(tag))
	if err != nil {
		return nil, err
	}
	children = withRedefines(el, children)

	return newERB().
		code("_tag_context(__attributes__, __block__) do |tagbody| " + locals.String() + tagNewlines(el)).
		nest(children).
		code("_erbout; end"), nil
}

// withRedefines brackets the body of a def whose direct children redefine
// other tags, so the redefinitions are scoped to this call.
func withRedefines(el *Element, body *erb) *erb {
	var names []string
	for _, c := range el.Elements() {
		if c.Name == "def" {
			names = append(names, Unreserve(c.AttrOr("tag", "")))
		}
	}
	if len(names) == 0 {
		return body
	}
	return newERB().
		stmt("self.class.start_redefine_block(" + rubyStringList(names) + ")").
		nest(body).
		stmt("self.class.end_redefine_block")
}

// methodSource wraps body into a method definition, or into a runtime
// redefinition when the def is nested. Templates also take parameters.
func (t *Template) methodSource(name string, template, redefine bool, reAlias, body *erb, sc defScope) *erb {
	out := newERB().splice(reAlias)
	if !redefine {
		params := "(__attributes__={}, &__block__)"
		if template {
			params = "(__attributes__={}, parameters={}, &__block__)"
		}
		return out.
			code("def " + name + params + "; ").
			splice(body).
			stmt("; end")
	}

	procArgs := "|__attributes__, __block__|"
	if template {
		procArgs = "|__attributes__, parameters, __block__|"
	}
	out.code("self.class.redefine_tag(" + rubySymbol(name) + ", proc {" + procArgs + " ")
	if sc.inDef() {
		out.code(sc.defName + "_tagbody = tagbody; ")
	}
	out.code("__res__ = ").splice(body).code(" ")
	if sc.inDef() {
		out.code("; tagbody = " + sc.defName + "_tagbody; __res__; ")
	}
	return out.stmt("});")
}
