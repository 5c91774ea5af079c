package dryml

import (
	"fmt"
	"strings"
)

func (t *Template) includeElement(el *Element) error {
	if err := t.requireToplevel(el, ""); err != nil {
		return err
	}
	if err := t.requireAttributes(el, attrRule{name: "as", format: nameRx, optional: true}); err != nil {
		return err
	}
	as := el.AttrOr("as", "")
	src, hasSrc := el.Attr("src")
	module, hasModule := el.Attr("module")
	switch {
	case hasSrc && hasModule:
		return t.errorf(ErrNameConflict, el, "<include> cannot have both src and module")
	case hasSrc:
		t.instructions.addInclude(src, as)
	case hasModule:
		t.instructions.addModule(module, as)
	default:
		return t.errorf(ErrMissingAttribute, el, "missing src or module attribute on <include>")
	}
	return nil
}

func (t *Template) setThemeElement(el *Element) error {
	if err := t.requireAttributes(el, attrRule{name: "name", format: nameRx}); err != nil {
		return err
	}
	name, _ := el.Attr("name")
	t.instructions.addSetTheme(name)
	return nil
}

// setElement assigns page locals, one statement per attribute.
func (t *Template) setElement(el *Element) (*erb, error) {
	out := newERB()
	for _, a := range el.Attrs {
		if !nameRx.MatchString(a.Name) {
			return nil, t.errorf(ErrNameConflict, el, "invalid name in set: %s", a.Name)
		}
		v, err := t.attributeToRuby(a.Value)
		if err != nil {
			return nil, err
		}
		out.stmt(fmt.Sprintf("%s = %s;", a.Name, v))
	}
	return out.text(tagNewlines(el)), nil
}

func (t *Template) tagbodyElement(el *Element) (*erb, error) {
	if el.FindAncestor(func(e *Element) bool { return e.Name == "def" }) == nil {
		return nil, t.errorf(ErrPlacement, el, "tagbody can only appear inside a <def>")
	}
	if el.FindAncestor(func(e *Element) bool { return e.HasAttr("part") }) != nil {
		return nil, t.errorf(ErrPlacement, el, "tagbody cannot appear inside a part")
	}
	var args []string
	for _, name := range []string{"with", "field"} {
		v, ok := el.Attr(name)
		if !ok {
			continue
		}
		r, err := t.attributeToRuby(v)
		if err != nil {
			return nil, err
		}
		args = append(args, rubySymbol(name)+" => "+r)
	}
	els := "nil"
	if v, ok := el.Attr("else"); ok {
		r, err := t.attributeToRuby(v)
		if err != nil {
			return nil, err
		}
		els = r
	}
	return newERB().expr(fmt.Sprintf("tagbody ? tagbody.call({ %s }) : %s%s", strings.Join(args, ", "), els, tagNewlines(el))), nil
}
