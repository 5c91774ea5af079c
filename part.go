package dryml

import "strings"

// partElement moves content into a named part method, queued as a Part
// instruction, and returns the call that renders it in place.
func (t *Template) partElement(el *Element, content *erb) (*erb, error) {
	if err := t.requireAttributes(el, attrRule{name: "part", format: nameRx}); err != nil {
		return nil, err
	}
	name, _ := el.Attr("part")
	domID := el.AttrOr("id", name)

	src := newERB().
		code("def " + name + "_part" + tagNewlines(el) + "; new_context do").
		nest(content).
		stmt("end; end")
	t.instructions.addPart(name, domID, t.restore(src), t.lineNum(el))

	id, err := t.attributeToRuby(domID)
	if err != nil {
		return nil, err
	}
	return newERB().expr("call_part(" + id + ", " + rubySymbol(name) + ")" + strings.Repeat("\n", src.newlines())), nil
}

// partSpan renders a part around a tag call. The span carries the DOM id
// the part is refreshed by.
func (t *Template) partSpan(el *Element, content *erb) (*erb, error) {
	name, _ := el.Attr("part")
	id, err := t.attributeToRuby(el.AttrOr("id", name))
	if err != nil {
		return nil, err
	}
	call, err := t.partElement(el, content)
	if err != nil {
		return nil, err
	}
	return newERB().
		text("<span id='").expr(id).text("'>").
		nest(call).
		text("</span>"), nil
}
