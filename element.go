package dryml

import "strings"

// defaultAttributeValue is given to attributes written without a value,
// e.g. <foo merge_attrs/>.
const defaultAttributeValue = codeAttributePrefix + "true"

// Node is a node of the parsed markup tree: *Element, *Text, *Comment or *CData.
type Node interface {
	// Source is the verbatim source of the node. For elements it is the start tag.
	Source() string
	// Pos is the byte offset of the node in the wrapped document source.
	Pos() int
}

// Attr is a single attribute, in source order.
type Attr struct {
	Name  string
	Value string
}

// Element is a markup element.
type Element struct {
	// Name is the tag name as written, case preserved.
	Name string
	// Attrs is the ordered attribute list. Values are verbatim.
	Attrs []Attr
	// Children in document order.
	Children []Node
	// Parent is nil only for the synthetic root. It does not own the element.
	Parent *Element
	// Offset is the byte offset of the start tag.
	Offset int
	// StartTag is the verbatim start tag source.
	StartTag string
	// HasEndTag is false for self-closing and void elements.
	HasEndTag bool
}

func (e *Element) Source() string { return e.StartTag }
func (e *Element) Pos() int       { return e.Offset }

// Attr returns the value of attribute name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the value of attribute name, or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the start tag carries attribute name.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// DrymlName is the name the compiler dispatches on: the part before a ':'
// for elements written as <tag:field>.
func (e *Element) DrymlName() string {
	if i := strings.IndexByte(e.Name, ':'); i > 0 {
		return e.Name[:i]
	}
	return e.Name
}

// FieldName returns the field of a <tag:field> element.
func (e *Element) FieldName() (string, bool) {
	if i := strings.IndexByte(e.Name, ':'); i > 0 {
		return e.Name[i+1:], true
	}
	return "", false
}

// Elements returns the element children.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// IsRoot reports whether e is the synthetic document root.
func (e *Element) IsRoot() bool {
	return e.Parent == nil
}

// FindAncestor walks up the parent links and returns the first ancestor
// matching pred. The synthetic root is never returned.
func (e *Element) FindAncestor(pred func(*Element) bool) *Element {
	for p := e.Parent; p != nil && !p.IsRoot(); p = p.Parent {
		if pred(p) {
			return p
		}
	}
	return nil
}

// Text is character data, including scriptlet placeholders.
type Text struct {
	Data   string
	Offset int
}

func (t *Text) Source() string { return t.Data }
func (t *Text) Pos() int       { return t.Offset }

// IsBlank reports whether the text is only whitespace.
func (t *Text) IsBlank() bool {
	return strings.TrimSpace(t.Data) == ""
}

// Comment is a <!-- ... --> comment, delimiters included.
type Comment struct {
	Data   string
	Offset int
}

func (c *Comment) Source() string { return c.Data }
func (c *Comment) Pos() int       { return c.Offset }

// CData is a <![CDATA[ ... ]]> section, delimiters included.
type CData struct {
	Data   string
	Offset int
}

func (c *CData) Source() string { return c.Data }
func (c *CData) Pos() int       { return c.Offset }

// Content returns the section without its delimiters.
func (c *CData) Content() string {
	s := strings.TrimPrefix(c.Data, cdataStart)
	return strings.TrimSuffix(s, cdataEnd)
}
