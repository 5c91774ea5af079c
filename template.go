package dryml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// Environment is the kind of source a Template is compiled as.
type Environment int

const (
	// TagLibrary sources only contribute definitions and directives.
	TagLibrary Environment = iota
	// Page sources also render their top-level markup.
	Page
)

func (e Environment) String() string {
	if e == Page {
		return "page"
	}
	return "taglib"
}

// Template compiles one DRYML source into build instructions. A Template is
// not safe for concurrent use; the Compiler creates one per build.
type Template struct {
	src  string
	env  Environment
	path string
	tags TagRegistry
	log  logr.Logger

	scriptlets   *ScriptletTable
	xmlsrc       string
	last         *Element
	instructions Instructions
}

// TemplateOption configures a Template.
type TemplateOption func(*Template)

// WithTags sets the registry that decides which tags are static markup.
func WithTags(r TagRegistry) TemplateOption {
	return func(t *Template) {
		t.tags = r
	}
}

// WithTemplateLogger sets the logger used for debug_source output.
func WithTemplateLogger(l logr.Logger) TemplateOption {
	return func(t *Template) {
		t.log = l
	}
}

// NewTemplate prepares src for compilation. path is only used in error
// messages and instructions.
func NewTemplate(src string, env Environment, path string, opts ...TemplateOption) *Template {
	t := &Template{
		src:  src,
		env:  env,
		path: path,
		tags: DefaultStaticTags(),
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Path returns the path used in errors and instructions.
func (t *Template) Path() string { return t.path }

// Environment returns the environment the source is compiled as.
func (t *Template) Environment() Environment { return t.env }

// Modules returns the module imports of the last Process call.
func (t *Template) Modules() []ModuleRef { return t.instructions.Modules() }

// Process compiles the source and returns the generated body together with
// the build instructions. Pages end with a RenderPage instruction carrying
// the body; for tag libraries the body is only informative.
func (t *Template) Process() (string, []Instruction, error) {
	t.instructions.reset()
	t.last = nil
	body, err := t.processSrc()
	if err != nil {
		t.instructions.reset()
		return "", nil, err
	}
	if t.env == Page {
		t.instructions.addRenderPage(body)
	}
	return body, t.instructions.List(), nil
}

func (t *Template) processSrc() (string, error) {
	src, table := ExtractScriptlets(t.src)
	t.scriptlets = table
	t.xmlsrc = rootStartTag + src + rootEndTag

	root, err := parseDocument(src)
	if err != nil {
		var me *markupError
		if errors.As(err, &me) {
			return "", &CompileError{Kind: ErrSyntax, Message: me.msg, Path: t.path, Line: lineOf(t.xmlsrc, me.offset)}
		}
		return "", err
	}
	out, err := t.childrenERB(root, defScope{})
	if err != nil {
		return "", err
	}
	return t.restore(out), nil
}

func (t *Template) restore(e *erb) string {
	return t.scriptlets.Restore(e.String())
}

func (t *Template) childrenERB(el *Element, sc defScope) (*erb, error) {
	out := newERB()
	for _, n := range el.Children {
		part, err := t.nodeERB(n, sc)
		if err != nil {
			return nil, err
		}
		out.nest(part)
	}
	return out, nil
}

func (t *Template) nodeERB(n Node, sc defScope) (*erb, error) {
	if el, ok := n.(*Element); ok {
		return t.elementERB(el, sc)
	}
	// Text keeps its placeholders; comments and CDATA pass through whole.
	return newERB().text(n.Source()), nil
}

func (t *Template) elementERB(el *Element, sc defScope) (*erb, error) {
	kind := classify(el, t.tags)
	if kind == kindLegacyParam {
		return nil, t.errorf(ErrRemovedSyntax, el, "parameter tags (<%s>) are no more, wake up and smell the coffee", el.Name)
	}
	t.last = el

	switch kind {
	case kindInclude:
		if err := t.includeElement(el); err != nil {
			return nil, err
		}
		return newERB().text(tagNewlines(el)), nil
	case kindSetTheme:
		if err := t.setThemeElement(el); err != nil {
			return nil, err
		}
		return newERB().text(tagNewlines(el)), nil
	case kindDef:
		return t.defElement(el, sc)
	case kindTagbody:
		return t.tagbodyElement(el)
	case kindSet:
		return t.setElement(el)
	case kindTemplateCall:
		return t.templateCall(el, sc)
	case kindTagCall:
		return t.tagCall(el, sc)
	default:
		return t.staticElement(el, sc)
	}
}

// errorf builds a CompileError located at el, or at the element being
// generated when el is nil.
func (t *Template) errorf(kind error, el *Element, format string, args ...any) error {
	if el == nil {
		el = t.last
	}
	line := 1
	if el != nil {
		line = t.lineNum(el)
	}
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Path: t.path, Line: line}
}

func (t *Template) lineNum(el *Element) int {
	return lineOf(t.xmlsrc, el.Offset)
}

func (t *Template) requireToplevel(el *Element, msg string) error {
	if el.Parent == nil || !el.Parent.IsRoot() {
		if msg == "" {
			msg = "can only be at the top level"
		}
		return t.errorf(ErrPlacement, el, "<%s> %s", el.Name, msg)
	}
	return nil
}

// attrRule is a presence and format check for one attribute.
type attrRule struct {
	name     string
	format   interface{ MatchString(string) bool }
	optional bool
}

func (t *Template) requireAttributes(el *Element, rules ...attrRule) error {
	for _, r := range rules {
		v, ok := el.Attr(r.name)
		switch {
		case !ok && !r.optional:
			return t.errorf(ErrMissingAttribute, el, "missing %s attribute on <%s>", r.name, el.Name)
		case ok && r.format != nil && !r.format.MatchString(v):
			return t.errorf(ErrInvalidAttribute, el, `invalid %s="%s" attribute on <%s>`, r.name, v, el.Name)
		}
	}
	return nil
}

// attributeToRuby renders an attribute value as a host expression: code
// attributes are parenthesised, anything else becomes a string literal.
func (t *Template) attributeToRuby(v string) (string, error) {
	switch {
	case containsScriptlet(v):
		return "", t.errorf(ErrForbiddenScriptlet, nil, "erb scriptlet in attribute of defined tag (use #{ ... } instead)")
	case isCodeAttribute(v):
		return "(" + v[len(codeAttributePrefix):] + ")", nil
	case !strings.Contains(v, `"`):
		return `"` + v + `"`, nil
	case !strings.Contains(v, "'"):
		return "'" + v + "'", nil
	default:
		return "", t.errorf(ErrQuoting, nil, "invalid quote(s) in attribute value")
	}
}

// checkAttributeName rejects embedded code where an attribute name is
// turned into a hash key.
func (t *Template) checkAttributeName(el *Element, name string) error {
	if containsScriptlet(name) {
		return t.errorf(ErrForbiddenScriptlet, el, "erb scriptlet not allowed in attribute name of <%s>", el.Name)
	}
	return nil
}

// attributeToSymbol renders a parameter name as a symbol expression.
func (t *Template) attributeToSymbol(v string) (string, error) {
	if symbolRx.MatchString(v) {
		return ":" + v, nil
	}
	r, err := t.attributeToRuby(v)
	if err != nil {
		return "", err
	}
	return r + ".to_sym", nil
}

// tagNewlines is the newline padding that keeps generated lines aligned with
// the lines spanned by el's start tag.
func tagNewlines(el *Element) string {
	return strings.Repeat("\n", strings.Count(el.StartTag, "\n"))
}
