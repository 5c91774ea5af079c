package dryml

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const (
	rootElementName = "dryml_page"
	rootStartTag    = "<" + rootElementName + ">"
	rootEndTag      = "</" + rootElementName + ">"

	cdataStart = "<![CDATA["
	cdataEnd   = "]]>"
)

var (
	// The html tokenizer switches to raw text after these start tags. Masking
	// the first letter keeps their content parsed as markup.
	rawTextTagRx = regexp.MustCompile(`(?i)</?(iframe|noembed|noframes|noscript|plaintext|script|style|textarea|title|xmp)\b`)
	legacyTagRx  = regexp.MustCompile(`<:[A-Za-z_][A-Za-z0-9_.]*`)
)

// voidElements never have content, whether or not they are self-closed.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// markupError is a parse failure at a byte offset of the wrapped document.
type markupError struct {
	offset int
	msg    string
}

func (e *markupError) Error() string { return e.msg }

// treeBuilder turns the token stream of the html tokenizer into an element
// tree that stays as close to the source as possible. The tokenizer only
// delimits tokens; names, attributes and text are sliced from the original
// source so case and spelling survive.
type treeBuilder struct {
	src   string
	base  int
	pos   int
	root  *Element
	stack []*Element
}

// parseDocument parses src as the content of a synthetic <dryml_page> root.
// Offsets are relative to rootStartTag + src + rootEndTag.
func parseDocument(src string) (*Element, error) {
	b := &treeBuilder{
		src:  src,
		base: len(rootStartTag),
		root: &Element{Name: rootElementName, StartTag: rootStartTag, HasEndTag: true},
	}
	masked := rawTextTagRx.ReplaceAllStringFunc(src, maskRawTextTag)
	z := html.NewTokenizer(strings.NewReader(masked))
	z.AllowCDATA(true)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, &markupError{offset: b.base + b.pos, msg: z.Err().Error()}
		}
		start := b.pos
		b.pos += len(z.Raw())
		if b.pos > len(b.src) {
			b.pos = len(b.src)
		}
		if err := b.token(tt, b.src[start:b.pos], b.base+start); err != nil {
			return nil, err
		}
	}

	if len(b.stack) > 0 {
		open := b.stack[len(b.stack)-1]
		return nil, &markupError{offset: open.Offset, msg: fmt.Sprintf("missing end tag for <%s>", open.Name)}
	}
	return b.root, nil
}

func maskRawTextTag(m string) string {
	i := 1
	if m[i] == '/' {
		i++
	}
	return m[:i] + "q" + m[i+1:]
}

func (b *treeBuilder) top() *Element {
	if n := len(b.stack); n > 0 {
		return b.stack[n-1]
	}
	return b.root
}

func (b *treeBuilder) add(n Node) {
	parent := b.top()
	if el, ok := n.(*Element); ok {
		el.Parent = parent
	}
	parent.Children = append(parent.Children, n)
}

func (b *treeBuilder) token(tt html.TokenType, raw string, offset int) error {
	switch tt {
	case html.StartTagToken, html.SelfClosingTagToken:
		name, attrs := scanStartTag(raw)
		el := &Element{Name: name, Attrs: attrs, Offset: offset, StartTag: raw}
		b.add(el)
		if tt == html.StartTagToken && !voidElements[name] {
			b.stack = append(b.stack, el)
		}

	case html.EndTagToken:
		name := scanEndTagName(raw)
		if voidElements[name] {
			return nil
		}
		top := b.top()
		if top == b.root {
			return &markupError{offset: offset, msg: fmt.Sprintf("unexpected end tag </%s>", name)}
		}
		if top.Name != name {
			return &markupError{offset: offset, msg: fmt.Sprintf("end tag </%s> does not match <%s>", name, top.Name)}
		}
		top.HasEndTag = true
		b.stack = b.stack[:len(b.stack)-1]

	case html.TextToken:
		if strings.HasPrefix(raw, cdataStart) {
			b.add(&CData{Data: raw, Offset: offset})
			return nil
		}
		b.text(raw, offset)

	case html.CommentToken:
		if strings.HasPrefix(raw, "<!--") {
			b.add(&Comment{Data: raw, Offset: offset})
			return nil
		}
		b.text(raw, offset)

	default:
		b.text(raw, offset)
	}
	return nil
}

// text adds character data. A removed <:param> tag is not a tag to the
// tokenizer, so it is surfaced as an element for the compiler to reject.
func (b *treeBuilder) text(raw string, offset int) {
	loc := legacyTagRx.FindStringIndex(raw)
	if loc == nil {
		b.add(&Text{Data: raw, Offset: offset})
		return
	}
	if loc[0] > 0 {
		b.add(&Text{Data: raw[:loc[0]], Offset: offset})
	}
	tag := raw[loc[0]:loc[1]]
	b.add(&Element{Name: tag[1:], Offset: offset + loc[0], StartTag: tag})
	if loc[1] < len(raw) {
		b.add(&Text{Data: raw[loc[1]:], Offset: offset + loc[1]})
	}
}

func isTagSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f'
}

// scanStartTag splits a raw start tag into name and attributes, following
// the tokenizer's rules for where names, keys and values end.
func scanStartTag(raw string) (string, []Attr) {
	s := strings.TrimPrefix(raw, "<")
	s = strings.TrimSuffix(s, ">")
	i := 0
	for i < len(s) && !isTagSpace(s[i]) && s[i] != '/' {
		i++
	}
	return s[:i], scanAttributes(s[i:])
}

func scanEndTagName(raw string) string {
	s := strings.TrimPrefix(raw, "</")
	i := 0
	for i < len(s) && !isTagSpace(s[i]) && s[i] != '/' && s[i] != '>' {
		i++
	}
	return s[:i]
}

func scanAttributes(s string) []Attr {
	var attrs []Attr
	i := 0
	for i < len(s) {
		for i < len(s) && (isTagSpace(s[i]) || s[i] == '/') {
			i++
		}
		if i >= len(s) {
			break
		}
		// A '=' at the start of a key is part of the key.
		j := i + 1
		for j < len(s) && !isTagSpace(s[j]) && s[j] != '/' && s[j] != '=' {
			j++
		}
		key := s[i:j]
		i = j
		for i < len(s) && isTagSpace(s[i]) {
			i++
		}
		if i >= len(s) || s[i] != '=' {
			attrs = append(attrs, Attr{Name: key, Value: defaultAttributeValue})
			continue
		}
		i++
		for i < len(s) && isTagSpace(s[i]) {
			i++
		}
		var val string
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			q := s[i]
			end := strings.IndexByte(s[i+1:], q)
			if end < 0 {
				val = s[i+1:]
				i = len(s)
			} else {
				val = s[i+1 : i+1+end]
				i += end + 2
			}
		} else {
			j := i
			for j < len(s) && !isTagSpace(s[j]) {
				j++
			}
			val = strings.TrimSuffix(s[i:j], "/")
			i = j
		}
		attrs = append(attrs, Attr{Name: key, Value: val})
	}
	return attrs
}

// lineOf returns the 1-based line of offset in the wrapped document.
func lineOf(xmlsrc string, offset int) int {
	if offset > len(xmlsrc) {
		offset = len(xmlsrc)
	}
	if offset < 0 {
		offset = 0
	}
	return strings.Count(xmlsrc[:offset], "\n") + 1
}
