package dryml

import "strings"

// TagRegistry tells the compiler which tag names are plain markup. Such
// tags are copied to the output unless they carry a param attribute.
type TagRegistry interface {
	IsStatic(name string) bool
}

// StaticTagSet is a TagRegistry backed by a set of names.
type StaticTagSet map[string]struct{}

// NewStaticTagSet builds a set from names, ignoring blanks.
func NewStaticTagSet(names ...string) StaticTagSet {
	s := StaticTagSet{}
	s.Add(names...)
	return s
}

// Add marks names as static.
func (s StaticTagSet) Add(names ...string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
}

// IsStatic reports whether name is plain markup.
func (s StaticTagSet) IsStatic(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set's members in no particular order.
func (s StaticTagSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	return out
}

var htmlTagNames = strings.Fields(`
a abbr acronym address applet area article aside audio b base basefont bdi bdo
big blockquote body br button canvas caption center cite code col colgroup
datalist dd del details dfn dialog dir div dl dt em embed fieldset figcaption
figure font footer form frame frameset h1 h2 h3 h4 h5 h6 head header hgroup hr
html i iframe img input ins kbd label legend li link main map mark menu meta
meter nav noframes noscript object ol optgroup option output p param pre
progress q rp rt ruby s samp script section select small source span strike
strong style sub summary sup table tbody td textarea tfoot th thead time title
tr track tt u ul var video wbr
`)

// DefaultStaticTags returns the HTML element names.
func DefaultStaticTags() StaticTagSet {
	return NewStaticTagSet(htmlTagNames...)
}
