package dryml

import "strings"

type segmentKind int

const (
	segText segmentKind = iota
	segCode
	segExpr
	segBreak
)

type segment struct {
	kind segmentKind
	src  string
}

// erb is the intermediate form of generated source. Consecutive code pieces
// form a single <% %> block until a text segment, an expression or a break
// closes it, so a code expression can be split around an embedded body.
type erb struct {
	segs []segment
}

func newERB() *erb {
	return &erb{}
}

// text appends literal output.
func (e *erb) text(s string) *erb {
	if s != "" {
		e.segs = append(e.segs, segment{kind: segText, src: s})
	}
	return e
}

// code appends a piece of the currently open code block.
func (e *erb) code(s string) *erb {
	e.segs = append(e.segs, segment{kind: segCode, src: s})
	return e
}

// stmt appends a code piece and closes the block.
func (e *erb) stmt(s string) *erb {
	return e.code(s).brk()
}

// expr appends a self-contained output expression.
func (e *erb) expr(s string) *erb {
	e.segs = append(e.segs, segment{kind: segExpr, src: s})
	return e
}

func (e *erb) brk() *erb {
	e.segs = append(e.segs, segment{kind: segBreak})
	return e
}

// splice continues e with o: a leading code piece of o joins e's open block.
func (e *erb) splice(o *erb) *erb {
	if o != nil {
		e.segs = append(e.segs, o.segs...)
	}
	return e
}

// nest appends o as a complete unit of output. Any open block is closed on
// both sides, even when o is empty.
func (e *erb) nest(o *erb) *erb {
	return e.brk().splice(o).brk()
}

// pad appends an empty code block spanning n lines. It stands in for
// source that was moved out of the fragment so later lines keep their
// numbers.
func (e *erb) pad(n int) *erb {
	if n > 0 {
		e.stmt(strings.Repeat("\n", n))
	}
	return e
}

func (e *erb) String() string {
	var b strings.Builder
	var block strings.Builder
	open := false
	flush := func() {
		if !open {
			return
		}
		b.WriteString("<% ")
		b.WriteString(strings.Trim(block.String(), " "))
		b.WriteString(" %>")
		block.Reset()
		open = false
	}
	for _, s := range e.segs {
		switch s.kind {
		case segText:
			flush()
			b.WriteString(s.src)
		case segCode:
			open = true
			block.WriteString(s.src)
		case segExpr:
			flush()
			b.WriteString("<%= ")
			b.WriteString(strings.Trim(s.src, " "))
			b.WriteString(" %>")
		case segBreak:
			flush()
		}
	}
	flush()
	return b.String()
}

// newlines counts the line breaks of the rendered fragment.
func (e *erb) newlines() int {
	return strings.Count(e.String(), "\n")
}

// joinERB splices items together with sep as a code piece between them.
func joinERB(items []*erb, sep string) *erb {
	out := newERB()
	for i, item := range items {
		if i > 0 {
			out.code(sep)
		}
		out.splice(item)
	}
	return out
}
