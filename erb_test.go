package dryml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestERBString(t *testing.T) {
	inner := newERB().text("body")
	e := newERB().code("a(").code("b do ").nest(inner).stmt(" end)").expr(" x ").text("tail")
	assert.Equal(t, "<% a(b do %>body<% end) %><%= x %>tail", e.String())
}

func TestERBNestSplitsBlocks(t *testing.T) {
	e := newERB().code("open").nest(newERB()).code("close")
	assert.Equal(t, "<% open %><% close %>", e.String())

	e = newERB().code("one").splice(newERB().code(" two"))
	assert.Equal(t, "<% one two %>", e.String())
}

func TestERBPad(t *testing.T) {
	assert.Equal(t, "", newERB().pad(0).String())
	e := newERB().pad(2)
	assert.Equal(t, "<% \n\n %>", e.String())
	assert.Equal(t, 2, e.newlines())
}

func TestJoinERB(t *testing.T) {
	items := []*erb{newERB().code("a"), newERB().code("b"), newERB().code("c")}
	assert.Equal(t, "<% a, b, c %>", joinERB(items, ", ").String())
	assert.Equal(t, "", joinERB(nil, ", ").String())
}

func TestInstructionKindText(t *testing.T) {
	b, err := Part.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "part", string(b))

	var k InstructionKind
	require.NoError(t, k.UnmarshalText([]byte("alias_method")))
	assert.Equal(t, AliasMethod, k)
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
	assert.Equal(t, "InstructionKind(42)", InstructionKind(42).String())
}
