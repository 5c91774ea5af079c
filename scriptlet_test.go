package dryml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractScriptlets(t *testing.T) {
	src := "<p><%= a %></p>\n<% if x\n  y\nend %>"
	out, table := ExtractScriptlets(src)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, "<p>[![DRYML-ERB1]!]</p>\n[![DRYML-ERB2\n\n]!]", out)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(out, "\n"))

	code, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "= a ", code)

	_, ok = table.Lookup(3)
	assert.False(t, ok)
	_, ok = table.Lookup(0)
	assert.False(t, ok)
}

func TestRestoreRoundTrip(t *testing.T) {
	src := "<div>\n<%# c %><%= x\n%>\n<% y %>\n</div>"
	out, table := ExtractScriptlets(src)
	assert.Equal(t, src, table.Restore(out))
}

func TestRestoreUnknownPlaceholder(t *testing.T) {
	_, table := ExtractScriptlets("<% a %>")
	assert.Equal(t, "x [![DRYML-ERB7]!] <% a %>", table.Restore("x [![DRYML-ERB7]!] [![DRYML-ERB1]!]"))

	var empty *ScriptletTable
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, "[![DRYML-ERB1]!]", empty.Restore("[![DRYML-ERB1]!]"))
}

func TestInterpolate(t *testing.T) {
	value, table := ExtractScriptlets(`a "b" <%= user.name %> c`)

	out, ok := table.Interpolate(value, escapeDoubleQuotes)
	require.True(t, ok)
	assert.Equal(t, `a \"b\" #{user.name} c`, out)

	value, table = ExtractScriptlets(`a <% user.name %>`)
	_, ok = table.Interpolate(value, escapeDoubleQuotes)
	assert.False(t, ok)

	out, ok = table.Interpolate("plain", escapeDoubleQuotes)
	require.True(t, ok)
	assert.Equal(t, "plain", out)
}
