package dryml

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	placeholderPrefix = "[![DRYML-ERB"
	placeholderSuffix = "]!]"
)

var (
	scriptletRx   = regexp.MustCompile(`(?s)<%(.*?)%>`)
	placeholderRx = regexp.MustCompile(`\[!\[DRYML-ERB(\d+)\s*\]!\]`)
)

// ScriptletTable maps placeholder ids to the embedded code they replaced.
// Ids are assigned in first-seen order starting at 1.
type ScriptletTable struct {
	scriptlets []string
}

// ExtractScriptlets replaces every <% ... %> fragment of src with a
// placeholder that the markup parser treats as plain text. Each placeholder
// carries as many newlines as its fragment so line numbers are unchanged.
func ExtractScriptlets(src string) (string, *ScriptletTable) {
	table := &ScriptletTable{}
	out := scriptletRx.ReplaceAllStringFunc(src, func(m string) string {
		code := m[2 : len(m)-2]
		table.scriptlets = append(table.scriptlets, code)
		return placeholder(len(table.scriptlets), strings.Count(code, "\n"))
	})
	return out, table
}

func placeholder(id, newlines int) string {
	return placeholderPrefix + strconv.Itoa(id) + strings.Repeat("\n", newlines) + placeholderSuffix
}

// Len returns the number of extracted scriptlets.
func (t *ScriptletTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.scriptlets)
}

// Lookup returns the code of scriptlet id.
func (t *ScriptletTable) Lookup(id int) (string, bool) {
	if id < 1 || id > t.Len() {
		return "", false
	}
	return t.scriptlets[id-1], true
}

// Restore puts the original scriptlets back into fragment. Placeholders with
// unknown ids are left alone.
func (t *ScriptletTable) Restore(fragment string) string {
	if t.Len() == 0 {
		return fragment
	}
	return placeholderRx.ReplaceAllStringFunc(fragment, func(m string) string {
		code, ok := t.Lookup(placeholderID(m))
		if !ok {
			return m
		}
		return "<%" + code + "%>"
	})
}

// Interpolate turns a literal attribute value into the body of a host
// string literal. Literal runs go through quote and <%= ... %> placeholders
// become #{...} interpolations. ok is false when any other kind of
// scriptlet appears, as it cannot live inside a string.
func (t *ScriptletTable) Interpolate(value string, quote func(string) string) (out string, ok bool) {
	var b strings.Builder
	ok = true
	last := 0
	for _, loc := range placeholderRx.FindAllStringIndex(value, -1) {
		b.WriteString(quote(value[last:loc[0]]))
		last = loc[1]
		code, found := t.Lookup(placeholderID(value[loc[0]:loc[1]]))
		if !found || !strings.HasPrefix(code, "=") {
			ok = false
			b.WriteString(value[loc[0]:loc[1]])
			continue
		}
		b.WriteString("#{" + strings.TrimSpace(code[1:]) + "}")
	}
	b.WriteString(quote(value[last:]))
	return b.String(), ok
}

func placeholderID(m string) int {
	sub := placeholderRx.FindStringSubmatch(m)
	if sub == nil {
		return 0
	}
	id, err := strconv.Atoi(sub[1])
	if err != nil {
		return 0
	}
	return id
}

func containsScriptlet(s string) bool {
	return strings.Contains(s, placeholderPrefix)
}
