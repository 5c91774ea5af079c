package view_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/go-dryml"
	"github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/view"
)

func TestContextLines(t *testing.T) {
	src := "one\ntwo\nthree\nfour\nfive"

	got := view.ContextLines(src, 3, 1)
	assert.Equal(t, "     2 | two\n>    3 | three\n     4 | four\n", got)

	got = view.ContextLines(src, 1, 2)
	assert.Equal(t, ">    1 | one\n     2 | two\n     3 | three\n", got)
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]view.OutputFormat{"": view.OutputHuman, "json": view.OutputJSON, "YAML": view.OutputYAML} {
		got, err := view.ParseOutputFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := view.ParseOutputFormat("xml")
	assert.EqualError(t, err, "invalid output format: xml")
}

func TestParseLogLevel(t *testing.T) {
	level, err := view.ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, view.LogLevelWarn, level)

	_, err = view.ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestPrintResultsJSON(t *testing.T) {
	results := []*dryml.Result{{
		Path:         "/pages/home.dryml",
		Instructions: []dryml.Instruction{{Kind: dryml.RenderPage, Src: "<p/>", Line: 1}},
		Source:       "<p/>",
	}}
	var buf bytes.Buffer
	require.NoError(t, view.PrintResults(&buf, view.OutputJSON, results, false))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "/pages/home.dryml", got[0]["path"])
	assert.NotContains(t, got[0], "source")
	assert.Equal(t, "<p/>", results[0].Source, "results are not modified")
}

func TestPrintResultsHuman(t *testing.T) {
	results := []*dryml.Result{{
		Path: "/lib.taglib.dryml",
		Instructions: []dryml.Instruction{
			{Kind: dryml.Def, Name: "card", Line: 3},
			{Kind: dryml.Include, Name: "shared", As: "s"},
		},
		Source: "a\nb",
	}}
	var buf bytes.Buffer
	require.NoError(t, view.PrintResults(&buf, view.OutputHuman, results, true))

	out := buf.String()
	assert.Contains(t, out, "/lib.taglib.dryml")
	assert.Contains(t, out, "card (line 3)")
	assert.Contains(t, out, "shared as s")
	assert.Contains(t, out, " b\n")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	err := &dryml.CompileError{Kind: dryml.ErrPlacement, Message: "tagbody can only appear inside a <def>", Path: "/a.dryml", Line: 2}
	view.PrintError(&buf, err, "<p>\n<tagbody/>\n</p>")

	out := buf.String()
	assert.Contains(t, out, "tagbody can only appear inside a <def>")
	assert.Contains(t, out, "/a.dryml:2")
	assert.Contains(t, out, ">    2 | <tagbody/>")

	buf.Reset()
	view.PrintError(&buf, errors.New("boom"), "")
	assert.Contains(t, buf.String(), "boom")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := view.NewLogger(&buf, "json", view.LogLevelInfo)
	log.Info("compiled", "path", "/a.dryml")
	log.V(1).Info("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "compiled", entry["msg"])
	assert.Equal(t, "/a.dryml", entry["path"])

	buf.Reset()
	view.NewLogger(&buf, "text", view.LogLevelSilent).Info("nothing")
	assert.Empty(t, buf.String())

	view.NewLogger(&buf, "text", view.LogLevelDebug).V(1).Info("shown")
	assert.Contains(t, buf.String(), "shown")
}
