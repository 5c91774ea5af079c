package command_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/go-dryml"
	"github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/command"
)

func newRoot() (*bytes.Buffer, *bytes.Buffer, *command.CLI) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return out, errOut, command.NewCLI(out, errOut)
}

func TestNewRootCommand(t *testing.T) {
	_, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)

	assert.Equal(t, "drymlc", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotEmpty(t, cmd.Version)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.CompletionOptions.DisableDefaultCmd)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"compile", "serve", "version"}, names)
}

func TestNewRootCommand_HasOutputFlag(t *testing.T) {
	_, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)

	flag := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
	assert.Equal(t, "Output format. One of: (json | yaml)", flag.Usage)
	assert.Equal(t, flag, cmd.PersistentFlags().ShorthandLookup("o"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
}

func TestNewRootCommand_VersionFlag(t *testing.T) {
	_, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), cmd.Version)
}

func TestVersionCommand(t *testing.T) {
	out, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "drymlc "+command.Version+"\n", out.String())
}

func TestInvalidOutputFormat(t *testing.T) {
	_, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)
	cmd.SetArgs([]string{"version", "-o", "xml"})

	assert.EqualError(t, cmd.Execute(), "invalid output format: xml")
}

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestCompileCommand(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"pages/home.dryml":         `<card title="Home"/>`,
		"taglibs/app.taglib.dryml": `<def tag="card" attrs="title"><h1><%= title %></h1></def>`,
	})
	out, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)
	cmd.SetArgs([]string{"compile", "--root", dir, "-o", "json"})

	require.NoError(t, cmd.Execute())

	var results []dryml.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "/pages/home.dryml", results[0].Path)
	assert.Equal(t, dryml.RenderPage, results[0].Instructions[0].Kind)
	assert.Equal(t, "/taglibs/app.taglib.dryml", results[1].Path)
	assert.Equal(t, dryml.Def, results[1].Instructions[0].Kind)
	assert.Empty(t, results[0].Source)
}

func TestCompileCommandAsTagLibrary(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"lib.dryml": `<def tag="a"></def>`})
	out, _, cli := newRoot()
	cmd := command.NewRootCommand(cli)
	cmd.SetArgs([]string{"compile", "--root", dir, "--taglib", "--source", "-o", "json", "lib.dryml"})

	require.NoError(t, cmd.Execute())

	var results []dryml.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	require.Len(t, results[0].Instructions, 1)
	assert.Equal(t, dryml.Def, results[0].Instructions[0].Kind)
}

func TestCompileCommandReportsErrors(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"pages/bad.dryml": "<p>\n<tagbody/>\n</p>"})
	_, errOut, cli := newRoot()
	cmd := command.NewRootCommand(cli)
	cmd.SetArgs([]string{"compile", "--root", dir, "pages/bad.dryml"})

	err := cmd.Execute()
	require.ErrorIs(t, err, dryml.ErrPlacement)
	assert.Contains(t, errOut.String(), "tagbody can only appear inside a <def>")
	assert.Contains(t, errOut.String(), "/pages/bad.dryml:2")
	assert.Contains(t, errOut.String(), ">    2 | <tagbody/>")
}
