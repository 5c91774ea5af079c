package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/dangdungcntt/go-dryml"
)

type OutputFormat int

const (
	OutputHuman OutputFormat = iota
	OutputJSON
	OutputYAML
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "":
		return OutputHuman, nil
	case "json":
		return OutputJSON, nil
	case "yaml":
		return OutputYAML, nil
	default:
		return OutputHuman, fmt.Errorf("invalid output format: %s", s)
	}
}

func (f OutputFormat) String() string {
	switch f {
	case OutputHuman:
		return "human"
	case OutputJSON:
		return "json"
	case OutputYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Highlight applies the heading colour.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, f OutputFormat, v any) error {
	switch f {
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// PrintResults writes compile results in format f. Human output lists the
// instructions of each template and, with showSource, the generated source.
func PrintResults(w io.Writer, f OutputFormat, results []*dryml.Result, showSource bool) error {
	if f != OutputHuman {
		if !showSource {
			trimmed := make([]*dryml.Result, len(results))
			for i, r := range results {
				c := *r
				c.Source = ""
				trimmed[i] = &c
			}
			results = trimmed
		}
		return Encode(w, f, results)
	}

	for _, r := range results {
		from := ""
		if r.FromCache {
			from = color.HiBlackString(" (from cache)")
		}
		fmt.Fprintf(w, "%s %s%s in %s\n", color.GreenString("compiled"), Highlight("%s", r.Path), from, r.Duration)
		for _, in := range r.Instructions {
			fmt.Fprintf(w, "  %-14s %s\n", in.Kind, describe(in))
		}
		if showSource && r.Source != "" {
			fmt.Fprintln(w, numberLines(r.Source))
		}
	}
	return nil
}

func describe(in dryml.Instruction) string {
	switch in.Kind {
	case dryml.Def:
		return fmt.Sprintf("%s (line %d)", in.Name, in.Line)
	case dryml.Part:
		return fmt.Sprintf("%s id=%s (line %d)", in.Name, in.ID, in.Line)
	case dryml.Include, dryml.ModuleImport:
		if in.As != "" {
			return in.Name + " as " + in.As
		}
		return in.Name
	case dryml.AliasMethod:
		return in.OldName + " -> " + in.NewName
	case dryml.RenderPage:
		return fmt.Sprintf("%d lines", strings.Count(in.Src, "\n")+1)
	default:
		return in.Name
	}
}

func numberLines(src string) string {
	var b strings.Builder
	for i, line := range strings.Split(src, "\n") {
		fmt.Fprintf(&b, "  %s %s\n", color.HiBlackString("%4d |", i+1), line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
