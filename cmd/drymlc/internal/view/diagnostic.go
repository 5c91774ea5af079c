package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dangdungcntt/go-dryml"
)

// ContextLines returns the lines around lineNumber, marking it with "> ".
func ContextLines(source string, lineNumber int, contextSize int) string {
	lines := strings.Split(source, "\n")

	startLine := lineNumber - contextSize - 1 // -1 for 0-based indexing
	if startLine < 0 {
		startLine = 0
	}
	endLine := lineNumber + contextSize
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var result strings.Builder
	for i := startLine; i < endLine; i++ {
		lineNum := i + 1
		prefix := "  "
		if lineNum == lineNumber {
			prefix = "> "
		}
		result.WriteString(fmt.Sprintf("%s%4d | %s\n", prefix, lineNum, lines[i]))
	}
	return result.String()
}

// PrintError reports err. For compile errors source, when known, is used to
// show the offending lines.
func PrintError(w io.Writer, err error, source string) {
	ce, ok := dryml.AsCompileError(err)
	if !ok {
		fmt.Fprintf(w, "%s %v\n", color.RedString("error:"), err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), ce.Message)
	fmt.Fprintf(w, "  %s %s:%d\n", color.HiBlackString("-->"), ce.Path, ce.Line)
	if source != "" {
		fmt.Fprint(w, ContextLines(source, ce.Line, 2))
	}
}
