// Package diagram recognises Mermaid diagram sources without rendering them.
package diagram

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// knownTypes lists the diagram keywords Mermaid accepts on the first
// significant line.
var knownTypes = map[string]struct{}{
	"graph":              {},
	"flowchart":          {},
	"flowchart-elk":      {},
	"sequenceDiagram":    {},
	"classDiagram":       {},
	"classDiagram-v2":    {},
	"stateDiagram":       {},
	"stateDiagram-v2":    {},
	"erDiagram":          {},
	"journey":            {},
	"gantt":              {},
	"pie":                {},
	"quadrantChart":      {},
	"requirementDiagram": {},
	"gitGraph":           {},
	"C4Context":          {},
	"C4Container":        {},
	"C4Component":        {},
	"C4Dynamic":          {},
	"C4Deployment":       {},
	"mindmap":            {},
	"timeline":           {},
	"zenuml":             {},
	"sankey-beta":        {},
	"xychart-beta":       {},
	"block-beta":         {},
	"packet-beta":        {},
	"kanban":             {},
	"architecture-beta":  {},
	"radar-beta":         {},
	"treemap-beta":       {},
}

// SyntaxError reports a source that does not start with a diagram keyword.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error on line %d: %s", e.Line, e.Msg)
	}

	return "syntax error: " + e.Msg
}

// DetectType returns the diagram keyword of src. Blank lines, %% comments,
// %%{init}%% directives and a --- front-matter block are skipped. Front
// matter is recognised only before any other non-blank line, the same as
// ParseFrontMatter.
func DetectType(src []byte) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), len(src)+1)

	line := 0
	inFrontMatter := false
	canOpen := true

	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())

		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}

		switch {
		case inFrontMatter:
			if text == "---" {
				inFrontMatter = false
			}

			continue
		case text == "":
			continue
		case text == "---" && canOpen:
			inFrontMatter = true
			canOpen = false

			continue
		}

		canOpen = false

		if strings.HasPrefix(text, "%%") {
			continue
		}

		keyword := firstWord(text)
		if _, ok := knownTypes[keyword]; ok {
			return keyword, nil
		}

		return "", &SyntaxError{Line: line, Msg: fmt.Sprintf("unknown diagram type %q", keyword)}
	}

	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scanning diagram: %w", err)
	}

	if inFrontMatter {
		return "", &SyntaxError{Line: line, Msg: "unterminated front matter"}
	}

	return "", &SyntaxError{Msg: "no diagram definition found"}
}

// firstWord returns text up to the first whitespace, colon or semicolon.
func firstWord(text string) string {
	if i := strings.IndexAny(text, " \t:;"); i >= 0 {
		return text[:i]
	}

	return text
}

// LineCount returns the number of lines in src, counting a final line
// without a trailing newline.
func LineCount(src []byte) int {
	if len(src) == 0 {
		return 0
	}

	n := bytes.Count(src, []byte{'\n'})
	if src[len(src)-1] != '\n' {
		n++
	}

	return n
}
