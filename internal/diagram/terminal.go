package diagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// TerminalRenderer prints diagram sources to a writer after checking that
// they start with a known diagram type.
type TerminalRenderer struct {
	out io.Writer
}

// NewTerminalRenderer returns a renderer writing to out.
func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{out: out}
}

// Render writes a header line followed by src. The header names the
// diagram type and the front-matter title, if any. Sources without a known
// diagram type or with malformed front matter are rejected with a
// *SyntaxError and nothing is written.
func (r *TerminalRenderer) Render(_ context.Context, src []byte) error {
	kind, err := DetectType(src)
	if err != nil {
		return err
	}

	fm, err := ParseFrontMatter(src)
	if err != nil {
		return err
	}

	if fm.Title != "" {
		kind += ": " + fm.Title
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "--- %s (%d lines) ---\n", kind, LineCount(src))
	buf.Write(src)

	if len(src) > 0 && src[len(src)-1] != '\n' {
		buf.WriteByte('\n')
	}

	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing diagram: %w", err)
	}

	return nil
}
