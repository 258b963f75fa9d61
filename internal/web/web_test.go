package web

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	p, err := NewPage()
	require.NoError(t, err)

	assert.NotEmpty(t, p.Script())
	assert.True(t, strings.HasPrefix(p.ScriptETag(), `"`))
	assert.True(t, strings.HasSuffix(p.ScriptETag(), `"`))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "arch.mmd - Ariel", Title("arch.mmd"))
}

func TestRender(t *testing.T) {
	p, err := NewPage()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, PageData{
		FileName:     "arch.mmd",
		PollInterval: 1500 * time.Millisecond,
		MermaidURL:   "https://cdn.example/mermaid@10/dist/mermaid.esm.min.mjs",
	}))

	out := buf.String()
	assert.Contains(t, out, "<title>arch.mmd - Ariel</title>")
	assert.Contains(t, out, `data-poll-interval="1500"`)
	assert.Contains(t, out, `data-content-path="/mermaid"`)
	assert.Contains(t, out, `data-mermaid-url="https://cdn.example/mermaid@10/dist/mermaid.esm.min.mjs"`)
	assert.Contains(t, out, `src="/app.js"`)
	assert.Contains(t, out, `id="status-indicator"`)
	assert.Contains(t, out, `id="error-message"`)
}

func TestRender_EscapesFileName(t *testing.T) {
	p, err := NewPage()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, PageData{FileName: "<script>x</script>.mmd", PollInterval: time.Second}))

	assert.NotContains(t, buf.String(), "<script>x</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRender_WriteError(t *testing.T) {
	p, err := NewPage()
	require.NoError(t, err)

	err = p.Render(failingWriter{}, PageData{FileName: "a.mmd", PollInterval: time.Second})
	assert.ErrorContains(t, err, "writing page")
}

func TestRender_StartsViewer(t *testing.T) {
	p, err := NewPage()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, PageData{FileName: "a.mmd", PollInterval: time.Second}))

	assert.Contains(t, buf.String(), `<script src="/app.js"></script>`)
	assert.Contains(t, buf.String(), "window.ariel.start((url) => import(url))")
}
