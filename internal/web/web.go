// Package web holds the viewer page shell and the browser polling client.
package web

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed assets/index.html.tmpl assets/app.js
var assets embed.FS

// Paths served by the viewer.
const (
	ContentPath = "/mermaid"
	ScriptPath  = "/app.js"
)

// PageData parameterises the page shell.
type PageData struct {
	// FileName is the base name of the watched file.
	FileName string

	// PollInterval is the delay between two polls.
	PollInterval time.Duration

	// MermaidURL is the ESM bundle the client imports.
	MermaidURL string
}

type templateData struct {
	Title              string
	FileName           string
	PollIntervalMillis int64
	MermaidURL         string
	ContentPath        string
	ScriptPath         string
}

// Page renders the viewer page and serves its script.
type Page struct {
	tmpl       *template.Template
	script     []byte
	scriptETag string
}

// NewPage parses the embedded page shell. An error here means the binary
// was built without its assets and the server must not start.
func NewPage() (*Page, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}

	script, err := assets.ReadFile("assets/app.js")
	if err != nil {
		return nil, fmt.Errorf("reading client script: %w", err)
	}

	sum := sha256.Sum256(script)

	return &Page{
		tmpl:       tmpl,
		script:     script,
		scriptETag: `"` + hex.EncodeToString(sum[:8]) + `"`,
	}, nil
}

// Title returns the document title for a watched file name.
func Title(fileName string) string {
	return fileName + " - Ariel"
}

// Render writes the page for data to w. The output is buffered so that a
// template failure never produces a partial page.
func (p *Page) Render(w io.Writer, data PageData) error {
	var buf bytes.Buffer

	err := p.tmpl.Execute(&buf, templateData{
		Title:              Title(data.FileName),
		FileName:           data.FileName,
		PollIntervalMillis: data.PollInterval.Milliseconds(),
		MermaidURL:         data.MermaidURL,
		ContentPath:        ContentPath,
		ScriptPath:         ScriptPath,
	})
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing page: %w", err)
	}

	return nil
}

// Script returns the client script. Callers must not modify it.
func (p *Page) Script() []byte { return p.script }

// ScriptETag returns the quoted entity tag of the client script.
func (p *Page) ScriptETag() string { return p.scriptETag }
