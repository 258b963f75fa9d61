package diagram

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatterFence matches a line containing only "---", optionally
// followed by whitespace.
var frontMatterFence = regexp.MustCompile(`(?m)^---[ \t]*\r?$`)

// FrontMatter is the YAML block Mermaid accepts between two --- lines at
// the top of a diagram.
type FrontMatter struct {
	Title       string         `yaml:"title"`
	DisplayMode string         `yaml:"displayMode"`
	Config      map[string]any `yaml:"config"`
}

// ParseFrontMatter decodes the front matter of src. A source without
// front matter yields the zero FrontMatter and no error.
func ParseFrontMatter(src []byte) (FrontMatter, error) {
	text := strings.TrimPrefix(string(src), "\ufeff")
	text = strings.TrimLeft(text, " \t\r\n")

	open := frontMatterFence.FindStringIndex(text)
	if open == nil || open[0] != 0 {
		return FrontMatter{}, nil
	}

	rest := text[open[1]:]

	closing := frontMatterFence.FindStringIndex(rest)
	if closing == nil {
		return FrontMatter{}, &SyntaxError{Msg: "unterminated front matter"}
	}

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:closing[0]]), &fm); err != nil {
		return FrontMatter{}, &SyntaxError{Msg: "invalid front matter: " + err.Error()}
	}

	return fm, nil
}
