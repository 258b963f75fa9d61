package cli

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/hupe1980/ariel/internal/config"
	"github.com/hupe1980/ariel/internal/poller"
)

const ansiReset = "\x1b[0m"

var statusColors = map[poller.Status]string{
	poller.StatusConnecting: "\x1b[33m",
	poller.StatusConnected:  "\x1b[32m",
	poller.StatusError:      "\x1b[31m",
}

// useColor reports whether w is a terminal and colour was not disabled by
// --no-color or NO_COLOR.
func useColor(w io.Writer, cfg *config.Config) bool {
	if cfg.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}

	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// statusLabel renders a poller status as "[status]".
func statusLabel(st poller.Status, color bool) string {
	label := "[" + st.String() + "]"
	if !color {
		return label
	}

	return statusColors[st] + label + ansiReset
}
