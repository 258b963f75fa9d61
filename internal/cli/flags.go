package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/ariel/internal/config"
)

// registerServerFlags adds the viewer server flags to a cobra command. The
// flag names match the config keys so that config.Load can bind them.
func registerServerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("host", config.DefaultHost, "host to bind to")
	f.IntP("port", "p", config.DefaultPort, "port to bind to")
	f.Bool("debug", false, "enable debug logging and change diffs")
	f.Duration("poll-interval", config.DefaultPollInterval, "browser poll interval")
	f.String("mermaid-version", config.DefaultMermaidVersion, "Mermaid version or constraint loaded from the CDN")
	f.Bool("no-cache", false, "re-read the file on every request")
	f.Bool("no-watch", false, "disable the filesystem watcher")
	f.Duration("debounce", config.DefaultDebounce, "debounce interval for file change reports")
	f.Bool("metrics", false, "expose Prometheus metrics on /metrics")
}
