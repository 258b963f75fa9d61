package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ariel/internal/config"
	"github.com/hupe1980/ariel/internal/diagram"
	"github.com/hupe1980/ariel/internal/logging"
	"github.com/hupe1980/ariel/internal/poller"
	"github.com/hupe1980/ariel/internal/web"
)

// defaultPollURL is the address of a viewer started with default flags.
var defaultPollURL = (&url.URL{
	Scheme: "http",
	Host:   net.JoinHostPort(config.DefaultHost, strconv.Itoa(config.DefaultPort)),
}).String()

type pollOptions struct {
	interval time.Duration
	once     bool
}

func newPollCommand() *cobra.Command {
	opts := &pollOptions{}

	cmd := &cobra.Command{
		Use:   "poll [url]",
		Short: "Follow a running viewer from the terminal",
		Long: `Poll connects to a running ariel server and prints the diagram source
every time it changes, using the same conditional polling protocol as the
browser page.

The URL may point at the server root or directly at its content
endpoint. Status changes (connecting, connected, error) are reported on
stderr.`,
		Example: `  ariel poll
  ariel poll http://127.0.0.1:8080 --interval 500ms
  ariel poll --once`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := defaultPollURL
			if len(args) == 1 {
				target = args[0]
			}

			return runPoll(cmd.Context(), cmd, target, opts)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.interval, "interval", poller.DefaultInterval, "delay between polls")
	f.BoolVar(&opts.once, "once", false, "poll a single time and exit")

	return cmd
}

// contentURL resolves the content endpoint of a viewer from its base URL.
func contentURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}

	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}

	if !strings.HasSuffix(u.Path, web.ContentPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + web.ContentPath
	}

	return u.String(), nil
}

func runPoll(ctx context.Context, cmd *cobra.Command, target string, opts *pollOptions) error {
	if opts.interval <= 0 {
		return &ExitError{Code: 2, Err: fmt.Errorf("invalid interval %s: must be positive", opts.interval)}
	}

	endpoint, err := contentURL(target)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	logger := logging.Component(ctx, "poller")
	stderr := cmd.ErrOrStderr()
	color := useColor(stderr, config.FromContext(ctx))

	last, lastMsg := poller.StatusConnecting, ""
	_, _ = fmt.Fprintf(stderr, "%s %s\n", statusLabel(last, color), endpoint)

	client := poller.New(endpoint, diagram.NewTerminalRenderer(cmd.OutOrStdout()), poller.Options{
		Interval: opts.interval,
		Logger:   logger,
		OnUpdate: func(st poller.State) {
			msg := ""
			if st.Err != nil {
				msg = st.Err.Error()
			}

			if st.Status == last && msg == lastMsg {
				return
			}

			last, lastMsg = st.Status, msg

			if msg != "" {
				_, _ = fmt.Fprintf(stderr, "%s %s\n", statusLabel(st.Status, color), msg)
			} else {
				_, _ = fmt.Fprintln(stderr, statusLabel(st.Status, color))
			}
		},
	})

	if opts.once {
		st := client.Poll(ctx)
		logger.Debug("poll finished",
			slog.String("result", st.LastResult.String()),
			slog.String("fingerprint", st.Fingerprint),
		)

		if st.Status == poller.StatusError {
			return st.Err
		}

		return nil
	}

	return client.Run(ctx)
}
