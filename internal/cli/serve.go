package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ariel/internal/config"
	"github.com/hupe1980/ariel/internal/logging"
	"github.com/hupe1980/ariel/internal/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Serve a Mermaid file with live reload",
		Long: `Serve starts the viewer for one Mermaid file.

Open the printed URL in a browser. The page polls the server and
re-renders the diagram when the file content changes. The file does not
have to exist yet: the page shows an error until it is created.`,
		Example: `  ariel serve diagram.mmd
  ariel serve docs/flow.mmd --port 8080 --debug
  ariel serve diagram.mmd --mermaid-version 11.4.0 --metrics`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd, args[0])
		},
	}

	registerServerFlags(cmd)

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, file string) error {
	cfg := config.FromContext(ctx)

	sc, err := config.NewServerConfig(file, cfg)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	logger := logging.FromContext(ctx)

	if _, statErr := os.Stat(sc.FilePath); errors.Is(statErr, fs.ErrNotExist) {
		logger.Warn("mermaid file not found; serving 404 until it is created",
			slog.String("file", sc.FilePath),
		)
	}

	srv, err := server.New(sc, server.WithLogger(logger))
	if err != nil {
		return err
	}

	if !cfg.Quiet {
		w := cmd.ErrOrStderr()
		_, _ = fmt.Fprintf(w, "Starting Ariel server...\n")
		_, _ = fmt.Fprintf(w, "  Watching file: %s\n", sc.FilePath)
		_, _ = fmt.Fprintf(w, "  Server: %s\n\n", sc.URL())
	}

	logger.Info("server starting",
		slog.String("file", sc.FilePath),
		slog.String("addr", sc.Addr()),
		slog.Bool("watch", sc.Watch),
		slog.Bool("cache", sc.Cache),
		slog.Bool("metrics", sc.Metrics),
	)

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")

	return nil
}
