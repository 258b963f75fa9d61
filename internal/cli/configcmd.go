package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/ariel/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration that serve would use, after merging defaults,
the config file, ARIEL_* environment variables and flags, as YAML.

The output is a valid .ariel.yaml file.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}

			w := cmd.OutOrStdout()

			if cfg.ConfigFile != "" {
				_, _ = fmt.Fprintf(w, "# loaded from %s\n", cfg.ConfigFile)
			}

			_, err = w.Write(data)

			return err
		},
	}

	registerServerFlags(cmd)

	return cmd
}
