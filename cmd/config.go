package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/logging"
	"github.com/grovetools/pantry/pkg/daemon"
)

// NewConfigCmd returns the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate pantry.yml",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Long: `Prints the configuration after merging the global file with the nearest
pantry.yml and applying defaults. With --daemon it prints what the running
daemon was started with instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if fromDaemon, _ := cmd.Flags().GetBool("daemon"); fromDaemon {
				client, err := daemon.Connect(cfg)
				if err != nil {
					return err
				}
				defer client.Close()
				running, err := client.GetConfig(cmd.Context())
				if err != nil {
					return err
				}
				if cli.GetOptions(cmd).JSONOutput {
					return cli.PrintJSON(out, running)
				}
				p := logging.NewPrettyLogger().WithWriter(out)
				p.Field(0, "backend", running.Backend)
				p.Field(0, "auth", running.AuthURL)
				p.Field(0, "socket", running.Socket)
				p.Field(0, "tiers enforced", running.TiersEnforced)
				p.Field(0, "started", running.StartedAt.Format("2006-01-02 15:04:05"))
				for _, src := range running.Sources {
					p.Muted(1, src)
				}
				return nil
			}

			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(out, cfg)
			}
			for _, src := range cfg.Sources {
				fmt.Fprintf(out, "# Source: %s\n", src)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	show.Flags().Bool("daemon", false, "Show the running daemon's configuration")

	cmd.AddCommand(
		show,
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON Schema of pantry.yml",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				schema, err := config.GenerateSchema()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(schema))
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration against the schema and semantic rules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := cli.LoadConfig(cmd)
				if err != nil {
					return err
				}
				p := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				p.Success("Configuration is valid")
				for _, src := range cfg.Sources {
					p.Muted(1, src)
				}
				return nil
			},
		},
	)
	return cmd
}
