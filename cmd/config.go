package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"codebinder/config"
	"codebinder/errors"
)

func newConfigCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage codebinder configuration",
		Long: `Create and display codebinder configuration.

Configuration sources (in order of precedence):
1. Environment variables (CODEBINDER_* prefix)
2. --config file, or ./codebinder.toml, or ~/.config/codebinder/codebinder.toml
3. Default values`,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("wrote %s", path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch format {
			case "toml":
				return config.Write(w, cfg)
			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to YAML")
				}
				_, err = w.Write(data)
				return err
			default:
				return errors.Newf("unsupported format: %s (supported: toml, yaml)", format)
			}
		},
	}
	showCmd.Flags().StringVar(&format, "format", "toml", "Output format: toml, yaml")

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
