package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"codebinder/compiler"
	"codebinder/config"
)

func registeredTargets() []string { return compiler.TargetNames() }

// newTarget builds the emitter for name with the configured overrides. A
// nil cfg keeps the built-in settings.
func newTarget(name string, cfg *config.Config) (compiler.Emitter, error) {
	if cfg == nil {
		return compiler.NewTarget(name, compiler.TargetOptions{})
	}
	opts, err := cfg.TargetOptions(name)
	if err != nil {
		return nil, err
	}
	return compiler.NewTarget(name, opts)
}

func newTargetsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Show the capability profile of every target",
		Long: `Show the registered targets with the capabilities they support after
configuration overrides are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			table, err := capabilityTable(cfg)
			if err != nil {
				return err
			}
			out, err := pterm.DefaultTable.WithHasHeader().WithData(table).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func capabilityTable(cfg *config.Config) (pterm.TableData, error) {
	header := []string{"Target", "Extension", "Overloads"}
	for _, c := range compiler.AllCapabilities() {
		header = append(header, c.String())
	}
	table := pterm.TableData{header}
	for _, name := range registeredTargets() {
		em, err := newTarget(name, cfg)
		if err != nil {
			return nil, err
		}
		row := []string{name, em.Extension(), em.Style().Overloads.String()}
		profile := em.DefaultProfile()
		for _, c := range compiler.AllCapabilities() {
			mark := "-"
			if profile.Has(c) {
				mark = "yes"
			}
			row = append(row, mark)
		}
		table = append(table, row)
	}
	return table, nil
}
