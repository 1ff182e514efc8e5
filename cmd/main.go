//   ____          _      ____  _           _
//  / ___|___   __| | ___| __ )(_)_ __   __| | ___ _ __
// | |   / _ \ / _` |/ _ \  _ \| | '_ \ / _` |/ _ \ '__|
// | |__| (_) | (_| |  __/ |_) | | | | | (_| |  __/ |
//  \____\___/ \__,_|\___|____/|_|_| |_|\__,_|\___|_|

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"codebinder/config"
	"codebinder/errors"
	"codebinder/logger"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	verbose    int
	jsonLogs   bool
}

func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFromFile(o.configPath)
	}
	return config.Load()
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "codebinder",
		Short: "Convert resolved C# syntax trees to Java, TypeScript, JavaScript, C and C#",
		Long: `codebinder converts resolved syntax documents into source code for several
targets. Each top-level type is a conversion unit: a unit that uses a construct
its target cannot express is rejected with diagnostics, the others convert.

Examples:
  codebinder convert program.json                  # every target, into ./out
  codebinder convert -t java,ts --out build src/    # selected targets
  codebinder check program.json                    # diagnostics only
  codebinder rewrite -t java program.json          # show the lowered code
  codebinder targets                               # capability table`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Initialize(o.verbose, o.jsonLogs); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Sync()
		},
	}

	root.PersistentFlags().CountVarP(&o.verbose, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "Config file (default ./"+config.FileName+")")
	root.PersistentFlags().BoolVar(&o.jsonLogs, "log-json", false, "Write logs as JSON")

	root.AddCommand(newConvertCmd(o))
	root.AddCommand(newCheckCmd(o))
	root.AddCommand(newRewriteCmd(o))
	root.AddCommand(newTargetsCmd(o))
	root.AddCommand(newConfigCmd(o))
	return root
}

// printError writes err and its hints the way the CLI reports failures.
func printError(w io.Writer, err error) {
	fmt.Fprint(w, pterm.Error.Sprintln(err.Error()))
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprint(w, pterm.Info.Sprintln(hint))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
