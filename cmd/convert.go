package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codebinder/compiler"
	"codebinder/config"
	"codebinder/errors"
	"codebinder/logger"
)

type convertFlags struct {
	targets []string
	units   []string
	out     string
	workers int
	watch   bool
}

func newConvertCmd(o *options) *cobra.Command {
	f := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert <input.json|dir>...",
		Short: "Convert syntax documents and write the artifacts",
		Long: `Convert every unit of the input documents for the selected targets.
Artifacts are written to <out>/<target>/. Rejected units are reported with
their diagnostics and produce no files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !f.watch {
				return runConvert(cmd.Context(), w, cfg, f.withDefaults(cfg), args)
			}
			paths, err := inputPaths(args)
			if err != nil {
				return err
			}
			if o.configPath != "" {
				paths = append(paths, o.configPath)
			}
			return watchAndRun(cmd.Context(), paths, defaultDebounce, func(ctx context.Context) {
				cfg, err := o.loadConfig()
				if err == nil {
					err = runConvert(ctx, w, cfg, f.withDefaults(cfg), args)
				}
				if err != nil {
					printError(w, err)
				}
			})
		},
	}
	cmd.Flags().StringSliceVarP(&f.targets, "target", "t", []string{"all"}, "Targets to convert for (comma-separated, or all)")
	cmd.Flags().StringSliceVarP(&f.units, "unit", "u", nil, "Convert only these top-level types (qualified names)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "Units converted at once (default from config, 0 = one per CPU)")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Convert again whenever an input changes")
	return cmd
}

// withDefaults fills the flags left unset from cfg. f itself is not
// changed, so a reloaded config applies on the next run.
func (f convertFlags) withDefaults(cfg *config.Config) *convertFlags {
	if f.out == "" {
		f.out = cfg.OutputDir
	}
	if f.workers == 0 {
		f.workers = cfg.Workers
	}
	return &f
}

func runConvert(ctx context.Context, w io.Writer, cfg *config.Config, f *convertFlags, args []string) error {
	log := logger.Named("convert")
	targets, err := targetList(f.targets)
	if err != nil {
		return err
	}
	paths, err := inputPaths(args)
	if err != nil {
		return err
	}
	files, err := loadInputs(paths)
	if err != nil {
		return err
	}

	start := time.Now()
	conv := compiler.NewConverter(files, nil, compiler.ConverterOptions{Workers: f.workers, Units: f.units})
	rep := newReporter(w)
	for _, name := range targets {
		em, err := newTarget(name, cfg)
		if err != nil {
			return err
		}
		results, err := conv.Convert(ctx, em)
		if err != nil {
			return err
		}
		dir := filepath.Join(f.out, em.Name())
		for _, res := range results {
			if res.Status != compiler.UnitConverted {
				if err := removeStale(dir, em, conv.Forest().Lookup(res.Unit)); err != nil {
					return err
				}
			}
			written, err := writeArtifacts(dir, res.Artifacts)
			if err != nil {
				return err
			}
			rep.unit(res, written)
		}
	}
	rep.summary()
	log.Debugw("convert finished", "run", conv.RunID(), "inputs", len(paths), "targets", len(targets), "took", time.Since(start))

	if n := rep.notConverted(); n > 0 {
		return errors.WithHint(errors.Mark(errors.Newf("%d unit(s) not converted", n), errors.ErrUnitRejected),
			"Run codebinder check for the diagnostics of every unit.")
	}
	return nil
}

func writeArtifacts(dir string, artifacts []compiler.Artifact) ([]string, error) {
	var written []string
	for _, a := range artifacts {
		path := filepath.Join(dir, filepath.FromSlash(a.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return written, errors.Wrapf(err, "failed to create output directory for %s", path)
		}
		if err := os.WriteFile(path, []byte(a.Text), 0644); err != nil {
			return written, errors.Wrapf(err, "failed to write %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}

// removeStale deletes the artifact an earlier run wrote for a unit that no
// longer converts.
func removeStale(dir string, em compiler.Emitter, root *compiler.DeclarationNode) error {
	if root == nil {
		return nil
	}
	path := filepath.Join(dir, filepath.FromSlash(compiler.ArtifactName(em, root)))
	err := os.Remove(path)
	switch {
	case err == nil:
		logger.Named("convert").Infow("removed stale artifact", "path", path)
	case !errors.Is(err, os.ErrNotExist):
		return errors.Wrapf(err, "failed to remove stale %s", path)
	}
	return nil
}
