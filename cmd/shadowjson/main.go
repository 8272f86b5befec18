// Command shadowjson exercises the shadowjson parser and loader from the
// command line: validating input, reporting restart/timing diagnostics,
// and round-tripping documents through the canonical formatter.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gauntlet-dev/shadowjson"
	"github.com/gauntlet-dev/shadowjson/dialect"
	"github.com/gauntlet-dev/shadowjson/loader"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:   "shadowjson",
		Short: "Parse and inspect JSON documents with the shadow-class parser.",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newParseCmd(&verbose), newBenchCmd(&verbose), newLoadCmd(&verbose))
	return root
}

func newLogger(verbose *bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose != nil && *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func newParseCmd(verbose *bool) *cobra.Command {
	var jwcc bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a JSON document and print its canonical form.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)
			defer logger.Sync()

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			p := shadowjson.New(nil)
			defer p.Close()

			var root shadowjson.Node
			if jwcc {
				root, err = dialect.Parse(p, src)
			} else {
				root, err = p.Parse(src)
			}
			if err != nil {
				logger.Error("parse failed", zap.Error(err), zap.String("file", args[0]))
				return err
			}
			logger.Debug("parsed", zap.Int("restarts", p.RestartCount()), zap.Int("nodes", len(p.Assembly())))

			return shadowjson.Format(cmd.OutOrStdout(), root, p.Assembly())
		},
	}
	cmd.Flags().BoolVar(&jwcc, "jwcc", false, "accept comments and trailing commas")
	return cmd
}

func newBenchCmd(verbose *bool) *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "bench [file]",
		Short: "Repeatedly parse a document and report timing and restart counts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)
			defer logger.Sync()

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			p := shadowjson.New(nil)
			defer p.Close()

			start := time.Now()
			var root shadowjson.Node
			for i := 0; i < iterations; i++ {
				var err error
				root, err = p.Parse(src)
				if err != nil {
					return err
				}
			}
			elapsed := time.Since(start)

			fields := []zap.Field{
				zap.Int("iterations", iterations),
				zap.Duration("elapsed", elapsed),
				zap.Int("restarts", p.RestartCount()),
				zap.Int64("bytes_per_sec", int64(float64(len(src)*iterations)/elapsed.Seconds())),
			}
			if root.Kind() == shadowjson.KindObject {
				fields = append(fields, zap.Uint64("root_class_digest", shadowjson.ClassOf(root, p.Assembly()).Digest()))
			}
			logger.Info("bench complete", fields...)
			fmt.Fprintf(cmd.OutOrStdout(), "%d iterations in %s (%d restarts)\n", iterations, elapsed, p.RestartCount())
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1000, "number of parse iterations")
	return cmd
}

// newLoadCmd exercises package loader without requiring the caller to
// bring a Go schema: it projects onto `any`, then re-encodes with the
// standard library's encoding/json for display.
func newLoadCmd(verbose *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [file]",
		Short: "Parse a JSON document and print it through the schema-free loader.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)
			defer logger.Sync()

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			p := shadowjson.New(nil)
			defer p.Close()

			root, err := p.Parse(src)
			if err != nil {
				logger.Error("parse failed", zap.Error(err), zap.String("file", args[0]))
				return err
			}

			val, err := loader.Load[any](root, p.Assembly())
			if err != nil {
				logger.Error("load failed", zap.Error(err), zap.String("file", args[0]))
				return err
			}

			out, err := json.MarshalIndent(val, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	return cmd
}
