// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Command fxtrace replays recorded frame traces through
// the post-processing runtime on the software driver.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gviegas/postfx"
	"github.com/gviegas/postfx/config"
	"github.com/gviegas/postfx/driver"
)

var flags = viper.New()

var rootCmd = &cobra.Command{
	Use:           "fxtrace",
	Short:         "Replay frame traces through the post-processing runtime",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogger(flags.GetBool("verbose"))
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <trace.yaml>",
	Short: "Replay a trace and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(cmd.OutOrStdout(), args[0])
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "Print the known formats and their depth promotions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printFormats(cmd.OutOrStdout())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "postfx.ini", "runtime configuration file")
	pf.Bool("verbose", false, "log at debug level")
	replayCmd.Flags().StringSlice("effects", nil, "effect search paths (overrides the configuration)")
	replayCmd.Flags().Bool("alias", false, "render effects directly to the back buffer")
	replayCmd.Flags().Bool("strict", false, "fail if objects leak or the driver reports violations")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(formatsCmd)

	flags.SetEnvPrefix("FXTRACE")
	flags.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	flags.AutomaticEnv()
	if err := flags.BindPFlags(pf); err != nil {
		panic(err)
	}
	if err := flags.BindPFlags(replayCmd.Flags()); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setLogger(verbose bool) error {
	c := zap.NewProductionConfig()
	if verbose {
		c = zap.NewDevelopmentConfig()
	} else {
		c.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	l, err := c.Build()
	if err != nil {
		return err
	}
	postfx.SetLogger(l)
	return nil
}

// errStrict is returned by replay --strict when the
// replay did not clean up after itself.
var errStrict = errors.New("fxtrace: replay leaked objects or violated driver rules")

func replay(w io.Writer, path string) error {
	tr, err := LoadTrace(path)
	if err != nil {
		return err
	}
	cfg, err := config.Load(flags.GetString("config"))
	if err != nil {
		return err
	}
	if flags.IsSet("effects") {
		cfg.EffectSearchPaths = flags.GetStringSlice("effects")
	}
	if flags.IsSet("alias") {
		cfg.AliasBackBuffer = flags.GetBool("alias")
	}
	rep, err := Replay(tr, cfg)
	if err != nil {
		return err
	}
	rep.Print(w)
	if flags.GetBool("strict") && (rep.Leaked != 0 || len(rep.Violations) != 0) {
		return errStrict
	}
	return nil
}

// Print writes a summary of r to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "frames:       %d\n", r.Frames)
	fmt.Fprintf(w, "draws:        %d\n", r.Draws)
	fmt.Fprintf(w, "techniques:   %s\n", orNone(strings.Join(r.Techniques, ", ")))
	fmt.Fprintf(w, "depth source: %s\n", orNone(r.DepthSource))
	fmt.Fprintf(w, "leaked:       %d\n", r.Leaked)
	for _, v := range r.Violations {
		fmt.Fprintf(w, "violation:    %s\n", v)
	}
	if r.Errors != "" {
		fmt.Fprintf(w, "errors:\n%s", r.Errors)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func printFormats(w io.Writer) {
	fmt.Fprintf(w, "%-28s %-5s %-24s %-24s %s\n", "FORMAT", "SIZE", "TYPELESS", "DEPTH VIEW", "DEPTH RESOURCE")
	for _, f := range driver.Formats() {
		if f == driver.FormatUnknown {
			continue
		}
		dv, ds := "-", "-"
		if f.IsDepth() || f == driver.DepthTypeless(f) {
			t := driver.DepthTypeless(f)
			dv, ds = driver.DepthViewFormat(t).String(), driver.DepthSRVFormat(t).String()
		}
		fmt.Fprintf(w, "%-28s %-5d %-24s %-24s %s\n", f, f.Size(), driver.TypelessOf(f), dv, ds)
	}
}
