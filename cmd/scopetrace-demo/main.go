// Package main provides scopetrace-demo, which runs a small concurrent workload under the
// tracer, first with the output cache disabled and then with it enabled, so the two outputs and
// their timings can be compared.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gburgyan/go-scopetrace/config"
)

var (
	configPath string
	cacheSize  uint
	sinkType   string
	sinkPath   string
	unit       string
	rounds     int
	workers    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scopetrace-demo",
	Short: "Run a traced workload with and without output caching",
	Long: `Runs nested, concurrent traced calls twice per round: once writing every line
immediately and once through the output cache, so the effect of printing on the
measured timings can be compared.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML configuration file")
	rootCmd.Flags().UintVar(&cacheSize, "cache", 50, "Cache capacity used for the cached run")
	rootCmd.Flags().StringVar(&sinkType, "sink", "", "Sink type (console, stderr, file, logger)")
	rootCmd.Flags().StringVar(&sinkPath, "sink-path", "", "File base name or log file for the sink")
	rootCmd.Flags().StringVar(&unit, "unit", "", "Duration unit (s, ms, us, ns, human)")
	rootCmd.Flags().IntVar(&rounds, "rounds", 1, "Number of rounds to run")
	rootCmd.Flags().IntVar(&workers, "workers", 3, "Concurrent workers started per run")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader(configPath).Load(flagOverrides(cmd))
	if err != nil {
		return err
	}

	tracer, err := config.Build(cfg)
	if err != nil {
		return errors.Wrap(err, "building tracer")
	}

	w := &workload{tracer: tracer, workers: workers}
	for i := 0; i < rounds; i++ {
		tracer.SetCacheCapacity(0)
		if err := w.run("****  Without cache enabled ****"); err != nil {
			return err
		}
		tracer.SetCacheCapacity(cacheSize)
		if err := w.run("****  With cache enabled ****"); err != nil {
			return err
		}
	}

	if err := tracer.Finalize(); err != nil {
		return errors.Wrap(err, "finalizing tracer")
	}
	if err := tracer.Err(); err != nil {
		return errors.Wrap(err, "tracing")
	}

	stats := tracer.Stats()
	fmt.Fprintf(os.Stderr, "%s lines written in %s flushes, %s timing reports\n",
		humanize.Comma(int64(stats.LinesWritten)),
		humanize.Comma(int64(stats.Flushes)),
		humanize.Comma(int64(stats.Reports)))
	return nil
}

// flagOverrides turns the flags the user actually set into config keys.
func flagOverrides(cmd *cobra.Command) map[string]any {
	flags := map[string]any{}
	if cmd.Flags().Changed("sink") {
		flags["sink.type"] = sinkType
	}
	if cmd.Flags().Changed("sink-path") {
		flags["sink.path"] = sinkPath
	}
	if cmd.Flags().Changed("unit") {
		flags["trace.unit"] = unit
	}
	return flags
}
