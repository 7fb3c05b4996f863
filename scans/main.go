package main

import (
	"fmt"
	"log/slog"
	"os"

	medipix "github.com/next-exp/medipix_go/pkg"
	"github.com/spf13/cobra"
)

var logger medipix.SlogLogger

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := medipix.NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = medipix.SlogLogger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scans",
		Short: "Parameter scans of the Medipix sensor response",
		Long: `scans runs series of simulated frames varying one parameter.

Results are stored in the configured database and plotted to plot_dir.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Configuration file path (json or yaml)")
	rootCmd.PersistentFlags().Bool("no-db", false, "Do not store results in the database")

	rootCmd.AddCommand(
		newThresholdCmd(),
		newPileupCmd(),
		newImagesCmd(),
		newSignalCmd(),
		newCalibrationCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

// loadConfiguration reads the --config file and installs it for the
// library together with the logger.
func loadConfiguration(cmd *cobra.Command) (medipix.Configuration, error) {
	filename, _ := cmd.Flags().GetString("config")
	c := medipix.DefaultConfiguration()
	if filename != "" {
		var err error
		if c, err = medipix.LoadConfiguration(filename); err != nil {
			return c, fmt.Errorf("error reading configuration file: %w", err)
		}
	}
	medipix.SetConfiguration(c)
	medipix.SetLogger(logger)
	if c.Verbosity > 0 {
		medipix.PrintConfiguration(c, logger)
	}
	return c, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
