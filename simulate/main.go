package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	medipix "github.com/next-exp/medipix_go/pkg"
)

var configuration medipix.Configuration

var (
	logger         medipix.SlogLogger
	VerbosityLevel int
)

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

func main() {
	configFilename := flag.String("config", "", "Configuration file path (json or yaml)")
	calibrationDB := flag.Bool("calibration-db", false, "Read the i_krum calibration from the database")
	flag.Parse()

	var err error
	configuration, err = medipix.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	medipix.SetConfiguration(configuration)
	medipix.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		medipix.PrintConfiguration(configuration, logger)
	}

	if err := simulate(configuration, *calibrationDB); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
