// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that provide flag defaults. They can also be set in
// a .env file in the working directory.
const (
	envLogLevel    = "CACHESIM_LOG_LEVEL"
	envDB          = "CACHESIM_DB"
	envMonitorPort = "CACHESIM_MONITOR_PORT"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use: "cachesim",
		Short: "cachesim simulates a multi-level cache hierarchy driven by a " +
			"memory trace.",
		Long: `cachesim feeds the reads and writes of a trace into a ` +
			`configurable hierarchy of set-associative caches in front of a ` +
			`flat memory, and reports hits, misses, and access times.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}

			logrus.SetLevel(level)

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level",
		envString(envLogLevel, "info"),
		"Log level (panic, fatal, error, warn, info, debug, trace)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute loads the .env file, runs the command line, and exits.
func Execute() {
	logrus.RegisterExitHandler(func() { atexit.Exit(1) })

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("cannot load .env: %v", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}

	atexit.Exit(0)
}

func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}

	return fallback
}

func envInt(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("ignoring %s=%q: %v", name, v, err)
		return fallback
	}

	return n
}
