package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "/etc/ntpal.conf"

var verbose bool

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "ntpal",
		Short:         "Query NTP servers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log each exchange at debug level.")

	rootCmd.AddCommand(newQueryCommand(), newServersCommand(), newWatchCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
	}))
}

func envInt(name string, initial int) int {
	value, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return initial
	}
	return value
}

func defaultPort() int {
	return envInt("NTP_PORT", ntpal.DefaultPort)
}

func defaultVersion() int {
	return envInt("NTP_VERSION", int(ntpal.Version4))
}

func defaultConfig() string {
	if path := os.Getenv("NTPAL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
