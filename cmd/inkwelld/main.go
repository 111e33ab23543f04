// Command inkwelld runs the inkwell document processing daemon: the HTTP API,
// the worker lanes, and the reconciler. It is normally launched by "inkwell
// start" but can be run directly in the foreground.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"inkwell/internal/config"
	"inkwell/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	development := flag.Bool("dev", false, "Log human-readable console output instead of JSON")
	flag.Parse()

	// A .env beside the working directory can supply INKWELL_* secrets
	// without putting them in the config file.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inkwelld: %v\n", err)
		os.Exit(1)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    *logLevel,
		Development: *development,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "inkwelld: %v\n", err)
		os.Exit(1)
	}
}
