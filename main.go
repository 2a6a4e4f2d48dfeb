// Airnode coordinator entry point.
//
// One invocation is one coordinator run: load and validate
// configuration, derive the master HD node, run the batch, ship the
// collected logs, and exit. Exit code 0 on success, non-zero on an
// unrecoverable initialization failure.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/coordinator"
	"github.com/airnode/coordinator/pkg/logger"
	"github.com/airnode/coordinator/pkg/wallet"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	writer := newWriter(cfg)

	master, err := wallet.NewMasterHDNode(cfg.MasterKeyMnemonic)
	if err != nil {
		writer.Write([]logger.Log{logger.Error("Failed to derive master HD node", err)})
		return 1
	}

	logs, _, err := coordinator.Run(context.Background(), cfg, master)
	writer.Write(logs)
	if err != nil {
		return 1
	}
	return 0
}

func newWriter(cfg *config.Config) *logger.Writer {
	format := logger.FormatPlain
	if cfg.NodeSettings.LogFormat == "json" {
		format = logger.FormatJSON
	}

	minLevel := logger.LevelInfo
	switch cfg.NodeSettings.LogLevel {
	case "debug":
		minLevel = logger.LevelDebug
	case "warn":
		minLevel = logger.LevelWarn
	case "error":
		minLevel = logger.LevelError
	}

	return logger.NewWriter(os.Stdout, format, minLevel)
}
