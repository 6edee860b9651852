// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakewell/stakewell/kv"
	"github.com/stakewell/stakewell/log"
	"github.com/stakewell/stakewell/metrics"
	"github.com/stakewell/stakewell/state"
)

var (
	version   string
	gitCommit string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "stakewell",
		Usage:     "pooled staking engine simulator",
		Copyright: "2026 The Stakewell developers",
		Flags: []cli.Flag{
			dataDirFlag,
			configFlag,
			epochsFlag,
			validatorsFlag,
			seedFlag,
			verbosityFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: simAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func simAction(ctx *cli.Context) error {
	initLogger(ctx.Int(verbosityFlag.Name))
	defer logger.Info("exited")

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		startMetricsServer(ctx.String(metricsAddrFlag.Name))
	}

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	store, err := openStore(ctx.String(dataDirFlag.Name))
	if err != nil {
		return err
	}
	st := state.New(nil)
	if store != nil {
		defer store.Close()
		st = state.New(store)
	}

	sim, err := newSimulator(cfg, st, ctx.Uint64(validatorsFlag.Name), ctx.Int64(seedFlag.Name))
	if err != nil {
		return err
	}
	return sim.run(ctx.Uint64(epochsFlag.Name))
}

// openStore opens the persistent store under the data directory, or returns
// nil for a memory-only run.
func openStore(dataDir string) (*kv.LevelDB, error) {
	if dataDir == "" {
		logger.Info("using in-memory state store")
		return nil, nil
	}
	path := filepath.Join(dataDir, "engine.db")
	logger.Info("opening state store", "path", path)
	return kv.NewLevelDB(path, kv.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 64,
	})
}

func initLogger(verbosity int) {
	var level slog.Level
	switch {
	case verbosity <= 0:
		level = log.LevelCrit
	case verbosity == 1:
		level = log.LevelError
	case verbosity == 2:
		level = log.LevelWarn
	case verbosity == 3:
		level = log.LevelInfo
	case verbosity == 4:
		level = log.LevelDebug
	default:
		level = log.LevelTrace
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)))
}

func startMetricsServer(addr string) {
	srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler()}
	go func() {
		logger.Info("metrics server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
}
