// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the engine state database; empty runs in memory",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a yaml simulation config",
	}
	epochsFlag = cli.Uint64Flag{
		Name:  "epochs",
		Value: 10,
		Usage: "number of epochs to simulate",
	}
	validatorsFlag = cli.Uint64Flag{
		Name:  "validators",
		Value: 3,
		Usage: "number of validators to register at genesis",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "seed for the deposit/withdrawal traffic generator",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5: crit, error, warn, info, debug, trace)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "serve prometheus metrics while the simulation runs",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
)
