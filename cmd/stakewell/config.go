// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config shapes a simulation run. Zero fields keep the engine defaults.
type Config struct {
	TargetLiquidityBps uint64 `yaml:"target-liquidity-bps"`
	FeeCurve           struct {
		BaseBps uint64 `yaml:"base-bps"`
		MidBps  uint64 `yaml:"mid-bps"`
		MaxBps  uint64 `yaml:"max-bps"`
	} `yaml:"fee-curve"`
	MinPayoutFloor    uint64 `yaml:"min-payout-floor"`
	BoostCommissionBps uint64 `yaml:"boost-commission-bps"`

	DeactivationDelay uint64 `yaml:"deactivation-delay"`
	UnstakeDelay      uint64 `yaml:"unstake-delay"`
	WithdrawalDelay   uint64 `yaml:"withdrawal-delay"`

	// traffic per epoch, in base units
	DepositMean  int64 `yaml:"deposit-mean"`
	WithdrawMean int64 `yaml:"withdraw-mean"`
	RewardMean   int64 `yaml:"reward-mean"`
	RewardFeeBps uint64 `yaml:"reward-fee-bps"`
	Users        int   `yaml:"users"`
}

func defaultConfig() *Config {
	cfg := &Config{
		WithdrawalDelay: 2,
		DepositMean:     100_000,
		WithdrawMean:    5_000,
		RewardMean:      1_000,
		RewardFeeBps:    1000,
		Users:           5,
	}
	return cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if cfg.Users <= 0 {
		return nil, errors.New("config: users must be positive")
	}
	if cfg.DepositMean <= 0 {
		return nil, errors.New("config: deposit-mean must be positive")
	}
	return cfg, nil
}

func (c *Config) payoutFloor() *big.Int {
	return new(big.Int).SetUint64(c.MinPayoutFloor)
}
