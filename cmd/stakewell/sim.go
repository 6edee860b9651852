// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"math/big"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/stakewell/stakewell/engine"
	"github.com/stakewell/stakewell/fortest"
	"github.com/stakewell/stakewell/state"
	"github.com/stakewell/stakewell/types"
)

var (
	ownerAddr  = types.BytesToAddress([]byte("stakewell-owner"))
	engineAddr = types.BytesToAddress([]byte("stakewell-engine"))
)

// simulator drives the engine with generated traffic against the simulated
// staking provider, one epoch per round.
type simulator struct {
	cfg      *Config
	st       *state.State
	eng      *engine.Engine
	provider *fortest.Provider
	vault    *fortest.Vault
	rng      *rand.Rand

	users     []types.Address
	operators []types.Address
}

func newSimulator(cfg *Config, st *state.State, validators uint64, seed int64) (*simulator, error) {
	provider := fortest.NewProvider(cfg.WithdrawalDelay)
	vault := fortest.NewVault()
	eng := engine.New(st, engineAddr, provider, vault.Transfer, engine.Config{
		Owner:             ownerAddr,
		DeactivationDelay: cfg.DeactivationDelay,
		UnstakeDelay:      cfg.UnstakeDelay,
	})
	if err := eng.Initialize(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize engine")
	}

	s := &simulator{
		cfg:      cfg,
		st:       st,
		eng:      eng,
		provider: provider,
		vault:    vault,
		rng:      rand.New(rand.NewSource(seed)),
	}
	for i := 0; i < cfg.Users; i++ {
		s.users = append(s.users, types.BytesToAddress([]byte(fmt.Sprintf("user-%d", i))))
	}
	if err := s.applyParams(); err != nil {
		return nil, err
	}
	for i := uint64(0); i < validators; i++ {
		operator := types.BytesToAddress([]byte(fmt.Sprintf("operator-%d", i)))
		id, err := eng.AddValidator(ownerAddr, operator)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add validator %d", i)
		}
		s.operators = append(s.operators, operator)
		logger.Info("validator registered", "id", id, "operator", operator)
	}
	return s, nil
}

// applyParams stages the configured engine parameters; they take effect at
// the first crank.
func (s *simulator) applyParams() error {
	if s.cfg.TargetLiquidityBps != 0 {
		if err := s.eng.SetTargetLiquidityBps(ownerAddr, s.cfg.TargetLiquidityBps); err != nil {
			return err
		}
	}
	if s.cfg.FeeCurve.MaxBps != 0 {
		if err := s.eng.SetFeeCurve(ownerAddr, s.cfg.FeeCurve.BaseBps, s.cfg.FeeCurve.MidBps, s.cfg.FeeCurve.MaxBps); err != nil {
			return err
		}
	}
	if s.cfg.MinPayoutFloor != 0 {
		if err := s.eng.SetMinPayoutFloor(ownerAddr, s.cfg.payoutFloor()); err != nil {
			return err
		}
	}
	if s.cfg.BoostCommissionBps != 0 {
		if err := s.eng.SetBoostCommissionBps(ownerAddr, s.cfg.BoostCommissionBps); err != nil {
			return err
		}
	}
	return nil
}

// amount draws a positive value around the mean, spread between 50% and 150%.
func (s *simulator) amount(mean int64) *big.Int {
	low := mean / 2
	return big.NewInt(low + s.rng.Int63n(mean))
}

func (s *simulator) run(epochs uint64) error {
	for round := uint64(0); round < epochs; round++ {
		if err := s.traffic(); err != nil {
			return err
		}
		if err := s.crankEpoch(); err != nil {
			return err
		}
		if err := s.report(); err != nil {
			return err
		}
		if err := s.st.Commit(); err != nil {
			return errors.Wrap(err, "failed to commit state")
		}
	}
	return nil
}

// traffic submits one round of generated deposits, withdrawals and rewards.
func (s *simulator) traffic() error {
	for _, user := range s.users {
		if _, err := s.eng.Deposit(s.amount(s.cfg.DepositMean), user); err != nil {
			return errors.Wrap(err, "deposit failed")
		}
	}

	if s.cfg.WithdrawMean > 0 {
		user := s.users[s.rng.Intn(len(s.users))]
		gross := s.amount(s.cfg.WithdrawMean)
		if _, err := s.eng.Withdraw(gross, user, user); err != nil {
			// the pool may legitimately be too shallow this early
			logger.Warn("withdrawal skipped", "user", user, "gross", gross, "err", err)
		}
	}

	if s.cfg.RewardMean > 0 {
		next, err := s.eng.NextToCrank()
		if err != nil {
			return err
		}
		stats, err := s.eng.Stats(next)
		if err != nil {
			return err
		}
		if stats.TargetStake.Sign() > 0 {
			if err := s.eng.SendValidatorRewards(next, s.amount(s.cfg.RewardMean), s.cfg.RewardFeeBps); err != nil {
				return errors.Wrap(err, "reward injection failed")
			}
		}
	}
	return nil
}

func (s *simulator) crankEpoch() error {
	s.provider.AdvanceEpoch()
	for {
		complete, err := s.eng.Crank(0)
		if err != nil {
			return errors.Wrap(err, "crank failed")
		}
		if complete {
			return nil
		}
	}
}

func (s *simulator) report() error {
	epoch, err := s.eng.CurrentEpoch()
	if err != nil {
		return err
	}
	wc, err := s.eng.WorkingCapital()
	if err != nil {
		return err
	}
	liquidity, err := s.eng.CurrentLiquidity()
	if err != nil {
		return err
	}
	target, err := s.eng.TargetLiquidity()
	if err != nil {
		return err
	}
	feeBps, err := s.eng.QuoteWithdrawalFeeBps()
	if err != nil {
		return err
	}
	supply, err := s.eng.TotalShares()
	if err != nil {
		return err
	}

	logger.Info("epoch summary",
		"epoch", epoch,
		"equity", wc.EquityBacking,
		"shares", supply,
		"staked", wc.StakedCapital,
		"cash", wc.NativeBalance,
		"reserved", wc.ReservedCapital,
		"pool", liquidity,
		"poolTarget", target,
		"feeBps", feeBps,
		"redemptions", wc.RedemptionsPayable,
		"rewardsPayable", wc.RewardsPayable,
		"unpaidRevenue", wc.UnpaidRevenue(),
	)
	for _, ev := range s.eng.DrainEvents() {
		logger.Debug("event", "name", ev.EventName(), "detail", fmt.Sprintf("%+v", ev))
	}
	return nil
}
