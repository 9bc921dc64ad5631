// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/params"
)

// IntrinsicGas computes the gas charged before execution for a
// transaction's payload size and action (spec §4.5 step 1, GLOSSARY
// "Intrinsic gas"): 21000 (or 53000 for a contract creation) plus a
// per-byte cost for the data payload, zero and non-zero bytes priced
// separately.
func IntrinsicGas(action types.TxAction, data []byte, schedule params.Schedule) (uint64, error) {
	var gas uint64
	if action == types.ActionCreate {
		gas = schedule.TxGasContractCreation
	} else {
		gas = schedule.TxGas
	}

	var zeroes, nonZeroes uint64
	for _, b := range data {
		if b == 0 {
			zeroes++
		} else {
			nonZeroes++
		}
	}
	nonZeroGas := schedule.TxDataNonZeroGasFrontier
	if schedule.TxDataNonZeroGasIstanbul != 0 {
		nonZeroGas = schedule.TxDataNonZeroGasIstanbul
	}

	if nonZeroes > 0 && (gas+nonZeroes*nonZeroGas)/nonZeroGas != nonZeroes+gas/nonZeroGas {
		return 0, newExecErr(ErrKindTransactionMalformed, "intrinsic gas overflow (non-zero data)")
	}
	gas += nonZeroes * nonZeroGas

	if zeroes > 0 && (gas+zeroes*schedule.TxDataZeroGas)/schedule.TxDataZeroGas != zeroes+gas/schedule.TxDataZeroGas {
		return 0, newExecErr(ErrKindTransactionMalformed, "intrinsic gas overflow (zero data)")
	}
	gas += zeroes * schedule.TxDataZeroGas

	return gas, nil
}

// upfrontCostFits reports whether balance covers value + gas*gasPrice,
// computed in U512 (spec §4.5 step 2: "the latter computed in U512 to avoid
// overflow"). uint256.Int saturates/overflows silently on Mul/Add, so the
// widening check is done in math/big — the dependency set ships no
// fixed-width U512 type.
func upfrontCostFits(balance, value, gasPrice *uint256.Int, gas uint64) bool {
	cost := new(big.Int).Mul(gasPrice.ToBig(), new(big.Int).SetUint64(gas))
	cost.Add(cost, value.ToBig())
	return balance.ToBig().Cmp(cost) >= 0
}

// upfrontCost returns value + gas*gasPrice as a uint256. The sum is formed
// in math/big and truncated to 256 bits; no affordability check is made
// here (TransactVirtual's balance top-up calls it without one).
func upfrontCost(value, gasPrice *uint256.Int, gas uint64) *uint256.Int {
	cost := new(big.Int).Mul(gasPrice.ToBig(), new(big.Int).SetUint64(gas))
	cost.Add(cost, value.ToBig())
	out, _ := uint256.FromBig(cost)
	return out
}

// gasPriceTimes returns gas*gasPrice as a uint256.
func gasPriceTimes(gasPrice *uint256.Int, gas uint64) *uint256.Int {
	return new(uint256.Int).Mul(gasPrice, new(uint256.Int).SetUint64(gas))
}

// computeRefund applies spec §4.5 step 5's refund bound:
//
//	refunds_bound = SSTORE_clears * SSTORE_refund_gas + suicides.len * SUICIDE_refund_gas
//	refund = min(refunds_bound, (tx.gas - gas_left) / 2)
//
// sstoreClearsRefund is the substate's accumulated SSTORE-clears refund
// (spec §3 Substate.sstore_clears_refund), already expressed in gas and
// summed over every successfully merged frame. The StateDB's own refund
// counter (AddRefund/SubRefund) is not read here, and Externalities offers
// no method that adds to the substate's counter. It may be negative
// after EIP-1283/2200 accounting (a transaction that un-clears more slots
// than it clears); the bound is clamped to zero since a refund can never
// reduce gas used below zero. txGas is the full tx.gas, intrinsic gas
// included, matching go-ethereum's gasUsed = initialGas - gasRemaining.
func computeRefund(schedule params.Schedule, sstoreClearsRefund int64, numSuicides int, txGas, gasLeft uint64) uint64 {
	bound := sstoreClearsRefund + int64(numSuicides)*int64(schedule.SelfdestructRefundGas)
	if bound < 0 {
		bound = 0
	}
	cap := (txGas - gasLeft) / 2
	if uint64(bound) > cap {
		return cap
	}
	return uint64(bound)
}
