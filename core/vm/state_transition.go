// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package vm

import (
	"github.com/holiman/uint256"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/crypto"
)

// Options tunes one transact call (spec §4.5 "transact(tx, options)"):
// transact_virtual sets SkipNonceCheck and TopUpSenderBalance to serve
// eth_call-style simulation without either mutating the real account's
// nonce expectations or requiring it to actually hold the funds.
type Options struct {
	SkipNonceCheck     bool
	TopUpSenderBalance bool
}

// Executed is the outcome of one transact call (spec §4.5 step 8). Trace and
// VmTrace are omitted: their production is the Tracer/VMTracer plugins'
// responsibility (spec §4.5 "Tracing"), not a field this package populates
// itself.
type Executed struct {
	Exception         error
	Gas               uint64
	GasUsed           uint64
	Refunded          uint64
	CumulativeGasUsed uint64
	Logs              []*types.Log
	ContractsCreated  []common.Address
	Output            []byte
}

// transact runs the shared body of transact/transact_virtual (spec §4.5
// steps 1-8) against one transaction, given the cumulative gas already spent
// by earlier transactions in the block.
func (ex *Executive) transact(tx *types.Transaction, opts Options, cumulativeGasUsed uint64) *Executed {
	sender, err := recoverSender(tx)
	if err != nil {
		return &Executed{Exception: newExecErr(ErrKindTransactionMalformed, "%v", err)}
	}
	tx.SetCachedSender(sender)

	baseGas, err := IntrinsicGas(tx.Action(), tx.Data, ex.schedule)
	if err != nil {
		return &Executed{Exception: err}
	}
	if tx.Gas < baseGas {
		return &Executed{Exception: newExecErr(ErrKindNotEnoughBaseGas, "have %d, need %d", tx.Gas, baseGas)}
	}

	if !opts.SkipNonceCheck {
		if got := ex.state.GetNonce(sender); got != tx.Nonce {
			return &Executed{Exception: newExecErr(ErrKindInvalidNonce, "state has %d, tx has %d", got, tx.Nonce)}
		}
	}

	if cumulativeGasUsed+tx.Gas > ex.block.GasLimit {
		return &Executed{Exception: newExecErr(ErrKindBlockGasLimitReached, "cumulative %d + tx %d > limit %d", cumulativeGasUsed, tx.Gas, ex.block.GasLimit)}
	}

	if opts.TopUpSenderBalance {
		need := upfrontCost(tx.Value, tx.GasPrice, tx.Gas)
		if have := ex.state.GetBalance(sender); have.Cmp(need) < 0 {
			ex.state.AddBalance(sender, new(uint256.Int).Sub(need, have))
		}
	} else if !upfrontCostFits(ex.state.GetBalance(sender), tx.Value, tx.GasPrice, tx.Gas) {
		return &Executed{Exception: newExecErr(ErrKindNotEnoughCash, "sender %s cannot afford value+gas", sender)}
	}

	if ex.schedule.EIP158 && !ex.state.Exist(sender) {
		return &Executed{Exception: newExecErr(ErrKindSenderMustExist, "sender %s does not exist", sender)}
	}

	// Step 3: deduct upfront cost, increment nonce. Both happen before
	// dispatch and are never reverted, even if the call/create itself fails
	// — only a VmError inside the frame reverts, never the transaction's own
	// bookkeeping (spec §4.5 step 3/step 7).
	ex.state.SubBalance(sender, gasPriceTimes(tx.GasPrice, tx.Gas))
	ex.state.SetNonce(sender, tx.Nonce+1)

	txCtx := TxContext{Origin: sender, GasPrice: tx.GasPrice}
	frameEx := ex.WithTxContext(txCtx)

	p := &ActionParams{
		Sender:   sender,
		Origin:   sender,
		Value:    tx.Value,
		Gas:      tx.Gas - baseGas,
		GasPrice: tx.GasPrice,
		Data:     tx.Data,
		Depth:    0,
	}

	var result *ExecutionResult
	var substate *Substate
	if tx.Action() == types.ActionCreate {
		addr := crypto.CreateAddress(sender, tx.Nonce)
		p.Address, p.CodeAddr = addr, addr
		p.Code = tx.Data
		p.Data = nil
		result, substate = frameEx.Create(p)
	} else {
		to := *tx.To
		p.Address, p.CodeAddr = to, to
		p.Code = ex.state.GetCode(to)
		p.CodeHash = ex.state.GetCodeHash(to)
		result, substate = frameEx.Call(p)
	}

	gasUsed := p.Gas - result.GasLeft
	refund := computeRefund(ex.schedule, substate.SstoreClearsRefund, substate.Suicides.Cardinality(), tx.Gas, result.GasLeft)

	// Step 6: credit gas_left+refund back to the sender, gas_used to the
	// block's author (spec §4.5 step 6) — always, including on a reverted
	// top-level frame: the transaction itself is still included and billed.
	ex.state.AddBalance(sender, gasPriceTimes(tx.GasPrice, result.GasLeft+refund))
	paidGas := baseGas + gasUsed - refund
	ex.state.AddBalance(ex.block.Coinbase, gasPriceTimes(tx.GasPrice, paidGas))

	// Step 7: kill suicided accounts (already zero-balanced and marked by
	// SelfDestruct during execution) and sweep any account the transaction
	// touched and left empty (EIP-161/158), regardless of whether the
	// top-level frame itself succeeded or reverted — the sender and
	// coinbase credits above always happen.
	ex.state.Finalise(ex.schedule.EIP158)

	var logs []*types.Log
	var exception error
	if result.Err != nil {
		exception = result.Err
	} else {
		logs = substate.Logs
		for _, l := range logs {
			ex.state.AddLog(l)
		}
	}

	return &Executed{
		Exception:         exception,
		Gas:               tx.Gas,
		GasUsed:           paidGas,
		Refunded:          refund,
		CumulativeGasUsed: cumulativeGasUsed + paidGas,
		Logs:              logs,
		ContractsCreated:  substate.ContractsCreated,
		Output:            result.Output,
	}
}

// Transact runs a real transaction: nonce and affordability are both
// enforced (spec §4.5 "transact").
func (ex *Executive) Transact(tx *types.Transaction, cumulativeGasUsed uint64) *Executed {
	return ex.transact(tx, Options{}, cumulativeGasUsed)
}

// TransactVirtual runs tx for simulation (eth_call-style): the sender's
// nonce is not checked and its balance is topped up to whatever the call
// needs, rather than rejected for insufficient funds (spec §4.5
// "transact_virtual ... tops up sender balance and skips nonce checks").
func (ex *Executive) TransactVirtual(tx *types.Transaction) *Executed {
	return ex.transact(tx, Options{SkipNonceCheck: true, TopUpSenderBalance: true}, 0)
}

// recoverSender runs ecrecover over tx's signing hash (spec §4.5 step 1).
func recoverSender(tx *types.Transaction) (common.Address, error) {
	if addr, ok := tx.CachedSender(); ok {
		return addr, nil
	}
	sig := make([]byte, 65)
	tx.R.WriteToSlice(sig[0:32])
	tx.S.WriteToSlice(sig[32:64])
	v := tx.V.Uint64()
	if v >= 27 {
		v -= 27
	}
	sig[64] = byte(v)
	return crypto.SigToAddress(tx.SigningHash().Bytes(), sig)
}
