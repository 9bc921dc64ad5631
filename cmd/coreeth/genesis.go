// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/holiman/uint256"
	"github.com/naoina/toml"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/state"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/params"
)

// GenesisAccount seeds one account's balance, nonce and code into the
// genesis world state (spec §4.1 "world-state overlay", component D).
type GenesisAccount struct {
	Balance *big.Int `toml:"balance"`
	Nonce   uint64   `toml:"nonce"`
	Code    []byte   `toml:"code"`
}

// Genesis is the local/dev-chain description loaded from a TOML file (spec
// §1 Non-goal "networking/sync" means no block is ever fetched for block
// zero; it has to be built locally from a description like this one,
// mirroring go-ethereum's genesis.json but in the TOML format
// params.ChainConfig's own struct tags already target).
type Genesis struct {
	Config     *params.ChainConfig        `toml:"config"`
	Author     common.Address             `toml:"author"`
	Timestamp  uint64                     `toml:"timestamp"`
	ExtraData  []byte                     `toml:"extra_data"`
	GasLimit   uint64                     `toml:"gas_limit"`
	Difficulty *big.Int                   `toml:"difficulty"`
	Alloc      map[string]*GenesisAccount `toml:"alloc"`
}

// LoadGenesis reads and parses a genesis TOML file.
func LoadGenesis(path string) (*Genesis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g := new(Genesis)
	if err := toml.NewDecoder(f).Decode(g); err != nil {
		return nil, fmt.Errorf("parsing genesis %s: %w", path, err)
	}
	if g.Config == nil {
		return nil, fmt.Errorf("genesis %s: missing [config] section", path)
	}
	if g.Difficulty == nil {
		g.Difficulty = big.NewInt(1)
	}
	return g, nil
}

// ToBlock seeds every Alloc entry into a fresh world-state overlay rooted
// at the empty trie, commits it, and assembles the resulting state root
// into block zero (spec §4.1 "Genesis" in the GLOSSARY: "block zero, whose
// state root is agreed upon out of band rather than derived by replaying
// any transaction").
func (g *Genesis) ToBlock(db ethdb.Database) (*types.Block, error) {
	statedb, err := state.New(common.Hash{}, state.NewDatabase(db))
	if err != nil {
		return nil, fmt.Errorf("opening genesis state: %w", err)
	}

	for hexAddr, account := range g.Alloc {
		addr := common.HexToAddress(hexAddr)
		statedb.CreateAccount(addr)
		if account.Balance != nil {
			balance, overflow := uint256.FromBig(account.Balance)
			if overflow {
				return nil, fmt.Errorf("genesis balance for %s overflows 256 bits", hexAddr)
			}
			statedb.AddBalance(addr, balance)
		}
		if account.Nonce != 0 {
			statedb.SetNonce(addr, account.Nonce)
		}
		if len(account.Code) != 0 {
			statedb.SetCode(addr, account.Code)
		}
	}

	root, err := statedb.Commit(false)
	if err != nil {
		return nil, fmt.Errorf("committing genesis state: %w", err)
	}

	header := &types.Header{
		Author:           g.Author,
		StateRoot:        root,
		TransactionsRoot: types.DeriveSha(types.Transactions{}),
		ReceiptsRoot:     types.DeriveSha(types.Receipts{}),
		Difficulty:       new(big.Int).Set(g.Difficulty),
		Number:           0,
		GasLimit:         g.GasLimit,
		Timestamp:        g.Timestamp,
		ExtraData:        g.ExtraData,
	}
	return types.NewBlock(header, &types.Body{}), nil
}
