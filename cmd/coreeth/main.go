// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Command coreeth is a thin operator entrypoint around the core module:
// it knows how to seed a fresh chain database from a genesis description
// and open the resulting chain index, grounded on go-ethereum's cmd/geth
// "geth init" flow. It does not sync, mine, or serve JSON-RPC: those
// surfaces, and the EVM interpreter a full import command would need, are
// out of scope per spec §1.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/consensus/clique"
	"github.com/coreeth-io/coreeth/core"
	"github.com/coreeth-io/coreeth/core/rawdb"
	"github.com/coreeth-io/coreeth/ethdb"
	"github.com/coreeth-io/coreeth/ethdb/leveldb"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
	"github.com/coreeth-io/coreeth/ethdb/pebble"
	"github.com/coreeth-io/coreeth/log"
)

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory for the chain database",
		Value: "./coreeth-data",
	}
	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "key-value backend: pebble, leveldb or memory",
		Value: "pebble",
	}
	genesisFlag = &cli.StringFlag{
		Name:     "genesis",
		Usage:    "path to the genesis TOML file",
		Required: true,
	}
	signersFlag = &cli.StringSliceFlag{
		Name:  "signer",
		Usage: "authorized clique signer address (repeatable); block n is in turn for signer n mod the signer count",
	}
	periodFlag = &cli.Uint64Flag{
		Name:  "period",
		Usage: "minimum seconds between clique blocks",
		Value: 15,
	}
	epochFlag = &cli.Uint64Flag{
		Name:  "epoch",
		Usage: "clique checkpoint interval in blocks, 0 disables epoch transitions",
		Value: 30000,
	}
	jsonLogFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "emit logs as JSON instead of the colorized terminal format",
	}
)

func main() {
	app := &cli.App{
		Name:  "coreeth",
		Usage: "operator CLI for the coreeth execution-client core",
		Flags: []cli.Flag{jsonLogFlag},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool(jsonLogFlag.Name) {
				log.SetDefault(log.NewWithHandler(log.NewJSONHandler(os.Stderr)))
			}
			return nil
		},
		Commands: []*cli.Command{
			initCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "seed a fresh chain database from a genesis file",
	Flags: []cli.Flag{dataDirFlag, dbFlag, genesisFlag, signersFlag, periodFlag, epochFlag},
	Action: func(ctx *cli.Context) error {
		logger := log.New("pkg", "cmd/coreeth")

		genesis, err := LoadGenesis(ctx.String(genesisFlag.Name))
		if err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}

		db, err := openDatabase(ctx.String(dbFlag.Name), ctx.String(dataDirFlag.Name))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if existing := rawdb.ReadHeadBlockHash(db); !existing.IsZero() {
			return fmt.Errorf("database at %s already has a head block %s, refusing to overwrite", ctx.String(dataDirFlag.Name), existing)
		}

		block, err := genesis.ToBlock(db)
		if err != nil {
			return fmt.Errorf("building genesis block: %w", err)
		}

		rawSigners := ctx.StringSlice(signersFlag.Name)
		signers := make([]common.Address, 0, len(rawSigners))
		for _, s := range rawSigners {
			signers = append(signers, common.HexToAddress(s))
		}
		engine := clique.New(genesis.Config, signers, ctx.Uint64(periodFlag.Name), ctx.Uint64(epochFlag.Name))

		if _, err := core.NewBlockChain(db, genesis.Config, engine, nil, block); err != nil {
			return fmt.Errorf("opening chain index on genesis: %w", err)
		}

		logger.Info("initialized chain database",
			"genesis", block.Hash(),
			"stateRoot", block.Header().StateRoot,
			"signers", len(signers),
		)
		return nil
	},
}

func openDatabase(kind, dataDir string) (ethdb.Database, error) {
	switch kind {
	case "memory":
		return memorydb.New(), nil
	case "leveldb":
		return leveldb.Open(dataDir)
	case "pebble":
		return pebble.Open(dataDir)
	default:
		return nil, fmt.Errorf("unknown db backend %q (want pebble, leveldb or memory)", kind)
	}
}
