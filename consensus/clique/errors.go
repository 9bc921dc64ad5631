// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package clique

import "errors"

var (
	errInvalidDifficulty  = errors.New("clique: invalid difficulty")
	errMissingSigner      = errors.New("clique: extra-data missing signer suffix")
	errInvalidNumber      = errors.New("clique: invalid block number")
	errInvalidTimestamp   = errors.New("clique: timestamp too close to parent")
	errUnauthorizedSigner = errors.New("clique: unauthorized signer")
)
