package watcher

import (
	"math/big"

	"github.com/questx-lab/swapd/pkg/errorx"
)

// The messages are stored as failure reasons and sent to clients.

func InvalidTimelock(actual *big.Int, expected int64) errorx.Error {
	return errorx.New(errorx.InvalidTimelock,
		"locked coins have invalid timelock %s, expected %d", actual, expected)
}

func InvalidTokenLocked(actual, expected string) errorx.Error {
	return errorx.New(errorx.InvalidTokenLocked,
		"locked token %s is not the expected token %s", actual, expected)
}

func InsufficientAmount(actual, expected int64) errorx.Error {
	return errorx.New(errorx.InsufficientAmount,
		"locked %d is less than expected %d", actual, expected)
}

func InvalidClaimAddress(actual, expected string) errorx.Error {
	return errorx.New(errorx.InvalidClaimAddress,
		"invalid claim address %s, expected %s", actual, expected)
}

func OnchainHTLCTimedOut() errorx.Error {
	return errorx.New(errorx.OnchainHTLCTimedOut, "onchain HTLC timed out")
}

func TransactionFailed(reason string) errorx.Error {
	if reason == "" {
		reason = "transaction failed"
	}

	return errorx.New(errorx.TransactionFailed, "%s", reason)
}
