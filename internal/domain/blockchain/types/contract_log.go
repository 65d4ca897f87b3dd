package types

import "math/big"

type ContractLogKind int

const (
	EtherLockupLog ContractLogKind = iota
	ERC20LockupLog
	ClaimLog
)

// ContractLog is an event of a swap contract. Lockup is set for the lockup
// kinds and Claim for ClaimLog.
type ContractLog struct {
	Kind            ContractLogKind
	TransactionHash string
	BlockHeight     int64

	Lockup *Lockup
	Claim  *Claim
}

type Lockup struct {
	// Hex encoded without prefix, as stored in the ledger.
	PreimageHash string

	// In the smallest unit of the locked asset.
	Amount *big.Int

	ClaimAddress  string
	RefundAddress string

	// uint256 in the contract.
	Timelock *big.Int

	// Empty for ether lockups.
	TokenAddress string
}

type Claim struct {
	PreimageHash string
	Preimage     []byte
}
