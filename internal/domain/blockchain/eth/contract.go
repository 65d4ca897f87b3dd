package eth

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
)

const etherSwapABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"bytes32","name":"preimageHash","type":"bytes32"},
		{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},
		{"indexed":false,"internalType":"address","name":"claimAddress","type":"address"},
		{"indexed":true,"internalType":"address","name":"refundAddress","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"timelock","type":"uint256"}
	],"name":"Lockup","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"bytes32","name":"preimageHash","type":"bytes32"},
		{"indexed":false,"internalType":"bytes32","name":"preimage","type":"bytes32"}
	],"name":"Claim","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"bytes32","name":"preimageHash","type":"bytes32"}
	],"name":"Refund","type":"event"}
]`

const erc20SwapABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"bytes32","name":"preimageHash","type":"bytes32"},
		{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},
		{"indexed":false,"internalType":"address","name":"tokenAddress","type":"address"},
		{"indexed":false,"internalType":"address","name":"claimAddress","type":"address"},
		{"indexed":true,"internalType":"address","name":"refundAddress","type":"address"},
		{"indexed":false,"internalType":"uint256","name":"timelock","type":"uint256"}
	],"name":"Lockup","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"bytes32","name":"preimageHash","type":"bytes32"},
		{"indexed":false,"internalType":"bytes32","name":"preimage","type":"bytes32"}
	],"name":"Claim","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"internalType":"bytes32","name":"preimageHash","type":"bytes32"}
	],"name":"Refund","type":"event"}
]`

const (
	lockupEvent = "Lockup"
	claimEvent  = "Claim"
)

type lockupEventData struct {
	PreimageHash  [32]byte
	Amount        *big.Int
	TokenAddress  common.Address
	ClaimAddress  common.Address
	RefundAddress common.Address
	Timelock      *big.Int
}

type claimEventData struct {
	PreimageHash [32]byte
	Preimage     [32]byte
}

// contractParser decodes the logs of the EtherSwap and ERC20Swap contracts.
type contractParser struct {
	etherSwapAddress common.Address
	erc20SwapAddress common.Address

	etherSwapABI abi.ABI
	erc20SwapABI abi.ABI
}

func newContractParser(etherSwapAddress, erc20SwapAddress string) (*contractParser, error) {
	etherABI, err := abi.JSON(strings.NewReader(etherSwapABI))
	if err != nil {
		return nil, err
	}

	erc20ABI, err := abi.JSON(strings.NewReader(erc20SwapABI))
	if err != nil {
		return nil, err
	}

	return &contractParser{
		etherSwapAddress: common.HexToAddress(etherSwapAddress),
		erc20SwapAddress: common.HexToAddress(erc20SwapAddress),
		etherSwapABI:     etherABI,
		erc20SwapABI:     erc20ABI,
	}, nil
}

func (p *contractParser) addresses() []common.Address {
	return []common.Address{p.etherSwapAddress, p.erc20SwapAddress}
}

// parse returns nil without error for logs which are not lockups or claims of
// the swap contracts.
func (p *contractParser) parse(log ethtypes.Log) (*types.ContractLog, error) {
	if log.Removed || len(log.Topics) == 0 {
		return nil, nil
	}

	var contractABI abi.ABI
	isERC20 := false
	switch log.Address {
	case p.etherSwapAddress:
		contractABI = p.etherSwapABI
	case p.erc20SwapAddress:
		contractABI = p.erc20SwapABI
		isERC20 = true
	default:
		return nil, nil
	}

	event, err := contractABI.EventByID(log.Topics[0])
	if err != nil {
		return nil, nil
	}

	result := &types.ContractLog{
		TransactionHash: log.TxHash.Hex(),
		BlockHeight:     int64(log.BlockNumber),
	}

	switch event.Name {
	case lockupEvent:
		var data lockupEventData
		if err := unpack(contractABI, event, log, &data); err != nil {
			return nil, err
		}

		result.Kind = types.EtherLockupLog
		result.Lockup = &types.Lockup{
			PreimageHash:  hex.EncodeToString(data.PreimageHash[:]),
			Amount:        data.Amount,
			ClaimAddress:  data.ClaimAddress.Hex(),
			RefundAddress: data.RefundAddress.Hex(),
			Timelock:      data.Timelock,
		}

		if isERC20 {
			result.Kind = types.ERC20LockupLog
			result.Lockup.TokenAddress = data.TokenAddress.Hex()
		}

	case claimEvent:
		var data claimEventData
		if err := unpack(contractABI, event, log, &data); err != nil {
			return nil, err
		}

		result.Kind = types.ClaimLog
		result.Claim = &types.Claim{
			PreimageHash: hex.EncodeToString(data.PreimageHash[:]),
			Preimage:     data.Preimage[:],
		}

	default:
		return nil, nil
	}

	return result, nil
}

func unpack(contractABI abi.ABI, event *abi.Event, log ethtypes.Log, out any) error {
	if err := contractABI.UnpackIntoInterface(out, event.Name, log.Data); err != nil {
		return fmt.Errorf("cannot unpack %s log of tx %s: %w", event.Name, log.TxHash.Hex(), err)
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("cannot parse topics of %s log of tx %s: %w", event.Name, log.TxHash.Hex(), err)
	}

	return nil
}
