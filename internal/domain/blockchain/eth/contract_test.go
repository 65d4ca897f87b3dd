package eth

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/stretchr/testify/require"
)

const (
	testEtherSwap = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a101"
	testERC20Swap = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a102"
	testClaimer   = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a103"
	testRefunder  = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a104"
	testToken     = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

func newTestParser(t *testing.T) *contractParser {
	parser, err := newContractParser(testEtherSwap, testERC20Swap)
	require.NoError(t, err)
	return parser
}

func etherLockupLog(t *testing.T, parser *contractParser, preimageHash common.Hash, amount *big.Int, timelock int64) ethtypes.Log {
	event := parser.etherSwapABI.Events[lockupEvent]
	data, err := event.Inputs.NonIndexed().Pack(amount, common.HexToAddress(testClaimer), big.NewInt(timelock))
	require.NoError(t, err)

	return ethtypes.Log{
		Address: common.HexToAddress(testEtherSwap),
		Topics: []common.Hash{
			event.ID,
			preimageHash,
			common.BytesToHash(common.HexToAddress(testRefunder).Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 10,
	}
}

func claimLog(t *testing.T, parser *contractParser, preimage [32]byte, preimageHash common.Hash) ethtypes.Log {
	event := parser.etherSwapABI.Events[claimEvent]
	data, err := event.Inputs.NonIndexed().Pack(preimage)
	require.NoError(t, err)

	return ethtypes.Log{
		Address:     common.HexToAddress(testEtherSwap),
		Topics:      []common.Hash{event.ID, preimageHash},
		Data:        data,
		TxHash:      common.HexToHash("0x02"),
		BlockNumber: 11,
	}
}

func Test_contractParser_EtherLockup(t *testing.T) {
	parser := newTestParser(t)
	preimageHash := common.HexToHash("0xaa")

	result, err := parser.parse(etherLockupLog(t, parser, preimageHash, big.NewInt(500), 100))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, types.EtherLockupLog, result.Kind)
	require.Equal(t, common.HexToHash("0x01").Hex(), result.TransactionHash)
	require.Equal(t, hex.EncodeToString(preimageHash[:]), result.Lockup.PreimageHash)
	require.Equal(t, int64(500), result.Lockup.Amount.Int64())
	require.Equal(t, int64(100), result.Lockup.Timelock.Int64())
	require.Equal(t, common.HexToAddress(testClaimer).Hex(), result.Lockup.ClaimAddress)
	require.Equal(t, common.HexToAddress(testRefunder).Hex(), result.Lockup.RefundAddress)
	require.Empty(t, result.Lockup.TokenAddress)
}

func Test_contractParser_ERC20Lockup(t *testing.T) {
	parser := newTestParser(t)
	event := parser.erc20SwapABI.Events[lockupEvent]
	data, err := event.Inputs.NonIndexed().Pack(
		big.NewInt(1_000_000),
		common.HexToAddress(testToken),
		common.HexToAddress(testClaimer),
		big.NewInt(200),
	)
	require.NoError(t, err)

	result, err := parser.parse(ethtypes.Log{
		Address: common.HexToAddress(testERC20Swap),
		Topics: []common.Hash{
			event.ID,
			common.HexToHash("0xbb"),
			common.BytesToHash(common.HexToAddress(testRefunder).Bytes()),
		},
		Data: data,
	})
	require.NoError(t, err)
	require.Equal(t, types.ERC20LockupLog, result.Kind)
	require.Equal(t, common.HexToAddress(testToken).Hex(), result.Lockup.TokenAddress)
	require.Equal(t, int64(200), result.Lockup.Timelock.Int64())
}

func Test_contractParser_Claim(t *testing.T) {
	parser := newTestParser(t)

	var preimage [32]byte
	preimage[0] = 7

	result, err := parser.parse(claimLog(t, parser, preimage, common.HexToHash("0xcc")))
	require.NoError(t, err)
	require.Equal(t, types.ClaimLog, result.Kind)
	require.Equal(t, preimage[:], result.Claim.Preimage)
}

func Test_contractParser_ForeignLogs(t *testing.T) {
	parser := newTestParser(t)

	// Unknown contract.
	log := etherLockupLog(t, parser, common.HexToHash("0xaa"), big.NewInt(1), 1)
	log.Address = common.HexToAddress("0x01")
	result, err := parser.parse(log)
	require.NoError(t, err)
	require.Nil(t, result)

	// Refund events are not delivered.
	result, err = parser.parse(ethtypes.Log{
		Address: common.HexToAddress(testEtherSwap),
		Topics:  []common.Hash{parser.etherSwapABI.Events["Refund"].ID, common.HexToHash("0xaa")},
	})
	require.NoError(t, err)
	require.Nil(t, result)
}

func Test_contractParser_TimelockOutOfRange(t *testing.T) {
	parser := newTestParser(t)
	event := parser.etherSwapABI.Events[lockupEvent]

	timelock := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(100))
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(500), common.HexToAddress(testClaimer), timelock)
	require.NoError(t, err)

	result, err := parser.parse(ethtypes.Log{
		Address: common.HexToAddress(testEtherSwap),
		Topics: []common.Hash{
			event.ID,
			common.HexToHash("0xaa"),
			common.BytesToHash(common.HexToAddress(testRefunder).Bytes()),
		},
		Data: data,
	})
	require.NoError(t, err)
	require.Equal(t, 0, timelock.Cmp(result.Lockup.Timelock))
	require.False(t, result.Lockup.Timelock.IsInt64())
}
