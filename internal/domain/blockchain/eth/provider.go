package eth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/internal/common"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"github.com/questx-lab/swapd/pkg/xredis"
)

// ErrTransactionPending is returned by FetchTransaction for transactions which
// are not mined yet.
var ErrTransactionPending = errors.New("transaction is pending")

type EthProvider struct {
	chain  string
	client EthClient
	parser *contractParser

	redisClient xredis.Client

	heightCh chan int64
	logCh    chan *types.ContractLog
	txCh     chan *types.Transaction

	logRetryInterval time.Duration

	// Block fetcher
	blockCh      chan *ethtypes.Block
	blockFetcher *defaultBlockFetcher

	// Receipt fetcher
	receiptFetcher    receiptFetcher
	receiptResponseCh chan *txReceiptResponse
}

func NewEthProvider(
	cfg config.ChainConfig,
	client EthClient,
	redisClient xredis.Client,
	bufferSize int,
) (*EthProvider, error) {
	parser, err := newContractParser(cfg.EtherSwapAddress, cfg.ERC20SwapAddress)
	if err != nil {
		return nil, fmt.Errorf("cannot parse swap contract abi: %w", err)
	}

	blockCh := make(chan *ethtypes.Block)
	receiptResponseCh := make(chan *txReceiptResponse)

	return &EthProvider{
		chain:             cfg.Chain,
		client:            client,
		parser:            parser,
		redisClient:       redisClient,
		heightCh:          make(chan int64, bufferSize),
		logCh:             make(chan *types.ContractLog, bufferSize),
		txCh:              make(chan *types.Transaction, bufferSize),
		logRetryInterval:  time.Second,
		blockCh:           blockCh,
		blockFetcher:      newBlockFetcher(cfg, blockCh, client),
		receiptResponseCh: receiptResponseCh,
		receiptFetcher:    newReceiptFetcher(receiptResponseCh, client, cfg.Chain),
	}, nil
}

func (p *EthProvider) Chain() string {
	return p.chain
}

func (p *EthProvider) Start(ctx context.Context) {
	xcontext.Logger(ctx).Infof("Starting provider of chain %s", p.chain)

	p.client.Start(ctx)
	p.logTrackedTxs(ctx)

	go p.blockFetcher.start(ctx)
	go p.receiptFetcher.start(ctx)

	go p.waitForBlock(ctx)
	go p.waitForReceipt(ctx)
}

func (p *EthProvider) SubscribeBlocks() <-chan int64 {
	return p.heightCh
}

func (p *EthProvider) SubscribeContractLogs() <-chan *types.ContractLog {
	return p.logCh
}

func (p *EthProvider) SubscribeTransactions() <-chan *types.Transaction {
	return p.txCh
}

func (p *EthProvider) TrackTransaction(ctx context.Context, id string) error {
	xcontext.Logger(ctx).Infof("Tracking tx %s on chain %s", id, p.chain)

	key := common.RedisKeyTrackedTransaction(p.chain, normalizeHash(id))
	if err := p.redisClient.Set(ctx, key, id, 0); err != nil {
		return fmt.Errorf("cannot track tx %s: %w", id, err)
	}

	return nil
}

func (p *EthProvider) NormalizeTransactionID(id string) string {
	return normalizeHash(id)
}

func (p *EthProvider) FetchTransaction(ctx context.Context, id string) (*types.Transaction, error) {
	hash := ethcommon.HexToHash(id)

	tx, isPending, err := p.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("cannot get tx %s: %w", id, err)
	}

	if isPending {
		return nil, ErrTransactionPending
	}

	receipt, err := p.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, ErrTransactionPending
		}
		return nil, fmt.Errorf("cannot get receipt of tx %s: %w", id, err)
	}

	return toTransaction(tx, receipt)
}

// waitForBlock waits for new blocks from the block fetcher. It passes the
// tracked transactions of the block to the receipt fetcher, then delivers the
// swap contract logs and finally the height of the block. The height is not
// delivered until all logs of the block are.
func (p *EthProvider) waitForBlock(ctx context.Context) {
	for {
		var block *ethtypes.Block
		select {
		case <-ctx.Done():
			return
		case block = <-p.blockCh:
		}

		xcontext.Logger(ctx).Debugf("%s block length = %d", p.chain, len(block.Transactions()))
		txs := p.filterTrackedTxs(ctx, block)
		if len(txs) > 0 {
			xcontext.Logger(ctx).Debugf("%s tracked txs = %d", p.chain, len(txs))
			p.receiptFetcher.fetchReceipts(ctx, block.Number().Int64(), txs)
		}

		if err := p.deliverLogs(ctx, block); err != nil {
			xcontext.Logger(ctx).Errorf("Stopped delivering logs of block %d on chain %s: %v",
				block.Number().Int64(), p.chain, err)
			return
		}

		select {
		case p.heightCh <- block.Number().Int64():
		case <-ctx.Done():
			return
		}
	}
}

// deliverLogs only fails when ctx is done.
func (p *EthProvider) deliverLogs(ctx context.Context, block *ethtypes.Block) error {
	logs, err := p.filterLogs(ctx, block)
	if err != nil {
		return err
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Index < logs[j].Index
	})

	for _, log := range logs {
		contractLog, err := p.parser.parse(log)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot parse log of chain %s: %v", p.chain, err)
			continue
		}

		if contractLog == nil {
			continue
		}

		select {
		case p.logCh <- contractLog:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// filterLogs gets the swap contract logs of a block, retrying until ctx is
// done.
func (p *EthProvider) filterLogs(ctx context.Context, block *ethtypes.Block) ([]ethtypes.Log, error) {
	blockHash := block.Hash()

	var logs []ethtypes.Log
	operation := func() error {
		timeoutCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		defer cancel()

		var err error
		logs, err = p.client.FilterLogs(timeoutCtx, ethereum.FilterQuery{
			BlockHash: &blockHash,
			Addresses: p.parser.addresses(),
		})
		return err
	}

	notify := func(err error, next time.Duration) {
		xcontext.Logger(ctx).Warnf("Cannot get swap contract logs of block %d on chain %s, retry in %s: %v",
			block.Number().Int64(), p.chain, next, err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.logRetryInterval
	b.MaxElapsedTime = 0

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}

	return logs, nil
}

// logTrackedTxs reports the transactions tracked before a restart. They stay
// tracked until they are mined.
func (p *EthProvider) logTrackedTxs(ctx context.Context) {
	keys, err := p.redisClient.Keys(ctx, common.RedisPatternTrackedTransaction(p.chain))
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot list tracked txs of chain %s: %v", p.chain, err)
		return
	}

	for _, key := range keys {
		xcontext.Logger(ctx).Infof("Resumed tracking of tx %s on chain %s",
			common.FromRedisKeyTrackedTransaction(key), p.chain)
	}
}

func (p *EthProvider) filterTrackedTxs(ctx context.Context, block *ethtypes.Block) []*ethtypes.Transaction {
	ret := make([]*ethtypes.Transaction, 0)

	for _, tx := range block.Transactions() {
		key := common.RedisKeyTrackedTransaction(p.chain, normalizeHash(tx.Hash().Hex()))
		ok, err := p.redisClient.Exist(ctx, key)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot check redis tracked tx hash: %v", err)
			continue
		}

		if !ok {
			continue
		}

		if err := p.redisClient.Del(ctx, key); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot delete redis tracked tx hash: %v", err)
		}

		ret = append(ret, tx)
	}

	return ret
}

// waitForReceipt waits for receipts returned by the fetcher.
func (p *EthProvider) waitForReceipt(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case response := <-p.receiptResponseCh:
			p.extractTxs(ctx, response)
		}
	}
}

// extractTxs takes response from the receipt fetcher and converts them into transactions.
func (p *EthProvider) extractTxs(ctx context.Context, response *txReceiptResponse) {
	for i, tx := range response.txs {
		result, err := toTransaction(tx, response.receipts[i])
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot serialize ETH tx, err = %v", err)
			continue
		}

		select {
		case p.txCh <- result:
		case <-ctx.Done():
			return
		}
	}
}

func toTransaction(tx *ethtypes.Transaction, receipt *ethtypes.Receipt) (*types.Transaction, error) {
	bz, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}

	result := types.NewNativeTransaction(tx.Hash().Hex(), bz)
	if receipt.BlockNumber != nil {
		result.BlockHeight = receipt.BlockNumber.Int64()
	}

	if receipt.Status == ethtypes.ReceiptStatusFailed {
		result.Failed = true
		result.FailureReason = "transaction reverted"
	}

	return result, nil
}

func normalizeHash(hash string) string {
	return ethcommon.HexToHash(hash).Hex()
}
