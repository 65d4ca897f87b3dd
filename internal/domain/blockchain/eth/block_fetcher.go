package eth

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/math"
	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

const (
	MinWaitTime = 500 // 500ms
)

type BlockHeightExceededError struct {
	ChainHeight uint64
}

func NewBlockHeightExceededError(chainHeight uint64) error {
	return &BlockHeightExceededError{
		ChainHeight: chainHeight,
	}
}

func (e *BlockHeightExceededError) Error() string {
	return fmt.Sprintf("Our block height is higher than chain's height. Chain height = %d", e.ChainHeight)
}

type defaultBlockFetcher struct {
	chain                string
	blockHeight          int64
	adjustTime           int
	blockTime            int
	thresholdUpdateBlock int
	client               EthClient
	blockCh              chan *etypes.Block
}

func newBlockFetcher(cfg config.ChainConfig, blockCh chan *etypes.Block, client EthClient) *defaultBlockFetcher {
	return &defaultBlockFetcher{
		chain:                cfg.Chain,
		blockCh:              blockCh,
		client:               client,
		blockTime:            cfg.BlockTime,
		adjustTime:           cfg.AdjustTime,
		thresholdUpdateBlock: cfg.ThresholdUpdateBlock,
	}
}

func (bf *defaultBlockFetcher) start(ctx context.Context) {
	bf.setBlockHeight(ctx)
	bf.scanBlocks(ctx)
}

func (bf *defaultBlockFetcher) setBlockHeight(ctx context.Context) {
	for {
		number, err := bf.getBlockNumber(ctx)
		if err != nil {
			xcontext.Logger(ctx).Errorf(
				"Cannot get latest block number for chain %s. Sleeping for a few seconds", bf.chain)
			if !sleep(ctx, 5*time.Second) {
				return
			}
			continue
		}

		bf.blockHeight = math.MaxInt64(int64(number)-int64(bf.thresholdUpdateBlock), 0)
		break
	}

	xcontext.Logger(ctx).Infof("Watching from block %d for chain %s", bf.blockHeight, bf.chain)
}

func (bf *defaultBlockFetcher) scanBlocks(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if bf.blockTime < 0 {
			bf.blockTime = 0
		}

		block, err := bf.tryGetBlock(ctx)
		if err != nil || block == nil {
			if _, ok := err.(*BlockHeightExceededError); !ok && err != ethereum.NotFound {
				// This err is not ETH not found or our custom error.
				xcontext.Logger(ctx).Errorf("Cannot get block at height %d for chain %s, err = %v",
					bf.blockHeight, bf.chain, err)
			}

			bf.blockTime = bf.blockTime + bf.adjustTime
			if !sleep(ctx, time.Duration(bf.blockTime)*time.Millisecond) {
				return
			}
			continue
		}

		select {
		case bf.blockCh <- block:
		case <-ctx.Done():
			return
		}
		bf.blockHeight++

		if bf.blockTime-bf.adjustTime/4 > MinWaitTime {
			bf.blockTime = bf.blockTime - bf.adjustTime/4
		}

		if !sleep(ctx, time.Duration(bf.blockTime)*time.Millisecond) {
			return
		}
	}
}

func (bf *defaultBlockFetcher) getBlock(ctx context.Context, height int64) (*etypes.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	defer cancel()

	return bf.client.BlockByNumber(ctx, big.NewInt(height))
}

// Get block with retry when block is not mined yet.
func (bf *defaultBlockFetcher) tryGetBlock(ctx context.Context) (*etypes.Block, error) {
	number, err := bf.getBlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	if int64(number)-int64(bf.thresholdUpdateBlock) < bf.blockHeight {
		return nil, NewBlockHeightExceededError(number)
	}

	block, err := bf.getBlock(ctx, bf.blockHeight)
	switch err {
	case nil:
		xcontext.Logger(ctx).Debugf("%s Height = %d", bf.chain, block.Number())
		if bf.blockHeight > 0 && int64(number)-bf.blockHeight > 5 {
			// Catching up, do not wait between blocks.
			bf.blockTime = MinWaitTime
		}
		return block, nil

	case ethereum.NotFound:
		// Sleep a few seconds and to get the block again.
		if !sleep(ctx, time.Duration(math.MinInt(bf.blockTime/4, 3000))*time.Millisecond) {
			return nil, ctx.Err()
		}
		block, err = bf.getBlock(ctx, bf.blockHeight)

		// Extend the wait time a little bit more
		bf.blockTime = bf.blockTime + bf.adjustTime
		xcontext.Logger(ctx).Debugf("New blocktime of chain %s: %v", bf.chain, bf.blockTime)
	}

	return block, err
}

func (bf *defaultBlockFetcher) getBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, RpcTimeOut)
	defer cancel()

	return bf.client.BlockNumber(ctx)
}

// sleep returns false if the context is done before d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
