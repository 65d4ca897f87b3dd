package eth

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

const (
	RpcTimeOut      = time.Second * 5
	MaxShuffleTimes = 20

	refreshConnectionFrequency = 10 * time.Minute

	// Nodes lagging more than this many blocks behind the median are unhealthy.
	maxHeightDistance = 5
)

// A wrapper around eth.client so that we can mock in watcher tests.
type EthClient interface {
	Start(ctx context.Context)

	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error)
}

// Default implementation of ETH client. Since eth RPC often unstable, this client maintains a list
// of different RPC to connect to and uses the ones that are stable.
type defaultEthClient struct {
	chain   string
	allRpcs []string

	clients   []*ethclient.Client
	healthies []bool
	rpcs      []string

	mutex sync.RWMutex
}

func NewEthClients(cfg config.ChainConfig) EthClient {
	return &defaultEthClient{
		chain:   cfg.Chain,
		allRpcs: cfg.Rpcs,
	}
}

func (c *defaultEthClient) Start(ctx context.Context) {
	go c.loopCheck(ctx)
}

func (c *defaultEthClient) loopCheck(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(refreshConnectionFrequency):
			c.updateRpcs(ctx)
		}
	}
}

func (c *defaultEthClient) updateRpcs(ctx context.Context) {
	c.mutex.RLock()
	oldClients := c.clients
	c.mutex.RUnlock()

	rpcs, clients, healthies := c.getRpcsHealthiness(ctx, c.allRpcs)
	if len(clients) == 0 {
		xcontext.Logger(ctx).Errorf("No healthy rpc for chain %s, keep the old ones", c.chain)
		return
	}

	c.mutex.Lock()
	c.rpcs, c.clients, c.healthies = rpcs, clients, healthies
	c.mutex.Unlock()

	// Close all the old clients
	for _, client := range oldClients {
		client.Close()
	}
}

func (c *defaultEthClient) getRpcsHealthiness(
	ctx context.Context, allRpcs []string,
) ([]string, []*ethclient.Client, []bool) {
	clients := make([]*ethclient.Client, 0)
	rpcs := make([]string, 0)
	healthies := make([]bool, 0)

	type healthyNode struct {
		client *ethclient.Client
		rpc    string
		height int64
	}

	nodes := make([]*healthyNode, 0)
	for _, rpc := range allRpcs {
		client, err := ethclient.Dial(rpc)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot dial rpc %s of chain %s: %v", rpc, c.chain, err)
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
		number, err := client.BlockNumber(timeoutCtx)
		cancel()
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot get block number from rpc %s of chain %s: %v", rpc, c.chain, err)
			client.Close()
			continue
		}

		nodes = append(nodes, &healthyNode{client: client, rpc: rpc, height: int64(number)})
	}

	if len(nodes) == 0 {
		return rpcs, clients, healthies
	}

	// Sorts all nodes by height
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].height > nodes[j].height
	})

	// Only select some nodes within a certain height from the median
	height := nodes[len(nodes)/2].height
	for _, node := range nodes {
		distance := node.height - height
		if distance < 0 {
			distance = -distance
		}

		if distance < maxHeightDistance {
			rpcs = append(rpcs, node.rpc)
			clients = append(clients, node.client)
			healthies = append(healthies, true)
		} else {
			node.client.Close()
		}
	}

	xcontext.Logger(ctx).Infof("Healthy rpcs for chain %s: %s", c.chain, rpcs)

	return rpcs, clients, healthies
}

func (c *defaultEthClient) shuffle() ([]*ethclient.Client, []bool, []string) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	n := len(c.clients)
	if n == 0 {
		return nil, nil, nil
	}

	clients := make([]*ethclient.Client, n)
	healthy := make([]bool, n)
	rpcs := make([]string, n)

	copy(clients, c.clients)
	copy(healthy, c.healthies)
	copy(rpcs, c.rpcs)

	for i := 0; i < MaxShuffleTimes; i++ {
		x := rand.Intn(n)
		y := rand.Intn(n)

		clients[x], clients[y] = clients[y], clients[x]
		healthy[x], healthy[y] = healthy[y], healthy[x]
		rpcs[x], rpcs[y] = rpcs[y], rpcs[x]
	}

	return clients, healthy, rpcs
}

func (c *defaultEthClient) getHealthyClients(ctx context.Context) ([]*ethclient.Client, []string) {
	c.mutex.RLock()
	initialized := c.clients != nil
	c.mutex.RUnlock()

	if !initialized {
		c.updateRpcs(ctx)
	}

	// Shuffle rpcs so that we will use different healthy rpc
	clients, healthies, rpcs := c.shuffle()

	result := make([]*ethclient.Client, 0, len(clients))
	resultRpcs := make([]string, 0, len(clients))
	for i, healthy := range healthies {
		if healthy {
			result = append(result, clients[i])
			resultRpcs = append(resultRpcs, rpcs[i])
		}
	}

	return result, resultRpcs
}

// execute runs f on healthy clients until one of them succeeds. Not found
// errors are returned at once since other nodes would answer the same.
func (c *defaultEthClient) execute(
	ctx context.Context, f func(client *ethclient.Client, rpc string) (any, error),
) (any, error) {
	clients, rpcs := c.getHealthyClients(ctx)
	if len(clients) == 0 {
		return nil, fmt.Errorf("no healthy RPC for chain %s", c.chain)
	}

	var lastErr error
	for i, client := range clients {
		ret, err := f(client, rpcs[i])
		if err == nil || err == ethereum.NotFound {
			return ret, err
		}

		xcontext.Logger(ctx).Warnf("Request to rpc %s of chain %s failed: %v", rpcs[i], c.chain, err)
		lastErr = err
	}

	return nil, lastErr
}

func (c *defaultEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	num, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.BlockNumber(ctx)
	})
	if err != nil {
		return 0, err
	}

	return num.(uint64), nil
}

func (c *defaultEthClient) BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error) {
	block, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.BlockByNumber(ctx, number)
	})
	if err != nil {
		return nil, err
	}

	return block.(*ethtypes.Block), nil
}

func (c *defaultEthClient) TransactionByHash(
	ctx context.Context, hash common.Hash,
) (*ethtypes.Transaction, bool, error) {
	type result struct {
		tx        *ethtypes.Transaction
		isPending bool
	}

	ret, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		tx, isPending, err := client.TransactionByHash(ctx, hash)
		return result{tx: tx, isPending: isPending}, err
	})
	if err != nil {
		return nil, false, err
	}

	r := ret.(result)
	return r.tx, r.isPending, nil
}

func (c *defaultEthClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
	if err != nil {
		return nil, err
	}

	return receipt.(*ethtypes.Receipt), nil
}

func (c *defaultEthClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error) {
	logs, err := c.execute(ctx, func(client *ethclient.Client, rpc string) (any, error) {
		return client.FilterLogs(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	return logs.([]ethtypes.Log), nil
}
