// Package interest keeps per-(vault, user) snapshots of on-chain stakeable value.
package interest

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/time/rate"

	"vault-indexer/internal/observability"
)

const stakeInfoABI = `[{
	"type": "function",
	"name": "stakeInfo",
	"stateMutability": "view",
	"inputs": [{"name": "user", "type": "address"}],
	"outputs": [
		{"name": "totalTokens", "type": "uint256"},
		{"name": "totalUsd", "type": "uint256"},
		{"name": "eligibleUsd", "type": "uint256"}
	]
}]`

// Stake is one on-chain stake reading.
type Stake struct {
	TotalTokens uint256.Int
	TotalUsd    uint256.Int
	EligibleUsd uint256.Int
}

// StakeReader reads a user's stake in a vault.
type StakeReader interface {
	StakeInfo(ctx context.Context, vault, user string) (*Stake, error)
}

// ContractCaller is the read-only subset of ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainReader calls stakeInfo(address) on the vault contract. Calls are
// bounded by a token bucket and never retried.
type ChainReader struct {
	caller  ContractCaller
	abi     abi.ABI
	limiter *rate.Limiter
}

// NewChainReader creates a reader allowing rps calls per second with the
// given burst. rps <= 0 disables limiting.
func NewChainReader(caller ContractCaller, rps float64, burst int) (*ChainReader, error) {
	parsed, err := abi.JSON(strings.NewReader(stakeInfoABI))
	if err != nil {
		return nil, fmt.Errorf("parse stakeInfo abi: %w", err)
	}

	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	return &ChainReader{
		caller:  caller,
		abi:     parsed,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// StakeInfo performs one eth_call at the latest block.
func (r *ChainReader) StakeInfo(ctx context.Context, vault, user string) (*Stake, error) {
	if !common.IsHexAddress(vault) || !common.IsHexAddress(user) {
		return nil, fmt.Errorf("invalid vault or user address")
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rpc budget: %w", err)
	}

	data, err := r.abi.Pack("stakeInfo", common.HexToAddress(user))
	if err != nil {
		return nil, fmt.Errorf("pack stakeInfo: %w", err)
	}

	to := common.HexToAddress(vault)
	start := time.Now()
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	observability.RecordRPCLatency("stakeInfo", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("call stakeInfo: %w", err)
	}

	values, err := r.abi.Unpack("stakeInfo", out)
	if err != nil {
		return nil, fmt.Errorf("unpack stakeInfo: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unpack stakeInfo: expected 3 values, got %d", len(values))
	}

	var s Stake
	for i, dst := range []*uint256.Int{&s.TotalTokens, &s.TotalUsd, &s.EligibleUsd} {
		v, ok := values[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("unpack stakeInfo: value %d is %T", i, values[i])
		}
		if dst.SetFromBig(v) {
			return nil, fmt.Errorf("unpack stakeInfo: value %d overflows uint256", i)
		}
	}
	return &s, nil
}
