package interest

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage/memory"
)

const (
	vaultAddr = "0x00000000000000000000000000000000000000bb"
	userAddr  = "0x0000000000000000000000000000000000000abc"
)

type fakeCaller struct {
	calls  int
	to     common.Address
	input  []byte
	output []byte
	err    error
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	f.to = *msg.To
	f.input = msg.Data
	return f.output, f.err
}

func packStake(t *testing.T, tokens, usd, eligible int64) []byte {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(stakeInfoABI))
	require.NoError(t, err)
	out, err := parsed.Methods["stakeInfo"].Outputs.Pack(big.NewInt(tokens), big.NewInt(usd), big.NewInt(eligible))
	require.NoError(t, err)
	return out
}

func TestChainReader_StakeInfo(t *testing.T) {
	caller := &fakeCaller{output: packStake(t, 10, 20, 15)}
	r, err := NewChainReader(caller, 0, 0)
	require.NoError(t, err)

	s, err := r.StakeInfo(context.Background(), vaultAddr, userAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), s.TotalTokens.Uint64())
	assert.Equal(t, uint64(20), s.TotalUsd.Uint64())
	assert.Equal(t, uint64(15), s.EligibleUsd.Uint64())

	assert.Equal(t, common.HexToAddress(vaultAddr), caller.to)
	require.Len(t, caller.input, 4+32)
	assert.Equal(t, r.abi.Methods["stakeInfo"].ID, caller.input[:4])
}

func TestChainReader_Errors(t *testing.T) {
	caller := &fakeCaller{err: errors.New("connection refused")}
	r, err := NewChainReader(caller, 0, 0)
	require.NoError(t, err)

	_, err = r.StakeInfo(context.Background(), vaultAddr, userAddr)
	assert.Error(t, err)
	assert.Equal(t, 1, caller.calls, "no retry")

	_, err = r.StakeInfo(context.Background(), "not-an-address", userAddr)
	assert.Error(t, err)

	caller.err = nil
	caller.output = []byte{0x01}
	_, err = r.StakeInfo(context.Background(), vaultAddr, userAddr)
	assert.Error(t, err)
}

func TestChainReader_RateLimitHonorsContext(t *testing.T) {
	caller := &fakeCaller{output: packStake(t, 1, 1, 1)}
	r, err := NewChainReader(caller, 0.001, 1)
	require.NoError(t, err)

	_, err = r.StakeInfo(context.Background(), vaultAddr, userAddr)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.StakeInfo(ctx, vaultAddr, userAddr)
	assert.Error(t, err)
	assert.Equal(t, 1, caller.calls)
}

func TestService_SnapshotUpserts(t *testing.T) {
	db := memory.New()
	caller := &fakeCaller{output: packStake(t, 10, 20, 15)}
	r, err := NewChainReader(caller, 0, 0)
	require.NoError(t, err)

	svc := NewService(db.Interests(), r, []string{vaultAddr}, nil)
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, vaultAddr, strings.ToUpper(userAddr))
	require.NoError(t, err)

	caller.output = packStake(t, 30, 40, 35)
	_, err = svc.Snapshot(ctx, vaultAddr, userAddr)
	require.NoError(t, err)

	got, err := svc.Get(ctx, vaultAddr, userAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), got.TotalTokens.Uint64())
	assert.Equal(t, uint64(35), got.EligibleUsd.Uint64())
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt), "upsert keeps created_at")
}

func TestService_Errors(t *testing.T) {
	db := memory.New()
	caller := &fakeCaller{err: errors.New("boom")}
	r, err := NewChainReader(caller, 0, 0)
	require.NoError(t, err)

	svc := NewService(db.Interests(), r, []string{vaultAddr}, nil)
	ctx := context.Background()

	_, err = svc.Snapshot(ctx, vaultAddr, userAddr)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Get(ctx, vaultAddr, userAddr)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "failed read writes nothing")

	_, err = svc.Snapshot(ctx, "0x00000000000000000000000000000000000000cc", userAddr)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Get(ctx, "", userAddr)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
