package normalizer

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/logfilter"
)

const (
	testVault = "0x00000000000000000000000000000000000000aa"
	testUser  = "0x1111111111111111111111111111111111111111"
	testTx    = "0xabababababababababababababababababababababababababababababababab"
)

var testCondition = common.HexToHash("0xc0ffee00000000000000000000000000000000000000000000000000000000ee")

func mustNormalizer(t *testing.T, family domain.VaultFamily) *Normalizer {
	t.Helper()
	n, err := New(family)
	if err != nil {
		t.Fatalf("New(%s): %v", family, err)
	}
	return n
}

// buildLog encodes an event the way a vault contract would emit it.
func buildLog(t *testing.T, n *Normalizer, name string, logIndex string, indexed []common.Hash, data ...interface{}) logfilter.FilteredLog {
	t.Helper()
	ev, ok := n.abi.Events[name]
	if !ok {
		t.Fatalf("no event %s", name)
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	topics := []string{ev.ID.Hex()}
	for _, h := range indexed {
		topics = append(topics, h.Hex())
	}
	return logfilter.FilteredLog{
		Log: logfilter.Log{
			Address:         testVault,
			Topics:          topics,
			Data:            hexutil.Encode(packed),
			BlockNumber:     "0x10",
			TransactionHash: testTx,
			LogIndex:        logfilter.Quantity(logIndex),
		},
		VaultAddress: testVault,
		Timestamp:    "1700000000",
	}
}

func userTopic() common.Hash {
	return common.BytesToHash(common.HexToAddress(testUser).Bytes())
}

func TestNormalize_GenericDeposit(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGeneric)
	log := buildLog(t, n, "Deposit", "0x2",
		[]common.Hash{userTopic(), testCondition},
		big.NewInt(500), big.NewInt(300))

	acts, err := n.Normalize(log)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(acts))
	}
	a := acts[0]
	if a.Type != domain.ActivityDeposit {
		t.Errorf("type = %s, want Deposit", a.Type)
	}
	if a.UserAddress != testUser {
		t.Errorf("user = %s, want %s", a.UserAddress, testUser)
	}
	if a.ConditionID != hexutil.Encode(testCondition[:]) {
		t.Errorf("condition = %s", a.ConditionID)
	}
	if a.MarketIndex != nil {
		t.Errorf("generic activity should not carry a market index")
	}
	if a.YesAmount.Uint64() != 500 || a.NoAmount.Uint64() != 300 {
		t.Errorf("amounts = %s/%s, want 500/300", a.YesAmount.Dec(), a.NoAmount.Dec())
	}
	if a.LogIndex != 2 || a.BlockNumber != 16 || a.Timestamp != 1700000000 {
		t.Errorf("meta = logIndex %d block %d ts %d", a.LogIndex, a.BlockNumber, a.Timestamp)
	}
	if a.TxHash != testTx || a.VaultAddress != testVault {
		t.Errorf("tx/vault = %s/%s", a.TxHash, a.VaultAddress)
	}
	if len(a.ID) != 64 {
		t.Errorf("id length = %d, want 64", len(a.ID))
	}
}

func TestNormalize_DeterministicID(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGeneric)
	log := buildLog(t, n, "Withdraw", "7",
		[]common.Hash{userTopic(), testCondition},
		big.NewInt(1), big.NewInt(2))

	first, err := n.Normalize(log)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	second, err := n.Normalize(log)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Errorf("redelivered log produced a different id")
	}
}

func TestNormalize_GenericClaim(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGeneric)
	log := buildLog(t, n, "Claim", "0x0",
		[]common.Hash{userTopic(), testCondition},
		big.NewInt(40), big.NewInt(90))

	acts, err := n.Normalize(log)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	a := acts[0]
	if a.Type != domain.ActivityClaim {
		t.Errorf("type = %s, want Claim", a.Type)
	}
	if a.YieldAmount.Uint64() != 40 || a.UsdAmount.Uint64() != 90 {
		t.Errorf("claim amounts = %s/%s", a.YieldAmount.Dec(), a.UsdAmount.Dec())
	}
}

func TestNormalize_StatusChanged(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGeneric)

	unlocked := buildLog(t, n, "MarketStatusChanged", "0x1",
		[]common.Hash{testCondition}, uint8(3))
	acts, err := n.Normalize(unlocked)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if acts[0].Type != domain.ActivityMarketEnded {
		t.Errorf("type = %s, want MarketEnded", acts[0].Type)
	}
	if acts[0].UserAddress != "" {
		t.Errorf("lifecycle event must not carry a user")
	}

	locked := buildLog(t, n, "MarketStatusChanged", "0x2",
		[]common.Hash{testCondition}, uint8(2))
	_, err = n.Normalize(locked)
	if !errors.Is(err, ErrUnclassified) {
		t.Errorf("expected ErrUnclassified, got %v", err)
	}
}

func TestNormalize_GenesisBatchDeposit(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGenesis)
	log := buildLog(t, n, "BatchDeposit", "0x3",
		[]common.Hash{userTopic()},
		[]*big.Int{big.NewInt(0), big.NewInt(4)},
		[]*big.Int{big.NewInt(10), big.NewInt(20)},
		[]*big.Int{big.NewInt(1), big.NewInt(2)})

	acts, err := n.Normalize(log)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(acts))
	}
	if acts[0].ID == acts[1].ID {
		t.Errorf("legs share an id")
	}
	if *acts[0].MarketIndex != 0 || *acts[1].MarketIndex != 4 {
		t.Errorf("market indexes = %d/%d", *acts[0].MarketIndex, *acts[1].MarketIndex)
	}
	if acts[1].YesAmount.Uint64() != 20 || acts[1].NoAmount.Uint64() != 2 {
		t.Errorf("leg 1 amounts = %s/%s", acts[1].YesAmount.Dec(), acts[1].NoAmount.Dec())
	}
	for _, a := range acts {
		if a.Type != domain.ActivityBatchDeposit {
			t.Errorf("type = %s", a.Type)
		}
		if a.ConditionID != "" {
			t.Errorf("campaign leg should be resolved later, got %s", a.ConditionID)
		}
	}
}

func TestNormalize_BatchLegMismatch(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGenesis)
	log := buildLog(t, n, "BatchWithdraw", "0x3",
		[]common.Hash{userTopic()},
		[]*big.Int{big.NewInt(0), big.NewInt(1)},
		[]*big.Int{big.NewInt(10)},
		[]*big.Int{big.NewInt(1), big.NewInt(2)})

	_, err := n.Normalize(log)
	if !errors.Is(err, ErrMalformedLog) {
		t.Errorf("expected ErrMalformedLog, got %v", err)
	}
}

func TestNormalize_CampaignMarketAdded(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyPromotion)
	log := buildLog(t, n, "MarketAdded", "0x0",
		[]common.Hash{common.BigToHash(big.NewInt(9))},
		[32]byte(testCondition))

	acts, err := n.Normalize(log)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	a := acts[0]
	if a.MarketIndex == nil || *a.MarketIndex != 9 {
		t.Fatalf("market index = %v, want 9", a.MarketIndex)
	}
	if a.ConditionID != hexutil.Encode(testCondition[:]) {
		t.Errorf("condition = %s", a.ConditionID)
	}
}

func TestNormalize_PromotionHasNoBatch(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyPromotion)
	if _, ok := n.EventID("BatchDeposit"); ok {
		t.Errorf("promotion vaults do not emit batch events")
	}

	genesis := mustNormalizer(t, domain.FamilyGenesis)
	log := buildLog(t, genesis, "BatchDeposit", "0x3",
		[]common.Hash{userTopic()},
		[]*big.Int{big.NewInt(0)}, []*big.Int{big.NewInt(1)}, []*big.Int{big.NewInt(1)})

	_, err := n.Normalize(log)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestNormalize_Faults(t *testing.T) {
	n := mustNormalizer(t, domain.FamilyGeneric)
	good := buildLog(t, n, "Deposit", "0x1",
		[]common.Hash{userTopic(), testCondition},
		big.NewInt(1), big.NewInt(1))

	tests := []struct {
		name   string
		mutate func(l *logfilter.FilteredLog)
		want   error
	}{
		{
			name:   "removed",
			mutate: func(l *logfilter.FilteredLog) { l.Removed = true },
			want:   ErrRemovedLog,
		},
		{
			name:   "unknown topic0",
			mutate: func(l *logfilter.FilteredLog) { l.Topics = append([]string{common.Hash{1}.Hex()}, l.Topics[1:]...) },
			want:   ErrUnknownEvent,
		},
		{
			name:   "no topics",
			mutate: func(l *logfilter.FilteredLog) { l.Topics = nil },
			want:   ErrMalformedLog,
		},
		{
			name:   "missing indexed topic",
			mutate: func(l *logfilter.FilteredLog) { l.Topics = l.Topics[:2] },
			want:   ErrMalformedLog,
		},
		{
			name:   "truncated data",
			mutate: func(l *logfilter.FilteredLog) { l.Data = l.Data[:34] },
			want:   ErrMalformedLog,
		},
		{
			name:   "bad log index",
			mutate: func(l *logfilter.FilteredLog) { l.LogIndex = "zz" },
			want:   ErrMalformedLog,
		},
		{
			name:   "missing timestamp",
			mutate: func(l *logfilter.FilteredLog) { l.Timestamp = "" },
			want:   ErrMalformedLog,
		},
		{
			name:   "short tx hash",
			mutate: func(l *logfilter.FilteredLog) { l.TransactionHash = "0xabcd" },
			want:   ErrMalformedLog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := good
			l.Topics = append([]string(nil), good.Topics...)
			tt.mutate(&l)

			_, err := n.Normalize(l)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, domain.ErrIntegrityFault) {
				t.Errorf("fault should wrap ErrIntegrityFault: %v", err)
			}
		})
	}
}

func TestNew_UnknownFamily(t *testing.T) {
	if _, err := New("lottery"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
