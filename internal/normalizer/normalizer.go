// Package normalizer decodes filtered vault logs into canonical activities.
package normalizer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/idhash"
	"vault-indexer/internal/logfilter"
)

// Normalization failures. All of them are integrity faults: the log is
// skipped and the rest of the batch continues.
var (
	ErrUnknownEvent = fmt.Errorf("%w: unknown event signature", domain.ErrIntegrityFault)
	ErrMalformedLog = fmt.Errorf("%w: malformed log", domain.ErrIntegrityFault)
	ErrRemovedLog   = fmt.Errorf("%w: removed log", domain.ErrIntegrityFault)
	ErrUnclassified = fmt.Errorf("%w: unclassifiable event", domain.ErrIntegrityFault)
)

const (
	eventDeposit             = "Deposit"
	eventBatchDeposit        = "BatchDeposit"
	eventWithdraw            = "Withdraw"
	eventBatchWithdraw       = "BatchWithdraw"
	eventClaim               = "Claim"
	eventMarketAdded         = "MarketAdded"
	eventMarketEnded         = "MarketEnded"
	eventMarketStatusChanged = "MarketStatusChanged"
)

// statusUnlocked is the on-chain enum value of an unlocked market.
const statusUnlocked = 3

// Normalizer decodes logs of one vault family.
type Normalizer struct {
	family domain.VaultFamily
	abi    abi.ABI
	byID   map[common.Hash]abi.Event
}

// New builds a normalizer for a vault family.
func New(family domain.VaultFamily) (*Normalizer, error) {
	raw, ok := ABIFor(string(family))
	if !ok {
		return nil, fmt.Errorf("%w: unknown vault family %q", domain.ErrValidation, family)
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", family, err)
	}
	byID := make(map[common.Hash]abi.Event, len(parsed.Events))
	for _, ev := range parsed.Events {
		byID[ev.ID] = ev
	}
	return &Normalizer{family: family, abi: parsed, byID: byID}, nil
}

// Family returns the vault family this normalizer decodes.
func (n *Normalizer) Family() domain.VaultFamily {
	return n.family
}

// EventID returns the topic0 of a named event, for building logs in tests
// and fixtures.
func (n *Normalizer) EventID(name string) (common.Hash, bool) {
	ev, ok := n.abi.Events[name]
	if !ok {
		return common.Hash{}, false
	}
	return ev.ID, true
}

// Normalize decodes one log into zero or more activities. Single events
// produce one activity; batch events produce one per leg. A nil slice with
// a nil error never happens: either activities or an error is returned.
//
// Campaign-family activities carry MarketIndex; ConditionID is resolved
// later against the market table (except MarketAdded, which carries both).
func (n *Normalizer) Normalize(l logfilter.FilteredLog) ([]*domain.Activity, error) {
	if l.Removed {
		return nil, ErrRemovedLog
	}
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", ErrMalformedLog)
	}

	topics := make([]common.Hash, len(l.Topics))
	for i, t := range l.Topics {
		h, err := parseHash(t)
		if err != nil {
			return nil, fmt.Errorf("%w: topic %d: %v", ErrMalformedLog, i, err)
		}
		topics[i] = h
	}

	ev, ok := n.byID[topics[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, topics[0].Hex())
	}

	values, err := n.decode(ev, topics[1:], l.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedLog, ev.Name, err)
	}

	base, err := baseActivity(l)
	if err != nil {
		return nil, err
	}

	switch ev.Name {
	case eventDeposit, eventWithdraw:
		a, err := n.transfer(base, domain.ActivityType(ev.Name), values)
		if err != nil {
			return nil, err
		}
		return []*domain.Activity{a}, nil

	case eventBatchDeposit, eventBatchWithdraw:
		return n.batch(base, domain.ActivityType(ev.Name), values)

	case eventClaim:
		a, err := n.claim(base, values)
		if err != nil {
			return nil, err
		}
		return []*domain.Activity{a}, nil

	case eventMarketAdded, eventMarketEnded:
		a, err := n.lifecycle(base, domain.ActivityType(ev.Name), values)
		if err != nil {
			return nil, err
		}
		return []*domain.Activity{a}, nil

	case eventMarketStatusChanged:
		status, ok := values["status"].(uint8)
		if !ok {
			return nil, fmt.Errorf("%w: status", ErrMalformedLog)
		}
		if status != statusUnlocked {
			return nil, fmt.Errorf("%w: status change to %d", ErrUnclassified, status)
		}
		a, err := n.lifecycle(base, domain.ActivityMarketEnded, values)
		if err != nil {
			return nil, err
		}
		return []*domain.Activity{a}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
}

func (n *Normalizer) decode(ev abi.Event, topics []common.Hash, data string) (map[string]interface{}, error) {
	values := make(map[string]interface{})

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(topics) != len(indexed) {
		return nil, fmt.Errorf("expected %d indexed topics, got %d", len(indexed), len(topics))
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
		return nil, err
	}

	payload, err := decodeData(data)
	if err != nil {
		return nil, err
	}
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := n.abi.UnpackIntoMap(values, ev.Name, payload); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func (n *Normalizer) transfer(base domain.Activity, typ domain.ActivityType, values map[string]interface{}) (*domain.Activity, error) {
	a := base
	a.Type = typ
	a.ID = idhash.ComputeActivityID(a.TxHash, a.LogIndex, 0)

	user, err := addressArg(values, "user")
	if err != nil {
		return nil, err
	}
	a.UserAddress = user

	if err := n.marketRef(&a, values); err != nil {
		return nil, err
	}
	if err := uintArg(values, "yesAmount", &a.YesAmount); err != nil {
		return nil, err
	}
	if err := uintArg(values, "noAmount", &a.NoAmount); err != nil {
		return nil, err
	}
	return &a, nil
}

func (n *Normalizer) claim(base domain.Activity, values map[string]interface{}) (*domain.Activity, error) {
	a := base
	a.Type = domain.ActivityClaim
	a.ID = idhash.ComputeActivityID(a.TxHash, a.LogIndex, 0)

	user, err := addressArg(values, "user")
	if err != nil {
		return nil, err
	}
	a.UserAddress = user

	if err := n.marketRef(&a, values); err != nil {
		return nil, err
	}
	if err := uintArg(values, "yieldAmount", &a.YieldAmount); err != nil {
		return nil, err
	}
	if err := uintArg(values, "usdAmount", &a.UsdAmount); err != nil {
		return nil, err
	}
	return &a, nil
}

func (n *Normalizer) batch(base domain.Activity, typ domain.ActivityType, values map[string]interface{}) ([]*domain.Activity, error) {
	user, err := addressArg(values, "user")
	if err != nil {
		return nil, err
	}
	indexes, err := bigSliceArg(values, "marketIndexes")
	if err != nil {
		return nil, err
	}
	yes, err := bigSliceArg(values, "yesAmounts")
	if err != nil {
		return nil, err
	}
	no, err := bigSliceArg(values, "noAmounts")
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 || len(indexes) != len(yes) || len(indexes) != len(no) {
		return nil, fmt.Errorf("%w: batch legs mismatch (%d/%d/%d)", ErrMalformedLog, len(indexes), len(yes), len(no))
	}

	out := make([]*domain.Activity, 0, len(indexes))
	for leg := range indexes {
		a := base
		a.Type = typ
		a.UserAddress = user
		a.ID = idhash.ComputeActivityID(a.TxHash, a.LogIndex, leg)

		idx, err := toInt64(indexes[leg])
		if err != nil {
			return nil, fmt.Errorf("%w: marketIndexes[%d]: %v", ErrMalformedLog, leg, err)
		}
		a.MarketIndex = &idx
		if overflow := a.YesAmount.SetFromBig(yes[leg]); overflow {
			return nil, fmt.Errorf("%w: yesAmounts[%d] overflow", ErrMalformedLog, leg)
		}
		if overflow := a.NoAmount.SetFromBig(no[leg]); overflow {
			return nil, fmt.Errorf("%w: noAmounts[%d] overflow", ErrMalformedLog, leg)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (n *Normalizer) lifecycle(base domain.Activity, typ domain.ActivityType, values map[string]interface{}) (*domain.Activity, error) {
	a := base
	a.Type = typ
	a.ID = idhash.ComputeActivityID(a.TxHash, a.LogIndex, 0)

	if err := n.marketRef(&a, values); err != nil {
		return nil, err
	}
	// Campaign MarketAdded registers the index -> condition id mapping.
	if n.family.IsCampaign() && typ == domain.ActivityMarketAdded {
		cond, err := bytes32Arg(values, "conditionId")
		if err != nil {
			return nil, err
		}
		a.ConditionID = cond
	}
	return &a, nil
}

// marketRef fills ConditionID (generic) or MarketIndex (campaign).
func (n *Normalizer) marketRef(a *domain.Activity, values map[string]interface{}) error {
	if !n.family.IsCampaign() {
		cond, err := bytes32Arg(values, "conditionId")
		if err != nil {
			return err
		}
		a.ConditionID = cond
		return nil
	}
	v, ok := values["marketIndex"].(*big.Int)
	if !ok {
		return fmt.Errorf("%w: marketIndex", ErrMalformedLog)
	}
	idx, err := toInt64(v)
	if err != nil {
		return fmt.Errorf("%w: marketIndex: %v", ErrMalformedLog, err)
	}
	a.MarketIndex = &idx
	return nil
}

func baseActivity(l logfilter.FilteredLog) (domain.Activity, error) {
	var a domain.Activity
	a.VaultAddress = domain.NormalizeAddress(l.VaultAddress)

	tx, err := parseHash(l.TransactionHash)
	if err != nil {
		return a, fmt.Errorf("%w: transactionHash: %v", ErrMalformedLog, err)
	}
	a.TxHash = strings.ToLower(tx.Hex())

	idx, err := l.LogIndex.Uint64()
	if err != nil {
		return a, fmt.Errorf("%w: logIndex: %v", ErrMalformedLog, err)
	}
	a.LogIndex = idx

	ts, err := l.Timestamp.Uint64()
	if err != nil {
		return a, fmt.Errorf("%w: timestamp: %v", ErrMalformedLog, err)
	}
	a.Timestamp = int64(ts)

	// Block number is informational; tolerate its absence.
	if bn, err := l.BlockNumber.Uint64(); err == nil {
		a.BlockNumber = bn
	}
	return a, nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("want %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func decodeData(s string) ([]byte, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "0x" {
		return nil, nil
	}
	return hexutil.Decode(s)
}

func addressArg(values map[string]interface{}, name string) (string, error) {
	v, ok := values[name].(common.Address)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMalformedLog, name)
	}
	return strings.ToLower(v.Hex()), nil
}

func bytes32Arg(values map[string]interface{}, name string) (string, error) {
	v, ok := values[name].([32]byte)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMalformedLog, name)
	}
	return hexutil.Encode(v[:]), nil
}

func uintArg(values map[string]interface{}, name string, dst *uint256.Int) error {
	v, ok := values[name].(*big.Int)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMalformedLog, name)
	}
	if overflow := dst.SetFromBig(v); overflow {
		return fmt.Errorf("%w: %s overflow", ErrMalformedLog, name)
	}
	return nil
}

func bigSliceArg(values map[string]interface{}, name string) ([]*big.Int, error) {
	v, ok := values[name].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMalformedLog, name)
	}
	return v, nil
}

func toInt64(v *big.Int) (int64, error) {
	if v == nil || v.Sign() < 0 || !v.IsInt64() {
		return 0, errors.New("out of range")
	}
	return v.Int64(), nil
}
