// Package logfilter selects vault logs out of stream-delivered block batches.
package logfilter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Payload is the body delivered by the streaming log provider.
type Payload struct {
	Data []Block `json:"data"`
}

// Block is one delivered block with its receipts.
type Block struct {
	Block    BlockHeader `json:"block"`
	Receipts []Receipt   `json:"receipts"`
}

// BlockHeader carries the block fields the pipeline needs.
type BlockHeader struct {
	Number    Quantity `json:"number"`
	Timestamp Quantity `json:"timestamp"`
}

// Receipt is a transaction receipt.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Logs            []Log  `json:"logs"`
}

// Log is a raw EVM log. Fields stay loosely typed so one malformed log
// never fails decoding of the whole payload.
type Log struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     Quantity `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        Quantity `json:"logIndex"`
	Removed         bool     `json:"removed"`
}

// FilteredLog is a log that matched a target vault, annotated with block time.
type FilteredLog struct {
	Log
	VaultAddress string // lowercase target the log matched
	Timestamp    Quantity
}

// Quantity is a numeric field that may arrive as a hex string ("0x1a"),
// a decimal string ("26") or a JSON number (26). The raw text is kept and
// parsed on demand.
type Quantity string

// UnmarshalJSON stores the raw value; it never fails on content.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*q = Quantity(s)
		return nil
	}
	*q = Quantity(b)
	return nil
}

// MarshalJSON writes the raw value back as a string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(q))
}

// Uint64 parses the quantity.
func (q Quantity) Uint64() (uint64, error) {
	s := strings.TrimSpace(string(q))
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeUint64(strings.ToLower(s))
	}
	return strconv.ParseUint(s, 10, 64)
}
