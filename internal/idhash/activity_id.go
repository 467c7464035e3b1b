package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeActivityID computes a deterministic activity id using SHA256.
// Formula: SHA256(lower(tx_hash)|log_index|leg)
// leg is the position inside a batch event and 0 for single events.
// Returns hex-encoded hash (64 characters).
func ComputeActivityID(txHash string, logIndex uint64, leg int) string {
	data := fmt.Sprintf("%s|%d|%d",
		strings.ToLower(strings.TrimSpace(txHash)),
		logIndex,
		leg,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
