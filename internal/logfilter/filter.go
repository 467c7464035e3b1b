package logfilter

import (
	"strings"
)

// Filter returns the logs whose source address case-insensitively equals
// target, in input order, each annotated with its block timestamp.
// Unmatched logs are dropped.
func Filter(payload Payload, target string) []FilteredLog {
	return FilterAll(payload, []string{target})
}

// FilterAll filters the payload for every target in one pass, keeping
// input order across targets.
func FilterAll(payload Payload, targets []string) []FilteredLog {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}

	var out []FilteredLog
	for _, block := range payload.Data {
		for _, receipt := range block.Receipts {
			for _, log := range receipt.Logs {
				addr := strings.ToLower(strings.TrimSpace(log.Address))
				if _, ok := set[addr]; !ok {
					continue
				}
				l := log
				if l.TransactionHash == "" {
					l.TransactionHash = receipt.TransactionHash
				}
				if l.BlockNumber == "" {
					l.BlockNumber = block.Block.Number
				}
				out = append(out, FilteredLog{
					Log:          l,
					VaultAddress: addr,
					Timestamp:    block.Block.Timestamp,
				})
			}
		}
	}
	return out
}
