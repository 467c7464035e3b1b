package idhash

import (
	"testing"
)

func TestComputeActivityID(t *testing.T) {
	tests := []struct {
		name     string
		txHash   string
		logIndex uint64
		leg      int
		wantLen  int
	}{
		{
			name:     "single event",
			txHash:   "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
			logIndex: 3,
			leg:      0,
			wantLen:  64,
		},
		{
			name:     "batch leg",
			txHash:   "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060",
			logIndex: 3,
			leg:      2,
			wantLen:  64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeActivityID(tt.txHash, tt.logIndex, tt.leg)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeActivityID() length = %d, want %d", len(got), tt.wantLen)
			}

			got2 := ComputeActivityID(tt.txHash, tt.logIndex, tt.leg)
			if got != got2 {
				t.Errorf("ComputeActivityID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeActivityID_CaseInsensitiveHash(t *testing.T) {
	lower := ComputeActivityID("0xabcdef", 1, 0)
	upper := ComputeActivityID("0xABCDEF", 1, 0)
	if lower != upper {
		t.Errorf("tx hash case should not change id: %s != %s", lower, upper)
	}
}

func TestComputeActivityID_DifferentInputs(t *testing.T) {
	base := ComputeActivityID("0xabc", 1, 0)

	if base == ComputeActivityID("0xabd", 1, 0) {
		t.Error("Different tx hash should produce different id")
	}
	if base == ComputeActivityID("0xabc", 2, 0) {
		t.Error("Different log index should produce different id")
	}
	if base == ComputeActivityID("0xabc", 1, 1) {
		t.Error("Different leg should produce different id")
	}
	// "1|10" vs "11|0" style collisions are prevented by the separator
	if ComputeActivityID("0xabc", 1, 10) == ComputeActivityID("0xabc", 11, 0) {
		t.Error("Separator should prevent log index / leg collisions")
	}
}
