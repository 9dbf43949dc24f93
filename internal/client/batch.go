package client

import (
	"github.com/dreamware/lotto/internal/lottery"
)

// MaxBatchBytes caps the encoded size of the bet lines in one batch.
const MaxBatchBytes = 8 * 1024

// CreateBatches splits bets into batches, keeping their order.
//
// A batch is closed when adding the next bet would push its encoded lines
// past MaxBatchBytes, or when it holds maxAmount bets. A non-positive
// maxAmount leaves only the byte limit. A single bet larger than the byte
// limit still travels, alone in its batch.
func CreateBatches(bets []lottery.Bet, maxAmount int) [][]lottery.Bet {
	var (
		batches [][]lottery.Bet
		current []lottery.Bet
		size    int
	)

	for _, bet := range bets {
		betSize := len(bet.Line()) + 1

		if len(current) > 0 && size+betSize > MaxBatchBytes {
			batches = append(batches, current)
			current, size = nil, 0
		}

		current = append(current, bet)
		size += betSize

		if maxAmount > 0 && len(current) >= maxAmount {
			batches = append(batches, current)
			current, size = nil, 0
		}
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
