package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dreamware/lotto/internal/lottery"
)

// DecodeBatch parses a batch payload into bets, all or nothing.
//
// The first line is the declared bet count; exactly that many lines must
// follow. Blank data lines count toward the declared total but produce no
// bet. Every other line must hold six pipe-delimited fields.
//
// Errors wrap ErrProtocol for header, count and field-count problems and
// lottery.ErrValidation for fields that do not parse. No bets are returned
// on error.
func DecodeBatch(payload string) ([]lottery.Bet, error) {
	lines := strings.Split(payload, "\n")

	header := strings.TrimSpace(lines[0])
	count, err := strconv.Atoi(header)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: invalid batch count %q", ErrProtocol, header)
	}

	betLines := lines[1:]
	if len(betLines) != count {
		return nil, fmt.Errorf("%w: batch count mismatch: expected %d bets, got %d", ErrProtocol, count, len(betLines))
	}

	bets := make([]lottery.Bet, 0, count)
	for i, line := range betLines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, lottery.FieldSeparator)
		if len(fields) != lottery.FieldCount {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, got %d", ErrProtocol, i+1, lottery.FieldCount, len(fields))
		}

		bet, err := lottery.ParseBet(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

// EncodeBatch renders bets as a batch payload.
func EncodeBatch(bets []lottery.Bet) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(bets)))
	b.WriteByte('\n')
	for _, bet := range bets {
		b.WriteString(bet.Line())
		b.WriteByte('\n')
	}
	return b.String()
}
