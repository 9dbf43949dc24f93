package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a request payload with the operation it asks for.
type Kind int

const (
	// KindBatch is a batch of bets to persist.
	KindBatch Kind = iota
	// KindFinished reports that an agency has sent all of its bets.
	KindFinished
	// KindQueryWinners asks for the winners of an agency.
	KindQueryWinners
)

const (
	// FinishedPrefix starts every FINISHED payload.
	FinishedPrefix = "FINISHED|"
	// QueryWinnersPrefix starts every QUERY_WINNERS payload.
	QueryWinnersPrefix = "QUERY_WINNERS|"
)

// String returns the protocol name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBatch:
		return "BATCH"
	case KindFinished:
		return "FINISHED"
	case KindQueryWinners:
		return "QUERY_WINNERS"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classify tags a decoded, whitespace-trimmed payload. Anything that is
// neither FINISHED nor QUERY_WINNERS is a batch.
func Classify(payload string) Kind {
	switch {
	case strings.HasPrefix(payload, FinishedPrefix):
		return KindFinished
	case strings.HasPrefix(payload, QueryWinnersPrefix):
		return KindQueryWinners
	default:
		return KindBatch
	}
}

// ParseAgency extracts the agency id from a FINISHED or QUERY_WINNERS payload.
func ParseAgency(payload string) (int, error) {
	var rest string
	switch Classify(payload) {
	case KindFinished:
		rest = strings.TrimPrefix(payload, FinishedPrefix)
	case KindQueryWinners:
		rest = strings.TrimPrefix(payload, QueryWinnersPrefix)
	default:
		return 0, fmt.Errorf("%w: payload carries no agency", ErrProtocol)
	}

	agency, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid agency %q", ErrProtocol, rest)
	}
	if agency <= 0 {
		return 0, fmt.Errorf("%w: agency %d is not positive", ErrProtocol, agency)
	}
	return agency, nil
}

// FinishedMessage builds the FINISHED payload for an agency.
func FinishedMessage(agency int) string {
	return FinishedPrefix + strconv.Itoa(agency)
}

// QueryWinnersMessage builds the QUERY_WINNERS payload for an agency.
func QueryWinnersMessage(agency int) string {
	return QueryWinnersPrefix + strconv.Itoa(agency)
}
