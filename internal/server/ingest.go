package server

import (
	"fmt"

	"github.com/dreamware/lotto/internal/lottery"
	"github.com/dreamware/lotto/internal/protocol"
)

// ingest decodes a batch payload and persists it with a single store call.
// A batch is stored whole or not at all.
func (s *Server) ingest(payload string) ([]lottery.Bet, error) {
	bets, err := protocol.DecodeBatch(payload)
	if err != nil {
		return nil, err
	}
	if err := s.store.Append(bets); err != nil {
		return nil, err
	}
	return bets, nil
}

// resolveWinners returns the documents of the agency's winning bets in the
// order they were stored. The result is never nil.
func (s *Server) resolveWinners(agency int) ([]string, error) {
	documents := []string{}
	for bet, err := range s.store.All() {
		if err != nil {
			return nil, fmt.Errorf("reading bets for agency %d: %w", agency, err)
		}
		if bet.Agency == agency && lottery.HasWon(bet) {
			documents = append(documents, bet.Document)
		}
	}
	return documents, nil
}
