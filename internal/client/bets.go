package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dreamware/lotto/internal/lottery"
)

// betFileFields is the number of columns in an agency bet file:
// first name, last name, document, birthdate and number.
const betFileFields = 5

// LoadBets reads an agency's bet file and returns its bets stamped with the
// agency id.
//
// File format:
//   - Plain CSV, no header row
//   - Columns: first_name,last_name,document,birthdate,number
//   - Surrounding whitespace in each column is ignored
//
// Parameters:
//   - path: Location of the CSV file
//   - agency: Agency id written into every bet
//
// Returns:
//   - Bets in file order
//   - An error naming the offending line when a row does not parse
func LoadBets(path string, agency int) ([]lottery.Bet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bet file: %w", err)
	}
	defer f.Close()

	return ReadBets(f, agency)
}

// ReadBets parses bet rows from r. See LoadBets for the format.
func ReadBets(r io.Reader, agency int) ([]lottery.Bet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = betFileFields
	reader.TrimLeadingSpace = true

	id := strconv.Itoa(agency)
	var bets []lottery.Bet
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return bets, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading bet file: %w", err)
		}

		line, _ := reader.FieldPos(0)
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		bet, err := lottery.NewBet(id, record[0], record[1], record[2], record[3], record[4])
		if err != nil {
			return nil, fmt.Errorf("bet file line %d: %w", line, err)
		}
		bets = append(bets, bet)
	}
}
