package lottery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WinningNumber is the simulated winning number of the lottery contest.
const WinningNumber = 7574

// DateLayout is the layout birthdates are parsed from and formatted to.
const DateLayout = "2006-01-02"

// FieldCount is the number of fields in an encoded bet.
const FieldCount = 6

// FieldSeparator separates the fields of a bet on the wire and in logs.
const FieldSeparator = "|"

// ErrValidation is returned when a bet field cannot be parsed into its typed form.
var ErrValidation = errors.New("invalid bet")

// Bet is one wager submitted by an agency. Bets are values: they carry no
// identity beyond their fields and are never mutated after construction.
type Bet struct {
	Birthdate time.Time // Calendar date, time of day is always zero
	FirstName string
	LastName  string
	Document  string // Kept as text, leading zeros are significant
	Agency    int    // Agency identifier, always positive
	Number    int    // Wagered number
}

// NewBet builds a Bet from its six text fields in wire order.
// It is a convenience over ParseBet for callers holding separate values.
func NewBet(agency, firstName, lastName, document, birthdate, number string) (Bet, error) {
	return ParseBet([]string{agency, firstName, lastName, document, birthdate, number})
}

// ParseBet builds a Bet from exactly FieldCount fields in wire order.
// Surrounding whitespace on each field is ignored.
//
// Returns an error wrapping ErrValidation when the field count is wrong,
// agency or number are not integers, agency is not positive, or birthdate
// is not a YYYY-MM-DD date.
func ParseBet(fields []string) (Bet, error) {
	if len(fields) != FieldCount {
		return Bet{}, fmt.Errorf("%w: expected %d fields, got %d", ErrValidation, FieldCount, len(fields))
	}

	agency, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Bet{}, fmt.Errorf("%w: agency %q is not an integer", ErrValidation, fields[0])
	}
	if agency <= 0 {
		return Bet{}, fmt.Errorf("%w: agency %d is not positive", ErrValidation, agency)
	}

	birthdate, err := time.Parse(DateLayout, strings.TrimSpace(fields[4]))
	if err != nil {
		return Bet{}, fmt.Errorf("%w: birthdate %q is not a YYYY-MM-DD date", ErrValidation, fields[4])
	}

	number, err := strconv.Atoi(strings.TrimSpace(fields[5]))
	if err != nil {
		return Bet{}, fmt.Errorf("%w: number %q is not an integer", ErrValidation, fields[5])
	}

	return Bet{
		Agency:    agency,
		FirstName: strings.TrimSpace(fields[1]),
		LastName:  strings.TrimSpace(fields[2]),
		Document:  strings.TrimSpace(fields[3]),
		Birthdate: birthdate,
		Number:    number,
	}, nil
}

// ParseLine parses a single pipe-delimited bet line.
func ParseLine(line string) (Bet, error) {
	return ParseBet(strings.Split(strings.TrimSpace(line), FieldSeparator))
}

// Fields returns the bet's six text fields in wire order.
func (b Bet) Fields() []string {
	return []string{
		strconv.Itoa(b.Agency),
		b.FirstName,
		b.LastName,
		b.Document,
		b.Birthdate.Format(DateLayout),
		strconv.Itoa(b.Number),
	}
}

// Line returns the bet as a pipe-delimited line without a trailing newline.
func (b Bet) Line() string {
	return strings.Join(b.Fields(), FieldSeparator)
}

// HasWon reports whether the bet wagered on WinningNumber.
func HasWon(b Bet) bool {
	return b.Number == WinningNumber
}
