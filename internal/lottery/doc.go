// Package lottery holds the domain model shared by the lottery server and
// the agency client: the Bet record, its text field encoding, and the rule
// that decides whether a bet won.
//
// # Bet encoding
//
// A bet travels and is stored as six fields in a fixed order:
//
//	agency | first_name | last_name | document | birthdate | number
//
// agency and number are decimal integers, birthdate is an ISO-8601 calendar
// date (YYYY-MM-DD) and the remaining fields are free text. ParseBet builds a
// Bet from those fields and Fields produces them back, so
//
//	ParseBet(b.Fields()) == b
//
// holds for every Bet obtained from ParseBet.
//
// # Winning bets
//
// The contest has a single fixed winning number, WinningNumber. HasWon reports
// whether a bet wagered on it.
package lottery
