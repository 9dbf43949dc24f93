package storage

import (
	"database/sql"
	"fmt"
	"iter"
	"strconv"

	"github.com/dreamware/lotto/internal/lottery"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	agency     INTEGER NOT NULL,
	first_name TEXT    NOT NULL,
	last_name  TEXT    NOT NULL,
	document   TEXT    NOT NULL,
	birthdate  TEXT    NOT NULL,
	number     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS bets_agency_number ON bets (agency, number);
`

// SQLiteStore persists bets in an SQLite database.
// Every Append runs in one transaction.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the database at path.
// Use ":memory:" for a private in-memory database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStorage, path, err)
	}
	// A single connection keeps ":memory:" databases shared and writes ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema in %s: %w", ErrStorage, path, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Append inserts bets in order inside one transaction.
func (s *SQLiteStore) Append(bets []lottery.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", ErrStorage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO bets (agency, first_name, last_name, document, birthdate, number) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", ErrStorage, err)
	}
	defer stmt.Close()

	for _, bet := range bets {
		if _, err := stmt.Exec(bet.Agency, bet.FirstName, bet.LastName, bet.Document,
			bet.Birthdate.Format(lottery.DateLayout), bet.Number); err != nil {
			return fmt.Errorf("%w: inserting bet: %w", ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing batch: %w", ErrStorage, err)
	}
	return nil
}

// All yields bets in insertion order.
func (s *SQLiteStore) All() iter.Seq2[lottery.Bet, error] {
	return func(yield func(lottery.Bet, error) bool) {
		rows, err := s.db.Query(`SELECT agency, first_name, last_name, document, birthdate, number FROM bets ORDER BY id`)
		if err != nil {
			yield(lottery.Bet{}, fmt.Errorf("%w: querying bets: %w", ErrStorage, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				agency, number                           int
				firstName, lastName, document, birthdate string
			)
			if err := rows.Scan(&agency, &firstName, &lastName, &document, &birthdate, &number); err != nil {
				yield(lottery.Bet{}, fmt.Errorf("%w: scanning bet: %w", ErrStorage, err))
				return
			}

			bet, err := lottery.ParseBet([]string{
				strconv.Itoa(agency), firstName, lastName, document, birthdate, strconv.Itoa(number),
			})
			if err != nil {
				yield(lottery.Bet{}, fmt.Errorf("%w: %w", ErrStorage, err))
				return
			}
			if !yield(bet, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(lottery.Bet{}, fmt.Errorf("%w: iterating bets: %w", ErrStorage, err))
		}
	}
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrStorage, s.path, err)
	}
	return nil
}
