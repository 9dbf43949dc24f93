package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/dreamware/lotto/internal/lottery"
)

// DefaultFilePath is where the lottery keeps its bets unless configured otherwise.
const DefaultFilePath = "./bets.csv"

// FileStore persists bets as CSV rows in an append-only file.
// Not safe for concurrent writers; wrap it in Synchronized.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the CSV file at path.
// The file is created on the first Append.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Append writes one CSV row per bet. All rows go out in a single write.
func (f *FileStore) Append(bets []lottery.Bet) error {
	if len(bets) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, bet := range bets {
		if err := w.Write(bet.Fields()); err != nil {
			return fmt.Errorf("%w: encoding bet: %w", ErrStorage, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: encoding bets: %w", ErrStorage, err)
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrStorage, f.path, err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("%w: writing %s: %w", ErrStorage, f.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrStorage, f.path, err)
	}
	return nil
}

// All reads the file row by row. A file that does not exist yet holds no bets.
func (f *FileStore) All() iter.Seq2[lottery.Bet, error] {
	return func(yield func(lottery.Bet, error) bool) {
		file, err := os.Open(f.path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(lottery.Bet{}, fmt.Errorf("%w: opening %s: %w", ErrStorage, f.path, err))
			return
		}
		defer file.Close()

		r := csv.NewReader(file)
		r.FieldsPerRecord = lottery.FieldCount
		r.ReuseRecord = true

		for {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(lottery.Bet{}, fmt.Errorf("%w: reading %s: %w", ErrStorage, f.path, err))
				return
			}

			bet, err := lottery.ParseBet(record)
			if err != nil {
				yield(lottery.Bet{}, fmt.Errorf("%w: %s: %w", ErrStorage, f.path, err))
				return
			}
			if !yield(bet, nil) {
				return
			}
		}
	}
}

// Close is a no-op; the file is only open during Append and All.
func (f *FileStore) Close() error {
	return nil
}
