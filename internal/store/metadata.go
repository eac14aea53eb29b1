package store

import (
	"database/sql"
	"errors"
	"strconv"
)

const (
	metaBankChecksum = "bank_checksum"
	metaBankCount    = "bank_count"
)

// SetMetadata upserts a key-value pair in the app_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO app_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// RecordBankFingerprint stores the checksum and size of the loaded question
// bank. It reports whether the bank differs from the previously recorded
// one; a first recording does not count as a change.
func (s *Store) RecordBankFingerprint(checksum string, count int) (changed bool, err error) {
	prev, err := s.GetMetadata(metaBankChecksum)
	if err != nil {
		return false, err
	}
	if err := s.SetMetadata(metaBankChecksum, checksum); err != nil {
		return false, err
	}
	if err := s.SetMetadata(metaBankCount, strconv.Itoa(count)); err != nil {
		return false, err
	}
	return prev != "" && prev != checksum, nil
}
