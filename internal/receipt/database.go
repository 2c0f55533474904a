package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucket = "receipts"
	logBucket     = "processing_log"
	accountBucket = "accounts"
)

// ErrAccountNotFound distinguishes an unknown alias from a store failure.
var ErrAccountNotFound = errors.New("account not found")

// Store defines the persistence operations the pipeline needs.
type Store interface {
	// SaveReceipt inserts or replaces a receipt.
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID.
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts.
	ListReceipts() ([]*Receipt, error)

	// FindDuplicates returns existing receipts for the same account with the
	// same store name (case-insensitive), calendar day, and total.
	FindDuplicates(accountID, storeName string, date time.Time, total string) ([]*Receipt, error)

	// SaveLogEntry appends a processing log entry.
	SaveLogEntry(entry *LogEntry) error

	// ListLogEntries returns all processing log entries.
	ListLogEntries() ([]*LogEntry, error)

	// SaveAccount inserts or replaces an account, keyed by alias.
	SaveAccount(account *Account) error

	// GetAccountByAlias retrieves an account by its receipt alias. Returns
	// ErrAccountNotFound when the alias is unknown.
	GetAccountByAlias(alias string) (*Account, error)

	// Close closes the store.
	Close() error
}

// BoltStore implements Store using BoltDB, one bucket per entity with JSON
// values keyed by ID (accounts are keyed by alias for the lookup path).
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (creating if needed) the BoltDB file and its buckets.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptBucket, logBucket, accountBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveReceipt inserts or replaces a receipt.
func (b *BoltStore) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucket))
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID.
func (b *BoltStore) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts.
func (b *BoltStore) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// FindDuplicates returns near-matching receipts for duplicate screening.
// Matching is advisory: same account, case-insensitive store name, same
// calendar day, total equal to the cent.
func (b *BoltStore) FindDuplicates(accountID, storeName string, date time.Time, total string) ([]*Receipt, error) {
	matches := make([]*Receipt, 0)
	wantStore := strings.ToLower(strings.TrimSpace(storeName))
	wantDay := date.Format("2006-01-02")

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			if receipt.AccountID != accountID {
				return nil
			}
			if strings.ToLower(strings.TrimSpace(receipt.StoreName)) != wantStore {
				return nil
			}
			if receipt.Date.Format("2006-01-02") != wantDay {
				return nil
			}
			if receipt.Total != total {
				return nil
			}
			matches = append(matches, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// SaveLogEntry appends a processing log entry.
func (b *BoltStore) SaveLogEntry(entry *LogEntry) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(logBucket))
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling log entry: %w", err)
		}
		return bucket.Put([]byte(entry.ID), data)
	})
}

// ListLogEntries returns all processing log entries.
func (b *BoltStore) ListLogEntries() ([]*LogEntry, error) {
	entries := make([]*LogEntry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(logBucket)).ForEach(func(k, v []byte) error {
			var entry LogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling log entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveAccount inserts or replaces an account.
func (b *BoltStore) SaveAccount(account *Account) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountBucket))
		data, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("marshaling account: %w", err)
		}
		return bucket.Put([]byte(strings.ToLower(account.Alias)), data)
	})
}

// GetAccountByAlias retrieves an account by alias.
func (b *BoltStore) GetAccountByAlias(alias string) (*Account, error) {
	var account *Account
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(accountBucket)).Get([]byte(strings.ToLower(alias)))
		if data == nil {
			return ErrAccountNotFound
		}
		return json.Unmarshal(data, &account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Close closes the database.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
