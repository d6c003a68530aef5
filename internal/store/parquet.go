package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"papertrade/internal/domain"
)

// TransactionArchive writes settled transactions to Parquet files on disk
// for offline analysis, one file per account per month.
type TransactionArchive struct {
	Dir string
}

// NewTransactionArchive creates an archive rooted at the given directory.
func NewTransactionArchive(dir string) *TransactionArchive {
	return &TransactionArchive{Dir: dir}
}

// TransactionRecord is the Parquet schema for archived transactions.
type TransactionRecord struct {
	ID          int64   `parquet:"id"`
	AccountID   string  `parquet:"account_id"`
	Symbol      string  `parquet:"symbol"`
	Side        string  `parquet:"side"`
	Shares      int64   `parquet:"shares"`
	Price       float64 `parquet:"price"`
	Fee         float64 `parquet:"fee"`
	TotalAmount float64 `parquet:"total_amount"`
	OrderType   string  `parquet:"order_type"`
	TradeType   string  `parquet:"trade_type"`
	Condition   string  `parquet:"condition"`
	PriceType   string  `parquet:"price_type"`
	Timestamp   int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// WriteTransactions archives transactions grouped by account and month.
// Re-archiving is idempotent: existing records are merged and deduplicated
// by transaction id.
func (a *TransactionArchive) WriteTransactions(_ context.Context, txns []domain.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	type key struct {
		account string
		month   string // YYYY-MM
	}
	groups := make(map[key][]TransactionRecord)
	for _, t := range txns {
		k := key{account: t.AccountID, month: t.Timestamp.Format("2006-01")}
		groups[k] = append(groups[k], TransactionRecord{
			ID:          t.ID,
			AccountID:   t.AccountID,
			Symbol:      t.Symbol,
			Side:        string(t.Side),
			Shares:      t.Shares,
			Price:       t.Price,
			Fee:         t.Fee,
			TotalAmount: t.TotalAmount,
			OrderType:   string(t.OrderType),
			TradeType:   string(t.TradeType),
			Condition:   string(t.Condition),
			PriceType:   string(t.PriceType),
			Timestamp:   t.Timestamp.UnixMilli(),
		})
	}

	for k, records := range groups {
		path := a.transactionPath(k.account, k.month)

		// A missing file just means nothing is archived for the month yet;
		// any other read failure must not be mistaken for that, or a corrupt
		// archive would be silently overwritten with only the new records.
		existing, err := readParquetFile[TransactionRecord](path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading archive for %s/%s: %w", k.account, k.month, err)
		}
		merged := mergeTransactionRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("archiving transactions for %s/%s: %w", k.account, k.month, err)
		}
	}
	return nil
}

// ReadTransactions reads archived transactions for an account within
// [start, end].
func (a *TransactionArchive) ReadTransactions(_ context.Context, accountID string, start, end time.Time) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(end); m = m.AddDate(0, 1, 0) {
		path := a.transactionPath(accountID, m.Format("2006-01"))

		records, err := readParquetFile[TransactionRecord](path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// No archive file for this month yet.
				continue
			}
			return nil, fmt.Errorf("reading archive for %s/%s: %w", accountID, m.Format("2006-01"), err)
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end)) {
				txns = append(txns, domain.Transaction{
					ID:          r.ID,
					AccountID:   r.AccountID,
					Symbol:      r.Symbol,
					Side:        domain.Side(r.Side),
					Shares:      r.Shares,
					Price:       r.Price,
					Fee:         r.Fee,
					TotalAmount: r.TotalAmount,
					OrderType:   domain.OrderType(r.OrderType),
					TradeType:   domain.TradeType(r.TradeType),
					Condition:   domain.Condition(r.Condition),
					PriceType:   domain.PriceType(r.PriceType),
					Timestamp:   ts,
				})
			}
		}
	}
	return txns, nil
}

// ListAccounts lists all accounts that have archived transactions.
func (a *TransactionArchive) ListAccounts() ([]string, error) {
	dir := filepath.Join(a.Dir, "transactions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var accounts []string
	for _, e := range entries {
		if e.IsDir() {
			accounts = append(accounts, e.Name())
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// transactionPath returns the filesystem path for an archive file.
// Layout: <dir>/transactions/<ACCOUNT>/<YYYY-MM>.parquet
func (a *TransactionArchive) transactionPath(accountID, month string) string {
	return filepath.Join(a.Dir, "transactions", strings.ToLower(accountID), month+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeTransactionRecords deduplicates records by transaction id, preferring
// new records over existing ones. Results are sorted by timestamp, then id.
func mergeTransactionRecords(existing, incoming []TransactionRecord) []TransactionRecord {
	seen := make(map[int64]TransactionRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ID] = r
	}
	for _, r := range incoming {
		seen[r.ID] = r
	}

	merged := make([]TransactionRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
