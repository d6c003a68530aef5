package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"papertrade/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ AccountStore = (*SQLiteStore)(nil)
var _ PositionStore = (*SQLiteStore)(nil)
var _ TransactionStore = (*SQLiteStore)(nil)
var _ QuoteStore = (*SQLiteStore)(nil)
var _ Settler = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	cash_balance REAL NOT NULL CHECK (cash_balance >= 0),
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	account_id TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	shares     INTEGER NOT NULL CHECK (shares > 0),
	avg_cost   REAL NOT NULL CHECK (avg_cost >= 0),
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (account_id, symbol)
);

CREATE TABLE IF NOT EXISTS transactions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id   TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	side         TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
	shares       INTEGER NOT NULL CHECK (shares > 0),
	price        REAL NOT NULL,
	fee          REAL NOT NULL,
	total_amount REAL NOT NULL,
	order_type   TEXT NOT NULL,
	trade_type   TEXT NOT NULL,
	condition    TEXT NOT NULL,
	price_type   TEXT NOT NULL,
	timestamp    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_account
	ON transactions (account_id, timestamp);

CREATE TABLE IF NOT EXISTS quotes (
	symbol         TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	price          REAL NOT NULL,
	change         REAL NOT NULL DEFAULT 0,
	change_percent REAL NOT NULL DEFAULT 0,
	as_of          INTEGER NOT NULL
);
`

// SQLiteStore implements all storage interfaces backed by a single SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
//
// The connection pool is limited to a single connection: SQLite allows only
// one writer at a time, and funneling every statement through one connection
// makes each database/sql transaction a true serialization point for
// concurrent settlements. Transactions additionally start with BEGIN
// IMMEDIATE (_txlock=immediate) so the write lock is taken up front rather
// than on the first write inside the settlement.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// AccountStore implementation
// ---------------------------------------------------------------------------

// GetAccount retrieves an account by its ID.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, cash_balance, created_at FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.CashBalance, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading account %s: %w", id, err)
	}
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

// GetOrCreateAccount retrieves an account, provisioning it with the given
// starting balance if absent.
func (s *SQLiteStore) GetOrCreateAccount(ctx context.Context, id string, startingBalance float64) (*domain.Account, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, cash_balance, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		id, startingBalance, time.Now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("provisioning account %s: %w", id, err)
	}
	return s.GetAccount(ctx, id)
}

// AdjustBalance applies a relative delta to the account's cash balance and
// returns the new balance. The update is a single relative SQL statement, so
// concurrent adjustments never lose increments to a read-modify-write race.
func (s *SQLiteStore) AdjustBalance(ctx context.Context, id string, delta, startingBalance float64) (float64, error) {
	if _, err := s.GetOrCreateAccount(ctx, id, startingBalance); err != nil {
		return 0, err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET cash_balance = cash_balance + ? WHERE id = ?`,
		delta, id)
	if err != nil {
		return 0, fmt.Errorf("adjusting balance for %s: %w", id, err)
	}

	var balance float64
	err = s.db.QueryRowContext(ctx,
		`SELECT cash_balance FROM accounts WHERE id = ?`, id,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("reading balance for %s: %w", id, err)
	}
	return balance, nil
}

// ListAccounts returns all accounts ordered by ID. Used by the archive
// export tool.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cash_balance, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.CashBalance, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		a.CreatedAt = time.UnixMilli(createdAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// GetPosition retrieves the position for an account and symbol.
func (s *SQLiteStore) GetPosition(ctx context.Context, accountID, symbol string) (*domain.Position, error) {
	var p domain.Position
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, symbol, shares, avg_cost, updated_at
		 FROM positions WHERE account_id = ? AND symbol = ?`,
		accountID, symbol,
	).Scan(&p.AccountID, &p.Symbol, &p.Shares, &p.AvgCost, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading position %s/%s: %w", accountID, symbol, err)
	}
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return &p, nil
}

// ListPositions returns all positions held by the account, ordered by symbol.
func (s *SQLiteStore) ListPositions(ctx context.Context, accountID string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, symbol, shares, avg_cost, updated_at
		 FROM positions WHERE account_id = ? ORDER BY symbol`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("listing positions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var updatedAt int64
		if err := rows.Scan(&p.AccountID, &p.Symbol, &p.Shares, &p.AvgCost, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning position row: %w", err)
		}
		p.UpdatedAt = time.UnixMilli(updatedAt)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ---------------------------------------------------------------------------
// TransactionStore implementation
// ---------------------------------------------------------------------------

// ListTransactions returns the account's most recent transactions, newest
// first, up to limit (0 means no limit).
func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	q := `SELECT id, account_id, symbol, side, shares, price, fee, total_amount,
	             order_type, trade_type, condition, price_type, timestamp
	      FROM transactions WHERE account_id = ?
	      ORDER BY timestamp DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var t domain.Transaction
	var ts int64
	err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &t.Side, &t.Shares,
		&t.Price, &t.Fee, &t.TotalAmount,
		&t.OrderType, &t.TradeType, &t.Condition, &t.PriceType, &ts)
	if err != nil {
		return nil, fmt.Errorf("scanning transaction row: %w", err)
	}
	t.Timestamp = time.UnixMilli(ts)
	return &t, nil
}

// ---------------------------------------------------------------------------
// QuoteStore implementation
// ---------------------------------------------------------------------------

// GetQuote retrieves the cached quote for a symbol.
func (s *SQLiteStore) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var q domain.Quote
	var asOf int64
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, name, price, change, change_percent, as_of
		 FROM quotes WHERE symbol = ?`, symbol,
	).Scan(&q.Symbol, &q.Name, &q.Price, &q.Change, &q.ChangePercent, &asOf)
	if err == sql.ErrNoRows {
		return nil, domain.ErrQuoteUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("reading quote %s: %w", symbol, err)
	}
	q.AsOf = time.UnixMilli(asOf)
	return &q, nil
}

// PutQuote inserts or overwrites the cached quote for a symbol.
func (s *SQLiteStore) PutQuote(ctx context.Context, q *domain.Quote) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (symbol, name, price, change, change_percent, as_of)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (symbol) DO UPDATE SET
		     name = excluded.name,
		     price = excluded.price,
		     change = excluded.change,
		     change_percent = excluded.change_percent,
		     as_of = excluded.as_of`,
		q.Symbol, q.Name, q.Price, q.Change, q.ChangePercent, q.AsOf.UnixMilli())
	if err != nil {
		return fmt.Errorf("writing quote %s: %w", q.Symbol, err)
	}
	return nil
}

// ListQuotes returns cached quotes for the given symbols, in the order
// requested, skipping symbols with no entry.
func (s *SQLiteStore) ListQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, err := s.GetQuote(ctx, sym)
		if err == domain.ErrQuoteUnavailable {
			continue
		}
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

// ---------------------------------------------------------------------------
// Settler implementation
// ---------------------------------------------------------------------------

// ExecuteOrder settles one validated trade atomically: balance adjustment,
// position upsert/reduction/deletion, and the transaction-log append either
// all commit or all roll back. The funds and shares guards are re-checked
// here, inside the transaction, because the validator's reads happened
// outside it and a concurrent order may have changed the account since.
func (s *SQLiteStore) ExecuteOrder(ctx context.Context, t *domain.Transaction, startingBalance float64) (*domain.Fill, error) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning settlement: %w", err)
	}
	defer tx.Rollback()

	// Lazy-provision the account inside the transaction.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, cash_balance, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		t.AccountID, startingBalance, t.Timestamp.UnixMilli()); err != nil {
		return nil, fmt.Errorf("provisioning account %s: %w", t.AccountID, err)
	}

	var balance float64
	if err := tx.QueryRowContext(ctx,
		`SELECT cash_balance FROM accounts WHERE id = ?`, t.AccountID,
	).Scan(&balance); err != nil {
		return nil, fmt.Errorf("reading balance for %s: %w", t.AccountID, err)
	}

	switch t.Side {
	case domain.SideBuy:
		if balance < t.TotalAmount {
			return nil, domain.Reject(domain.ErrInsufficientFunds,
				fmt.Sprintf("order requires %.2f, balance is %.2f", t.TotalAmount, balance))
		}
		if err := s.settleBuy(ctx, tx, t); err != nil {
			return nil, err
		}
	case domain.SideSell:
		if err := s.settleSell(ctx, tx, t); err != nil {
			return nil, err
		}
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown side %q", t.Side)}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions
		 (account_id, symbol, side, shares, price, fee, total_amount,
		  order_type, trade_type, condition, price_type, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.Symbol, t.Side, t.Shares, t.Price, t.Fee, t.TotalAmount,
		t.OrderType, t.TradeType, t.Condition, t.PriceType, t.Timestamp.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("appending transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading transaction id: %w", err)
	}

	var newBalance float64
	if err := tx.QueryRowContext(ctx,
		`SELECT cash_balance FROM accounts WHERE id = ?`, t.AccountID,
	).Scan(&newBalance); err != nil {
		return nil, fmt.Errorf("reading settled balance for %s: %w", t.AccountID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing settlement: %w", err)
	}

	return &domain.Fill{
		TransactionID: t.ID,
		Symbol:        t.Symbol,
		Side:          t.Side,
		Shares:        t.Shares,
		ExecutedPrice: t.Price,
		Fee:           t.Fee,
		TotalAmount:   t.TotalAmount,
		NewBalance:    newBalance,
		Timestamp:     t.Timestamp,
	}, nil
}

// settleBuy debits the total amount and upserts the position with a
// recomputed volume-weighted average cost.
func (s *SQLiteStore) settleBuy(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cash_balance = cash_balance - ? WHERE id = ?`,
		t.TotalAmount, t.AccountID); err != nil {
		return fmt.Errorf("debiting account %s: %w", t.AccountID, err)
	}

	var shares int64
	var avgCost float64
	err := tx.QueryRowContext(ctx,
		`SELECT shares, avg_cost FROM positions WHERE account_id = ? AND symbol = ?`,
		t.AccountID, t.Symbol,
	).Scan(&shares, &avgCost)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading position %s/%s: %w", t.AccountID, t.Symbol, err)
	}

	newShares := shares + t.Shares
	newAvgCost := (float64(shares)*avgCost + float64(t.Shares)*t.Price) / float64(newShares)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO positions (account_id, symbol, shares, avg_cost, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id, symbol) DO UPDATE SET
		     shares = excluded.shares,
		     avg_cost = excluded.avg_cost,
		     updated_at = excluded.updated_at`,
		t.AccountID, t.Symbol, newShares, newAvgCost, t.Timestamp.UnixMilli()); err != nil {
		return fmt.Errorf("upserting position %s/%s: %w", t.AccountID, t.Symbol, err)
	}
	return nil
}

// settleSell verifies the holding, credits the total amount, and reduces the
// position, deleting it entirely when the sell exhausts the share count.
// Average cost is never changed by a sell.
func (s *SQLiteStore) settleSell(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	var shares int64
	err := tx.QueryRowContext(ctx,
		`SELECT shares FROM positions WHERE account_id = ? AND symbol = ?`,
		t.AccountID, t.Symbol,
	).Scan(&shares)
	if err == sql.ErrNoRows {
		return domain.Reject(domain.ErrInsufficientShares,
			fmt.Sprintf("no position in %s", t.Symbol))
	}
	if err != nil {
		return fmt.Errorf("reading position %s/%s: %w", t.AccountID, t.Symbol, err)
	}
	if shares < t.Shares {
		return domain.Reject(domain.ErrInsufficientShares,
			fmt.Sprintf("holding %d shares of %s, order sells %d", shares, t.Symbol, t.Shares))
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cash_balance = cash_balance + ? WHERE id = ?`,
		t.TotalAmount, t.AccountID); err != nil {
		return fmt.Errorf("crediting account %s: %w", t.AccountID, err)
	}

	remaining := shares - t.Shares
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM positions WHERE account_id = ? AND symbol = ?`,
			t.AccountID, t.Symbol); err != nil {
			return fmt.Errorf("deleting position %s/%s: %w", t.AccountID, t.Symbol, err)
		}
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE positions SET shares = ?, updated_at = ?
		 WHERE account_id = ? AND symbol = ?`,
		remaining, t.Timestamp.UnixMilli(), t.AccountID, t.Symbol); err != nil {
		return fmt.Errorf("reducing position %s/%s: %w", t.AccountID, t.Symbol, err)
	}
	return nil
}
