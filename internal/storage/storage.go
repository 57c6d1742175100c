package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadyCredited = errors.New("transaction already credited")
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// single writer, credits run in transactions
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			address TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			energy INTEGER NOT NULL,
			level INTEGER NOT NULL DEFAULT 1,
			experience INTEGER NOT NULL DEFAULT 0,
			last_energy_regen_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS credited_transactions (
			tx_hash TEXT PRIMARY KEY,
			address TEXT NOT NULL,
			energy INTEGER NOT NULL,
			value_nano INTEGER NOT NULL,
			credited_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credited_address ON credited_transactions(address)`,

		`CREATE TABLE IF NOT EXISTS wallet_links (
			user_id INTEGER PRIMARY KEY,
			address TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Accounts ---

// GetAccount returns an account by address
func (s *Storage) GetAccount(ctx context.Context, address string) (*Account, error) {
	var a Account
	var regenAt, createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT address, balance, energy, level, experience, last_energy_regen_at, created_at
		 FROM accounts WHERE address = ?`,
		address,
	).Scan(&a.Address, &a.Balance, &a.Energy, &a.Level, &a.Experience, &regenAt, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.LastEnergyRegenAt = time.UnixMilli(regenAt)
	a.CreatedAt = time.UnixMilli(createdAt)
	return &a, nil
}

// CreateAccount inserts a new account
func (s *Storage) CreateAccount(ctx context.Context, a *Account) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (address, balance, energy, level, experience, last_energy_regen_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Address, a.Balance, a.Energy, a.Level, a.Experience,
		a.LastEnergyRegenAt.UnixMilli(), a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// UpdateAccount overwrites the mutable fields of an account
func (s *Storage) UpdateAccount(ctx context.Context, a *Account) error {
	return updateAccount(ctx, s.db, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateAccount(ctx context.Context, db execer, a *Account) error {
	result, err := db.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, energy = ?, level = ?, experience = ?, last_energy_regen_at = ?
		 WHERE address = ?`,
		a.Balance, a.Energy, a.Level, a.Experience, a.LastEnergyRegenAt.UnixMilli(), a.Address,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Credits ---

// ApplyCredit records the consumed transaction and writes the credited
// account in one transaction. A known hash returns ErrAlreadyCredited and
// leaves the account untouched.
func (s *Storage) ApplyCredit(ctx context.Context, a *Account, c Credit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO credited_transactions (tx_hash, address, energy, value_nano, credited_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.TxHash, c.Address, c.Energy, c.ValueNano, c.CreditedAt.UnixMilli(),
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAlreadyCredited
	}

	if err := updateAccount(ctx, tx, a); err != nil {
		return err
	}

	return tx.Commit()
}

// GetCredit returns the credit recorded for a transaction hash
func (s *Storage) GetCredit(ctx context.Context, txHash string) (*Credit, error) {
	var c Credit
	var creditedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT tx_hash, address, energy, value_nano, credited_at
		 FROM credited_transactions WHERE tx_hash = ?`,
		txHash,
	).Scan(&c.TxHash, &c.Address, &c.Energy, &c.ValueNano, &creditedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.CreditedAt = time.UnixMilli(creditedAt)
	return &c, nil
}

// ListCredits returns the credits of an address, newest first
func (s *Storage) ListCredits(ctx context.Context, address string) ([]Credit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_hash, address, energy, value_nano, credited_at
		 FROM credited_transactions WHERE address = ? ORDER BY credited_at DESC`,
		address,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []Credit
	for rows.Next() {
		var c Credit
		var creditedAt int64

		if err := rows.Scan(&c.TxHash, &c.Address, &c.Energy, &c.ValueNano, &creditedAt); err != nil {
			return nil, err
		}

		c.CreditedAt = time.UnixMilli(creditedAt)
		credits = append(credits, c)
	}

	return credits, rows.Err()
}

// --- Wallet links ---

// LinkWallet sets the wallet a Telegram user plays with
func (s *Storage) LinkWallet(ctx context.Context, userID int64, address string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallet_links (user_id, address, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			address = excluded.address,
			created_at = excluded.created_at`,
		userID, address, time.Now().UnixMilli(),
	)
	return err
}

// GetWalletLink returns the wallet linked to a Telegram user
func (s *Storage) GetWalletLink(ctx context.Context, userID int64) (*WalletLink, error) {
	var l WalletLink
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, address, created_at FROM wallet_links WHERE user_id = ?",
		userID,
	).Scan(&l.UserID, &l.Address, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	l.CreatedAt = time.UnixMilli(createdAt)
	return &l, nil
}
