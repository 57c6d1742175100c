package storage

import "time"

// Account is a player record keyed by wallet address
type Account struct {
	Address           string // 0:... format when parseable
	Balance           int64
	Energy            int
	Level             int
	Experience        int64
	LastEnergyRegenAt time.Time
	CreatedAt         time.Time
}

// Credit records a transaction whose energy was granted. The hash is unique.
type Credit struct {
	TxHash     string
	Address    string
	Energy     int
	ValueNano  int64
	CreditedAt time.Time
}

// WalletLink ties a Telegram user to the wallet they play with
type WalletLink struct {
	UserID    int64
	Address   string
	CreatedAt time.Time
}
