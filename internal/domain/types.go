// Package domain holds the core types and error taxonomy shared across the
// papertrade system: accounts, positions, quotes, orders, and transactions.
package domain

import "time"

// Side distinguishes buy orders from sell orders.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// PriceType selects how the execution price is determined.
type PriceType string

const (
	PriceTypeMarket PriceType = "market"
	PriceTypeLimit  PriceType = "limit"
)

// OrderType is a descriptive lot-size label. It does not affect settlement.
type OrderType string

const (
	OrderTypeWholeLot OrderType = "whole_lot"
	OrderTypeOddLot   OrderType = "odd_lot"
)

// TradeType is a descriptive financing label. It does not affect settlement.
type TradeType string

const (
	TradeTypeCash   TradeType = "cash"
	TradeTypeMargin TradeType = "margin"
	TradeTypeShort  TradeType = "short"
)

// Condition is a descriptive time-in-force label. It does not affect
// settlement.
type Condition string

const (
	ConditionROD Condition = "ROD"
	ConditionIOC Condition = "IOC"
	ConditionFOK Condition = "FOK"
)

// Account is a simulated cash account. Accounts are provisioned lazily with
// a default starting balance the first time they trade or earn a reward.
type Account struct {
	ID          string
	CashBalance float64
	CreatedAt   time.Time
}

// Position is one account's holding in one symbol. A position with zero
// shares is deleted, never stored.
type Position struct {
	AccountID string
	Symbol    string
	Shares    int64
	AvgCost   float64
	UpdatedAt time.Time
}

// Quote is a snapshot of a symbol's current market price and recent change.
type Quote struct {
	Symbol        string
	Name          string
	Price         float64
	Change        float64
	ChangePercent float64
	AsOf          time.Time
}

// Transaction is the immutable record of one executed order. TotalAmount is
// gross+fee for buys and gross-fee for sells.
type Transaction struct {
	ID          int64
	AccountID   string
	Symbol      string
	Side        Side
	Shares      int64
	Price       float64
	Fee         float64
	TotalAmount float64
	OrderType   OrderType
	TradeType   TradeType
	Condition   Condition
	PriceType   PriceType
	Timestamp   time.Time
}

// OrderRequest is an inbound order before validation. LimitPrice is required
// when PriceType is limit and ignored otherwise.
type OrderRequest struct {
	AccountID  string
	Symbol     string
	Side       Side
	Shares     int64
	PriceType  PriceType
	LimitPrice float64
	OrderType  OrderType
	TradeType  TradeType
	Condition  Condition
}

// Fill is the outcome of a successfully settled order.
type Fill struct {
	TransactionID int64
	Symbol        string
	Side          Side
	Shares        int64
	ExecutedPrice float64
	Fee           float64
	TotalAmount   float64
	NewBalance    float64
	Timestamp     time.Time
}
