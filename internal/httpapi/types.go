// Package httpapi provides the HTTP REST API for the paper trading server,
// exposing order submission, quotes, accounts, and quiz rewards as JSON.
package httpapi

import (
	"time"

	"papertrade/internal/domain"
)

// OrderRequestJSON is the JSON body for POST /api/orders.
type OrderRequestJSON struct {
	AccountID  string  `json:"account_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Shares     int64   `json:"shares"`
	PriceType  string  `json:"price_type,omitempty"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	OrderType  string  `json:"order_type,omitempty"`
	TradeType  string  `json:"trade_type,omitempty"`
	Condition  string  `json:"condition,omitempty"`
}

// FillJSON is the JSON representation of an executed order.
type FillJSON struct {
	TransactionID int64     `json:"transaction_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Shares        int64     `json:"shares"`
	ExecutedPrice float64   `json:"executed_price"`
	Fee           float64   `json:"fee"`
	TotalAmount   float64   `json:"total_amount"`
	NewBalance    float64   `json:"new_balance"`
	Timestamp     time.Time `json:"timestamp"`
}

func convertFill(f *domain.Fill) FillJSON {
	return FillJSON{
		TransactionID: f.TransactionID,
		Symbol:        f.Symbol,
		Side:          string(f.Side),
		Shares:        f.Shares,
		ExecutedPrice: f.ExecutedPrice,
		Fee:           f.Fee,
		TotalAmount:   f.TotalAmount,
		NewBalance:    f.NewBalance,
		Timestamp:     f.Timestamp,
	}
}

// QuoteJSON is the JSON representation of a stock quote.
type QuoteJSON struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	AsOf          time.Time `json:"as_of"`
}

func convertQuote(q *domain.Quote) QuoteJSON {
	return QuoteJSON{
		Symbol:        q.Symbol,
		Name:          q.Name,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		AsOf:          q.AsOf,
	}
}

// StocksResponse lists quotes for the default watch list.
type StocksResponse struct {
	Stocks []QuoteJSON `json:"stocks"`
}

// AccountJSON is the JSON representation of an account.
type AccountJSON struct {
	ID          string    `json:"id"`
	CashBalance float64   `json:"cash_balance"`
	CreatedAt   time.Time `json:"created_at"`
}

// HoldingJSON is one position enriched with its current market value.
type HoldingJSON struct {
	Symbol       string  `json:"symbol"`
	Shares       int64   `json:"shares"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	MarketValue  float64 `json:"market_value,omitempty"`
	Unrealized   float64 `json:"unrealized_pl,omitempty"`
	PriceStale   bool    `json:"price_stale,omitempty"`
}

// PortfolioResponse is the full portfolio view for an account.
type PortfolioResponse struct {
	Account     AccountJSON   `json:"account"`
	Holdings    []HoldingJSON `json:"holdings"`
	StocksValue float64       `json:"stocks_value"`
	TotalValue  float64       `json:"total_value"`
}

// TransactionJSON is the JSON representation of a settled transaction.
type TransactionJSON struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Shares      int64     `json:"shares"`
	Price       float64   `json:"price"`
	Fee         float64   `json:"fee"`
	TotalAmount float64   `json:"total_amount"`
	OrderType   string    `json:"order_type"`
	TradeType   string    `json:"trade_type"`
	Condition   string    `json:"condition"`
	PriceType   string    `json:"price_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func convertTransaction(t *domain.Transaction) TransactionJSON {
	return TransactionJSON{
		ID:          t.ID,
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
		Timestamp:   t.Timestamp,
	}
}

// TransactionsResponse lists transactions newest first.
type TransactionsResponse struct {
	Transactions []TransactionJSON `json:"transactions"`
}

// QuizRequestJSON is the JSON body for POST /api/rewards/quiz.
type QuizRequestJSON struct {
	AccountID      string `json:"account_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
}
