// Package engine validates incoming orders against the current market and
// account state, then settles them atomically through the storage layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"papertrade/internal/domain"
	"papertrade/internal/market"
	"papertrade/internal/store"
)

// Engine is the order execution engine. Each order request is handled
// independently and statelessly: the engine holds no mutable trading state,
// so concurrency correctness rests entirely on the settler's per-transaction
// serialization.
type Engine struct {
	quotes          *market.Cache
	accounts        store.AccountStore
	positions       store.PositionStore
	settler         store.Settler
	startingBalance float64
	log             *slog.Logger
}

// NewEngine creates an Engine wired with the given dependencies. Accounts
// are lazily provisioned with startingBalance on their first order.
func NewEngine(
	quotes *market.Cache,
	accounts store.AccountStore,
	positions store.PositionStore,
	settler store.Settler,
	startingBalance float64,
	log *slog.Logger,
) *Engine {
	return &Engine{
		quotes:          quotes,
		accounts:        accounts,
		positions:       positions,
		settler:         settler,
		startingBalance: startingBalance,
		log:             log.With("component", "engine"),
	}
}

// SubmitOrder validates the order and, if eligible, settles it: the balance
// adjustment, position change, and transaction-log append apply as one
// atomic unit. Rejections (limit not met, insufficient funds or shares,
// unknown symbol, no quote) are typed errors and mutate nothing.
func (e *Engine) SubmitOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Fill, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	req.Symbol = market.NormalizeSymbol(req.Symbol)

	quote, err := e.quotes.GetQuote(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	price, err := executionPrice(req, quote)
	if err != nil {
		return nil, err
	}

	gross := price * float64(req.Shares)
	fee := domain.Fee(gross)

	t := &domain.Transaction{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Shares:    req.Shares,
		Price:     price,
		Fee:       fee,
		OrderType: req.OrderType,
		TradeType: req.TradeType,
		Condition: req.Condition,
		PriceType: req.PriceType,
	}

	switch req.Side {
	case domain.SideBuy:
		t.TotalAmount = gross + fee
		if err := e.checkFunds(ctx, req.AccountID, t.TotalAmount); err != nil {
			return nil, err
		}
	case domain.SideSell:
		t.TotalAmount = gross - fee
		if err := e.checkShares(ctx, req.AccountID, req.Symbol, req.Shares); err != nil {
			return nil, err
		}
	}

	// The settler re-checks the funds and shares guards inside its own
	// transaction; the checks above only give the caller an early, cheap
	// rejection with quote context.
	fill, err := e.settler.ExecuteOrder(ctx, t, e.startingBalance)
	if err != nil {
		return nil, err
	}

	e.log.Info("order settled",
		"account", req.AccountID,
		"symbol", req.Symbol,
		"side", req.Side,
		"shares", req.Shares,
		"price", fill.ExecutedPrice,
		"fee", fill.Fee,
		"total", fill.TotalAmount,
		"balance", fill.NewBalance,
	)
	return fill, nil
}

// checkFunds fails fast with ErrInsufficientFunds when the account balance
// cannot cover the total amount. The check is read-only: an account that
// does not exist yet is provisioned by the settler, not here, so a rejected
// first order leaves no account row behind.
func (e *Engine) checkFunds(ctx context.Context, accountID string, total float64) error {
	balance := e.startingBalance
	account, err := e.accounts.GetAccount(ctx, accountID)
	switch {
	case err == nil:
		balance = account.CashBalance
	case errors.Is(err, domain.ErrAccountNotFound):
		// First order for this account draws on the starting balance.
	default:
		return err
	}
	if balance < total {
		return domain.Reject(domain.ErrInsufficientFunds,
			fmt.Sprintf("order requires %.2f, balance is %.2f", total, balance))
	}
	return nil
}

// checkShares fails fast with ErrInsufficientShares when the position does
// not cover the sell.
func (e *Engine) checkShares(ctx context.Context, accountID, symbol string, shares int64) error {
	pos, err := e.positions.GetPosition(ctx, accountID, symbol)
	if err == domain.ErrPositionNotFound {
		return domain.Reject(domain.ErrInsufficientShares, "no position in "+symbol)
	}
	if err != nil {
		return err
	}
	if pos.Shares < shares {
		return domain.Reject(domain.ErrInsufficientShares,
			fmt.Sprintf("holding %d shares of %s, order sells %d", pos.Shares, symbol, shares))
	}
	return nil
}
