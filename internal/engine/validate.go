package engine

import (
	"fmt"

	"papertrade/internal/domain"
)

// validateRequest rejects malformed orders before any I/O happens and fills
// in default descriptive labels.
func validateRequest(req *domain.OrderRequest) error {
	if req.AccountID == "" {
		return &domain.ValidationError{Message: "account id is required"}
	}
	if req.Symbol == "" {
		return &domain.ValidationError{Message: "symbol is required"}
	}
	if !req.Side.Valid() {
		return &domain.ValidationError{Message: fmt.Sprintf("side must be %q or %q", domain.SideBuy, domain.SideSell)}
	}
	if req.Shares <= 0 {
		return &domain.ValidationError{Message: "share count must be a positive integer"}
	}

	switch req.PriceType {
	case domain.PriceTypeMarket:
	case domain.PriceTypeLimit:
		if req.LimitPrice <= 0 {
			return &domain.ValidationError{Message: "limit orders require a positive limit price"}
		}
	case "":
		req.PriceType = domain.PriceTypeMarket
	default:
		return &domain.ValidationError{Message: fmt.Sprintf("unknown price type %q", req.PriceType)}
	}

	// Descriptive labels recorded on the transaction; they do not affect
	// settlement math.
	if req.OrderType == "" {
		req.OrderType = domain.OrderTypeWholeLot
	}
	if req.TradeType == "" {
		req.TradeType = domain.TradeTypeCash
	}
	if req.Condition == "" {
		req.Condition = domain.ConditionROD
	}
	return nil
}

// executionPrice decides the fill price for an eligible order, or rejects a
// limit order that cannot fill immediately.
//
// Eligible limit orders fill at the current market price rather than the
// requested limit price: a buy limit above market already satisfies the
// buyer, and filling at market is the better execution for them (and
// mirrors what a real venue would do).
func executionPrice(req *domain.OrderRequest, quote *domain.Quote) (float64, error) {
	if req.PriceType == domain.PriceTypeMarket {
		return quote.Price, nil
	}

	switch req.Side {
	case domain.SideBuy:
		// Buyer pays at most the limit. Market above it cannot fill now.
		if quote.Price > req.LimitPrice {
			return 0, domain.Reject(domain.ErrLimitNotMet,
				fmt.Sprintf("market price %.2f is above buy limit %.2f", quote.Price, req.LimitPrice))
		}
	case domain.SideSell:
		// Seller accepts at least the limit. Market below it cannot fill now.
		if quote.Price < req.LimitPrice {
			return 0, domain.Reject(domain.ErrLimitNotMet,
				fmt.Sprintf("market price %.2f is below sell limit %.2f", quote.Price, req.LimitPrice))
		}
	}
	return quote.Price, nil
}
