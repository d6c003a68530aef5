// Package papertrade provides a Go SDK for the papertrade-server API.
package papertrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to a papertrade-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// OrderRequest describes an order to submit.
type OrderRequest struct {
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

// Fill is the settled result of an accepted order.
type Fill struct {
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

// Quote is a stock quote.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	AsOf          time.Time `json:"as_of"`
}

// Account is a simulated cash account.
type Account struct {
	ID          string    `json:"id"`
	CashBalance float64   `json:"cash_balance"`
	CreatedAt   time.Time `json:"created_at"`
}

// Holding is one portfolio position with its current valuation.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Shares       int64   `json:"shares"`
	AvgCost      float64 `json:"avg_cost"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	MarketValue  float64 `json:"market_value,omitempty"`
	Unrealized   float64 `json:"unrealized_pl,omitempty"`
	PriceStale   bool    `json:"price_stale,omitempty"`
}

// Portfolio is the full valuation view of an account.
type Portfolio struct {
	Account     Account   `json:"account"`
	Holdings    []Holding `json:"holdings"`
	StocksValue float64   `json:"stocks_value"`
	TotalValue  float64   `json:"total_value"`
}

// Transaction is one settled trade.
type Transaction struct {
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

// QuizResult reports what a quiz submission earned.
type QuizResult struct {
	PointsEarned int     `json:"points_earned"`
	BalanceAdded float64 `json:"balance_added"`
	NewBalance   float64 `json:"new_balance"`
}

// SubmitOrder submits an order and returns its fill.
func (c *Client) SubmitOrder(ctx context.Context, req *OrderRequest) (*Fill, error) {
	var fill Fill
	if err := c.do(ctx, "POST", "/api/orders", req, &fill); err != nil {
		return nil, err
	}
	return &fill, nil
}

// GetStocks retrieves quotes for the server's default watch list.
func (c *Client) GetStocks(ctx context.Context) ([]Quote, error) {
	var resp struct {
		Stocks []Quote `json:"stocks"`
	}
	if err := c.do(ctx, "GET", "/api/stocks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stocks, nil
}

// GetStock retrieves the quote for one symbol.
func (c *Client) GetStock(ctx context.Context, symbol string) (*Quote, error) {
	var q Quote
	if err := c.do(ctx, "GET", "/api/stocks/"+url.PathEscape(symbol), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetAccount retrieves an account by ID.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	if err := c.do(ctx, "GET", "/api/accounts/"+url.PathEscape(accountID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetPortfolio retrieves the portfolio valuation view for an account.
func (c *Client) GetPortfolio(ctx context.Context, accountID string) (*Portfolio, error) {
	var p Portfolio
	if err := c.do(ctx, "GET", "/api/accounts/"+url.PathEscape(accountID)+"/portfolio", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetTransactions retrieves an account's most recent transactions, newest
// first. A limit of 0 uses the server default.
func (c *Client) GetTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error) {
	path := "/api/accounts/" + url.PathEscape(accountID) + "/transactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// SubmitQuiz credits a quiz score to an account.
func (c *Client) SubmitQuiz(ctx context.Context, accountID string, score, totalQuestions int) (*QuizResult, error) {
	body := map[string]any{
		"account_id":      accountID,
		"score":           score,
		"total_questions": totalQuestions,
	}
	var res QuizResult
	if err := c.do(ctx, "POST", "/api/rewards/quiz", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
