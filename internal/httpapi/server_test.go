package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/engine"
	"papertrade/internal/market"
	"papertrade/internal/rewards"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

type fakeProvider struct {
	prices map[string]float64
}

func (f *fakeProvider) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	price, ok := f.prices[symbol]
	if !ok {
		return nil, domain.ErrSymbolNotFound
	}
	return &domain.Quote{Symbol: symbol, Price: price, AsOf: time.Now()}, nil
}

func newTestServer(t *testing.T, prices map[string]float64, symbols []string) *Server {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	log := util.NewLogger("error")
	cache := market.NewCache(&fakeProvider{prices: prices}, s, time.Minute, log)
	eng := engine.NewEngine(cache, s, s, s, 100000, log)
	rew := rewards.NewService(s, 10, 100, 100000, log)
	return NewServer(eng, cache, s, s, s, rew, symbols, log)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestSubmitOrderEndpoint(t *testing.T) {
	srv := newTestServer(t, map[string]float64{"AAPL": 100}, nil)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/orders", OrderRequestJSON{
		AccountID: "u1", Symbol: "aapl", Side: "buy", Shares: 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	fill := decode[FillJSON](t, rec)
	if fill.Symbol != "AAPL" || fill.TotalAmount != 1001 || fill.NewBalance != 98999 {
		t.Errorf("fill = %+v", fill)
	}
	if fill.TransactionID == 0 {
		t.Error("transaction id not set")
	}
}

func TestSubmitOrderEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing side", OrderRequestJSON{AccountID: "u1", Symbol: "AAPL", Shares: 1}, http.StatusBadRequest},
		{"unknown symbol", OrderRequestJSON{AccountID: "u1", Symbol: "NOPE", Side: "buy", Shares: 1}, http.StatusNotFound},
		{"insufficient funds", OrderRequestJSON{AccountID: "u1", Symbol: "AAPL", Side: "buy", Shares: 100000}, http.StatusUnprocessableEntity},
		{"insufficient shares", OrderRequestJSON{AccountID: "u1", Symbol: "AAPL", Side: "sell", Shares: 1}, http.StatusUnprocessableEntity},
		{"limit not met", OrderRequestJSON{AccountID: "u1", Symbol: "AAPL", Side: "buy", Shares: 1, PriceType: "limit", LimitPrice: 50}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, map[string]float64{"AAPL": 100}, nil)
			rec := doJSON(t, srv.Handler(), "POST", "/api/orders", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			resp := decode[map[string]string](t, rec)
			if resp["error"] == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestStocksEndpoint(t *testing.T) {
	prices := map[string]float64{"AAPL": 100, "TSLA": 200}
	srv := newTestServer(t, prices, []string{"AAPL", "TSLA", "NOPE"})

	rec := doJSON(t, srv.Handler(), "GET", "/api/stocks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[StocksResponse](t, rec)
	// Unquotable symbols are skipped, not fatal.
	if len(resp.Stocks) != 2 {
		t.Fatalf("stocks = %d, want 2", len(resp.Stocks))
	}
	if resp.Stocks[0].Symbol != "AAPL" || resp.Stocks[0].Price != 100 {
		t.Errorf("first stock = %+v", resp.Stocks[0])
	}
}

func TestStockEndpoint(t *testing.T) {
	srv := newTestServer(t, map[string]float64{"AAPL": 185.5}, nil)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/stocks/aapl", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	q := decode[QuoteJSON](t, rec)
	if q.Symbol != "AAPL" || q.Price != 185.5 {
		t.Errorf("quote = %+v", q)
	}

	rec = doJSON(t, h, "GET", "/api/stocks/NOPE", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown symbol status = %d, want 404", rec.Code)
	}
}

func TestAccountEndpoints(t *testing.T) {
	srv := newTestServer(t, map[string]float64{"AAPL": 100}, nil)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/accounts/u1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown account status = %d, want 404", rec.Code)
	}

	if rec := doJSON(t, h, "POST", "/api/orders", OrderRequestJSON{
		AccountID: "u1", Symbol: "AAPL", Side: "buy", Shares: 10,
	}); rec.Code != http.StatusOK {
		t.Fatalf("seed order: status = %d", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/api/accounts/u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("account status = %d", rec.Code)
	}
	acct := decode[AccountJSON](t, rec)
	if acct.ID != "u1" || acct.CashBalance != 98999 {
		t.Errorf("account = %+v", acct)
	}

	rec = doJSON(t, h, "GET", "/api/accounts/u1/portfolio", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d", rec.Code)
	}
	pf := decode[PortfolioResponse](t, rec)
	if len(pf.Holdings) != 1 {
		t.Fatalf("holdings = %d, want 1", len(pf.Holdings))
	}
	if pf.Holdings[0].Symbol != "AAPL" || pf.Holdings[0].MarketValue != 1000 {
		t.Errorf("holding = %+v", pf.Holdings[0])
	}
	if pf.TotalValue != 99999 {
		t.Errorf("total value = %v, want 99999", pf.TotalValue)
	}

	rec = doJSON(t, h, "GET", "/api/accounts/u1/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions status = %d", rec.Code)
	}
	txns := decode[TransactionsResponse](t, rec)
	if len(txns.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(txns.Transactions))
	}
	if txns.Transactions[0].Fee != 1 {
		t.Errorf("fee = %v, want 1", txns.Transactions[0].Fee)
	}
}

func TestQuizEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/rewards/quiz", QuizRequestJSON{
		AccountID: "u1", Score: 3, TotalQuestions: 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	res := decode[rewards.Result](t, rec)
	if res.PointsEarned != 30 || res.BalanceAdded != 3000 || res.NewBalance != 103000 {
		t.Errorf("result = %+v", res)
	}

	rec = doJSON(t, h, "POST", "/api/rewards/quiz", QuizRequestJSON{
		AccountID: "u1", Score: 9, TotalQuestions: 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid score status = %d, want 400", rec.Code)
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}

	req := httptest.NewRequest("OPTIONS", "/api/orders", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}
