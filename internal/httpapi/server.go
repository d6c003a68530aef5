package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"papertrade/internal/domain"
	"papertrade/internal/engine"
	"papertrade/internal/market"
	"papertrade/internal/rewards"
	"papertrade/internal/store"
)

// Server serves the trading HTTP API.
type Server struct {
	engine         *engine.Engine
	quotes         *market.Cache
	accounts       store.AccountStore
	positions      store.PositionStore
	transactions   store.TransactionStore
	rewards        *rewards.Service
	defaultSymbols []string
	log            *slog.Logger
}

// NewServer creates a new API server.
func NewServer(
	eng *engine.Engine,
	quotes *market.Cache,
	accounts store.AccountStore,
	positions store.PositionStore,
	transactions store.TransactionStore,
	rewardsSvc *rewards.Service,
	defaultSymbols []string,
	log *slog.Logger,
) *Server {
	return &Server{
		engine:         eng,
		quotes:         quotes,
		accounts:       accounts,
		positions:      positions,
		transactions:   transactions,
		rewards:        rewardsSvc,
		defaultSymbols: defaultSymbols,
		log:            log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", s.handleSubmitOrder)
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleStock)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleAccount)
	mux.HandleFunc("GET /api/accounts/{id}/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/accounts/{id}/transactions", s.handleTransactions)
	mux.HandleFunc("POST /api/rewards/quiz", s.handleQuiz)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeDomainError maps domain errors to HTTP statuses. Rejections keep the
// engine's message so clients can show the reason verbatim.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrLimitNotMet),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientShares):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrSymbolNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuoteUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseLimit extracts the row limit from the "limit" query param.
func parseLimit(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var body OrderRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := &domain.OrderRequest{
		AccountID:  body.AccountID,
		Symbol:     body.Symbol,
		Side:       domain.Side(body.Side),
		Shares:     body.Shares,
		PriceType:  domain.PriceType(body.PriceType),
		LimitPrice: body.LimitPrice,
		OrderType:  domain.OrderType(body.OrderType),
		TradeType:  domain.TradeType(body.TradeType),
		Condition:  domain.Condition(body.Condition),
	}
	fill, err := s.engine.SubmitOrder(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, convertFill(fill))
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.quotes.GetQuotes(r.Context(), s.defaultSymbols)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	stocks := make([]QuoteJSON, 0, len(quotes))
	for i := range quotes {
		stocks = append(stocks, convertQuote(&quotes[i]))
	}
	writeJSON(w, StocksResponse{Stocks: stocks})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	quote, err := s.quotes.GetQuote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, convertQuote(quote))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, AccountJSON{ID: account.ID, CashBalance: account.CashBalance, CreatedAt: account.CreatedAt})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	account, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	positions, err := s.positions.ListPositions(ctx, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	holdings := make([]HoldingJSON, 0, len(positions))
	var stocksValue float64
	for i := range positions {
		p := &positions[i]
		h := HoldingJSON{Symbol: p.Symbol, Shares: p.Shares, AvgCost: p.AvgCost}
		quote, qerr := s.quotes.GetQuote(ctx, p.Symbol)
		if qerr != nil {
			// Value the position at cost when no price is available.
			s.log.Warn("no quote for holding, valuing at cost", "symbol", p.Symbol, "error", qerr)
			h.PriceStale = true
			h.MarketValue = float64(p.Shares) * p.AvgCost
		} else {
			h.CurrentPrice = quote.Price
			h.MarketValue = float64(p.Shares) * quote.Price
			h.Unrealized = (quote.Price - p.AvgCost) * float64(p.Shares)
		}
		stocksValue += h.MarketValue
		holdings = append(holdings, h)
	}

	writeJSON(w, PortfolioResponse{
		Account:     AccountJSON{ID: account.ID, CashBalance: account.CashBalance, CreatedAt: account.CreatedAt},
		Holdings:    holdings,
		StocksValue: stocksValue,
		TotalValue:  account.CashBalance + stocksValue,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.transactions.ListTransactions(r.Context(), r.PathValue("id"), parseLimit(r, 50))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]TransactionJSON, 0, len(txns))
	for i := range txns {
		out = append(out, convertTransaction(&txns[i]))
	}
	writeJSON(w, TransactionsResponse{Transactions: out})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var body QuizRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.rewards.Credit(r.Context(), body.AccountID, body.Score, body.TotalQuestions)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
