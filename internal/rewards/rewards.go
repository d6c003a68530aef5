// Package rewards converts quiz results into account balance credits.
package rewards

import (
	"context"
	"fmt"
	"log/slog"

	"papertrade/internal/domain"
	"papertrade/internal/store"
)

// Result reports what a quiz submission earned.
type Result struct {
	PointsEarned int     `json:"points_earned"`
	BalanceAdded float64 `json:"balance_added"`
	NewBalance   float64 `json:"new_balance"`
}

// Service credits quiz scores to accounts. Each correct answer is worth a
// fixed number of points, and each point converts to a fixed balance credit.
type Service struct {
	accounts         store.AccountStore
	pointsPerCorrect int
	balancePerPoint  float64
	startingBalance  float64
	log              *slog.Logger
}

// NewService creates a rewards Service.
func NewService(accounts store.AccountStore, pointsPerCorrect int, balancePerPoint, startingBalance float64, log *slog.Logger) *Service {
	return &Service{
		accounts:         accounts,
		pointsPerCorrect: pointsPerCorrect,
		balancePerPoint:  balancePerPoint,
		startingBalance:  startingBalance,
		log:              log.With("component", "rewards"),
	}
}

// Credit awards the balance earned by a quiz score. The account is
// provisioned with the starting balance if it does not exist yet.
func (s *Service) Credit(ctx context.Context, accountID string, score, totalQuestions int) (*Result, error) {
	if accountID == "" {
		return nil, &domain.ValidationError{Message: "account id is required"}
	}
	if score < 0 {
		return nil, &domain.ValidationError{Message: "score must not be negative"}
	}
	if totalQuestions <= 0 {
		return nil, &domain.ValidationError{Message: "total questions must be positive"}
	}
	if score > totalQuestions {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("score %d exceeds total questions %d", score, totalQuestions),
		}
	}

	points := score * s.pointsPerCorrect
	credit := float64(points) * s.balancePerPoint

	balance, err := s.accounts.AdjustBalance(ctx, accountID, credit, s.startingBalance)
	if err != nil {
		return nil, err
	}

	s.log.Info("quiz reward credited",
		"account", accountID,
		"score", score,
		"total", totalQuestions,
		"points", points,
		"credit", credit,
		"balance", balance,
	)
	return &Result{PointsEarned: points, BalanceAdded: credit, NewBalance: balance}, nil
}
