package rewards

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"papertrade/internal/domain"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "rewards.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewService(s, 10, 100, 100000, util.NewLogger("error")), s
}

func TestCreditProvisionsAndPays(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Credit(context.Background(), "u1", 4, 5)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if res.PointsEarned != 40 {
		t.Errorf("points = %d, want 40", res.PointsEarned)
	}
	if res.BalanceAdded != 4000 {
		t.Errorf("credit = %v, want 4000", res.BalanceAdded)
	}
	if res.NewBalance != 104000 {
		t.Errorf("balance = %v, want 104000", res.NewBalance)
	}
}

func TestCreditExistingAccount(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	if _, err := s.GetOrCreateAccount(ctx, "u1", 100000); err != nil {
		t.Fatalf("GetOrCreateAccount: %v", err)
	}
	res, err := svc.Credit(ctx, "u1", 5, 5)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if res.NewBalance != 105000 {
		t.Errorf("balance = %v, want 105000", res.NewBalance)
	}
}

func TestCreditZeroScore(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Credit(context.Background(), "u1", 0, 5)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if res.PointsEarned != 0 || res.BalanceAdded != 0 {
		t.Errorf("zero score earned %d points, %v credit", res.PointsEarned, res.BalanceAdded)
	}
	if res.NewBalance != 100000 {
		t.Errorf("balance = %v, want 100000", res.NewBalance)
	}
}

func TestCreditValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID string
		score     int
		total     int
	}{
		{"missing account", "", 1, 5},
		{"negative score", "u1", -1, 5},
		{"zero total", "u1", 0, 0},
		{"score above total", "u1", 6, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Credit(ctx, tt.accountID, tt.score, tt.total)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}
