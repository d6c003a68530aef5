package domain

import "testing"

func TestFee(t *testing.T) {
	cases := []struct {
		gross float64
		want  float64
	}{
		{0, 0},
		{100, 0},
		{1000, 1},      // 10 shares @ 100
		{1100, 1},      // 10 shares @ 110
		{100000, 142},  // 142.5 truncates down
		{1000000, 1425},
		{2000000, 2850},
		{123456, 175}, // 175.9248
	}
	for _, c := range cases {
		if got := Fee(c.gross); got != c.want {
			t.Errorf("Fee(%v) = %v, want %v", c.gross, got, c.want)
		}
	}
}

func TestFeeNeverRoundsUp(t *testing.T) {
	// 999999 * 0.001425 = 1424.998575, so this must truncate, not round.
	if got := Fee(999999); got != 1424 {
		t.Errorf("Fee(999999) = %v, want 1424", got)
	}
}
