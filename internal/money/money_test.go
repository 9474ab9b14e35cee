package money

import "testing"

func TestDivRoundHalfEven(t *testing.T) {
	cases := []struct {
		n, d, want Amount
	}{
		{10, 4, 2},  // 2.5 rounds to even 2
		{14, 4, 4},  // 3.5 rounds to even 4
		{11, 4, 3},  // 2.75 rounds up
		{9, 4, 2},   // 2.25 rounds down
		{100, 3, 33},
		{200, 3, 67},
		{0, 5, 0},
		{-10, 4, -2},
	}
	for _, tc := range cases {
		if got := DivRound(tc.n, tc.d); got != tc.want {
			t.Fatalf("DivRound(%d, %d) = %d, want %d", tc.n, tc.d, got, tc.want)
		}
	}
}

func TestApplyBps(t *testing.T) {
	if got := ApplyBps(3000, 1000); got != 300 {
		t.Fatalf("10%% of 3000 = %d, want 300", got)
	}
	if got := ApplyBps(1250, 500); got != 62 {
		t.Fatalf("5%% of 1250 = %d, want 62 (62.5 rounds to even)", got)
	}
	if got := ApplyBps(0, 1000); got != 0 {
		t.Fatalf("expected zero, got %d", got)
	}
}

func TestAllocateSumsExactly(t *testing.T) {
	weights := []Amount{333, 333, 334}
	parts := Allocate(100, weights)
	var sum Amount
	for _, p := range parts {
		sum += p
	}
	if sum != 100 {
		t.Fatalf("allocated parts sum to %d, want 100", sum)
	}
}

func TestAllocateSkipsZeroWeights(t *testing.T) {
	parts := Allocate(10, []Amount{0, 5, 5})
	if parts[0] != 0 {
		t.Fatalf("zero weight received %d", parts[0])
	}
	if parts[1]+parts[2] != 10 {
		t.Fatalf("expected full allocation across non-zero weights, got %v", parts)
	}
}

func TestAllocateDeterministicTies(t *testing.T) {
	a := Allocate(1, []Amount{50, 50})
	b := Allocate(1, []Amount{50, 50})
	if a[0] != b[0] || a[1] != b[1] {
		t.Fatalf("allocation not deterministic: %v vs %v", a, b)
	}
	if a[0]+a[1] != 1 {
		t.Fatalf("parts must sum to total, got %v", a)
	}
}
