package rational

import "testing"

func TestNewNormalizesToLowestTerms(t *testing.T) {
	r := New(6, 8)
	if r.Num() != 3 || r.Den() != 4 {
		t.Fatalf("expected 3/4, got %s", r)
	}
	r = New(-6, -8)
	if r.Num() != 3 || r.Den() != 4 {
		t.Fatalf("expected 3/4 from -6/-8, got %s", r)
	}
	r = New(5, -10)
	if r.Num() != -1 || r.Den() != 2 {
		t.Fatalf("expected -1/2, got %s", r)
	}
}

func TestArithmetic(t *testing.T) {
	a := New(1, 3)
	b := New(1, 6)
	if got := a.Add(b); got.Cmp(New(1, 2)) != 0 {
		t.Fatalf("1/3 + 1/6 = %s, want 1/2", got)
	}
	if got := a.Sub(b); got.Cmp(New(1, 6)) != 0 {
		t.Fatalf("1/3 - 1/6 = %s, want 1/6", got)
	}
	if got := a.Mul(New(3, 4)); got.Cmp(New(1, 4)) != 0 {
		t.Fatalf("1/3 * 3/4 = %s, want 1/4", got)
	}
	if got := a.Div(New(2, 3)); got.Cmp(New(1, 2)) != 0 {
		t.Fatalf("1/3 / 2/3 = %s, want 1/2", got)
	}
	if got := a.MulInt(6); got.Cmp(New(2, 1)) != 0 {
		t.Fatalf("1/3 * 6 = %s, want 2", got)
	}
	if got := New(1, 1).DivInt(3); got.Cmp(New(1, 3)) != 0 {
		t.Fatalf("1 / 3 = %s, want 1/3", got)
	}
}

func TestMulCrossReductionAvoidsOverflow(t *testing.T) {
	big := New(1, 1<<40)
	if got := big.Mul(New(1<<40, 3)); got.Cmp(New(1, 3)) != 0 {
		t.Fatalf("expected 1/3, got %s", got)
	}
}

func TestRoundHalfToEven(t *testing.T) {
	cases := []struct {
		num, den int64
		want     int64
	}{
		{1, 2, 0},  // 0.5 -> 0 (even)
		{3, 2, 2},  // 1.5 -> 2 (even)
		{5, 2, 2},  // 2.5 -> 2 (even)
		{7, 2, 4},  // 3.5 -> 4 (even)
		{1, 3, 0},  // 0.33 -> 0
		{2, 3, 1},  // 0.66 -> 1
		{-1, 2, 0}, // -0.5 -> 0 (even)
		{-3, 2, -2},
		{7, 1, 7},
	}
	for _, c := range cases {
		if got := New(c.num, c.den).Round(); got != c.want {
			t.Errorf("Round(%d/%d) = %d, want %d", c.num, c.den, got, c.want)
		}
	}
}

func TestSamplesConversion(t *testing.T) {
	perWhole := New(88200, 1)
	if got := New(1, 4).Samples(perWhole); got != 22050 {
		t.Fatalf("1/4 whole = %d samples, want 22050", got)
	}
	if got := New(3, 8).Samples(perWhole); got != 33075 {
		t.Fatalf("3/8 whole = %d samples, want 33075", got)
	}
}

func TestPartitionIsExact(t *testing.T) {
	// Subdividing one whole note into thirds and re-adding must return to
	// exactly one, with no drift.
	third := One.DivInt(3)
	sum := Zero
	for i := 0; i < 3; i++ {
		sum = sum.Add(third)
	}
	if sum.Cmp(One) != 0 {
		t.Fatalf("3 * 1/3 = %s, want 1", sum)
	}
	// 7-way subdivision repeated over many cycles stays exact.
	seventh := One.DivInt(7)
	pos := Zero
	for i := 0; i < 7*100; i++ {
		pos = pos.Add(seventh)
	}
	if pos.Cmp(FromInt(100)) != 0 {
		t.Fatalf("position after 700 sevenths = %s, want 100", pos)
	}
}

func TestFromFloat(t *testing.T) {
	if got := FromFloat(120.0, 1_000_000); got.Cmp(FromInt(120)) != 0 {
		t.Fatalf("FromFloat(120) = %s", got)
	}
	if got := FromFloat(133.5, 1_000_000); got.Cmp(New(267, 2)) != 0 {
		t.Fatalf("FromFloat(133.5) = %s, want 267/2", got)
	}
}

func TestZeroValueBehaves(t *testing.T) {
	var r Rat
	if r.Den() != 1 || !r.IsZero() {
		t.Fatalf("zero value should read as 0/1")
	}
	if got := r.Add(One); got.Cmp(One) != 0 {
		t.Fatalf("0 + 1 = %s", got)
	}
}
