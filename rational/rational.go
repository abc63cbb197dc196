// Package rational implements exact rational arithmetic for musical time.
//
// All pattern-internal durations are rationals in units of whole notes, so
// cycles subdivided by arbitrary integer factors stay drift free. Conversion
// to integer sample positions happens once, at the edge, with half-to-even
// rounding.
package rational

import "strconv"

type Rat struct {
	num int64
	den int64 // always > 0
}

var Zero = Rat{0, 1}
var One = Rat{1, 1}

// New returns num/den in lowest terms. den must not be zero.
func New(num, den int64) Rat {
	if den == 0 {
		panic("rational: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Rat{0, 1}
	}
	g := gcd(abs(num), den)
	return Rat{num / g, den / g}
}

func FromInt(n int64) Rat { return Rat{n, 1} }

// FromFloat approximates f as a rational with the given maximum denominator.
// Decimal BPM values like 120.0 or 133.5 convert exactly.
func FromFloat(f float64, maxDen int64) Rat {
	if f == 0 {
		return Zero
	}
	neg := f < 0
	if neg {
		f = -f
	}
	num := int64(f*float64(maxDen) + 0.5)
	if neg {
		num = -num
	}
	return New(num, maxDen)
}

func (r Rat) Num() int64 { return r.num }

func (r Rat) Den() int64 {
	if r.den == 0 {
		return 1 // zero value Rat{} reads as 0/1
	}
	return r.den
}

func (r Rat) IsZero() bool     { return r.num == 0 }
func (r Rat) Float64() float64 { return float64(r.num) / float64(r.Den()) }

func (r Rat) Add(o Rat) Rat {
	return New(r.num*o.Den()+o.num*r.Den(), r.Den()*o.Den())
}

func (r Rat) Sub(o Rat) Rat {
	return New(r.num*o.Den()-o.num*r.Den(), r.Den()*o.Den())
}

func (r Rat) Mul(o Rat) Rat {
	// Cross-reduce before multiplying to keep intermediates small.
	a, b := r.num, r.Den()
	c, d := o.num, o.Den()
	if g := gcd(abs(a), d); g > 1 {
		a, d = a/g, d/g
	}
	if g := gcd(abs(c), b); g > 1 {
		c, b = c/g, b/g
	}
	return New(a*c, b*d)
}

func (r Rat) Div(o Rat) Rat {
	if o.num == 0 {
		panic("rational: division by zero")
	}
	return New(r.num*o.Den(), r.Den()*o.num)
}

// MulInt returns r*n.
func (r Rat) MulInt(n int64) Rat { return r.Mul(Rat{n, 1}) }

// DivInt returns r/n. n must not be zero.
func (r Rat) DivInt(n int64) Rat {
	if n == 0 {
		panic("rational: division by zero")
	}
	return New(r.num, r.Den()*n)
}

// Cmp returns -1, 0 or +1.
func (r Rat) Cmp(o Rat) int {
	lhs := r.num * o.Den()
	rhs := o.num * r.Den()
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return +1
	default:
		return 0
	}
}

func (r Rat) Less(o Rat) bool { return r.Cmp(o) < 0 }
func (r Rat) Neg() Rat        { return Rat{-r.num, r.Den()} }

// Round rounds to the nearest integer, ties to even.
func (r Rat) Round() int64 {
	den := r.Den()
	q := r.num / den
	rem := r.num % den
	if rem == 0 {
		return q
	}
	if rem < 0 {
		rem += den
		q--
	}
	twice := 2 * rem
	switch {
	case twice < den:
		return q
	case twice > den:
		return q + 1
	default: // exact half: round to even
		if q%2 == 0 {
			return q
		}
		return q + 1
	}
}

// Samples converts a time in whole notes to an integer sample position for
// the given samples-per-whole-note rate.
func (r Rat) Samples(perWhole Rat) int64 {
	return r.Mul(perWhole).Round()
}

func (r Rat) String() string {
	if r.Den() == 1 {
		return strconv.FormatInt(r.num, 10)
	}
	return strconv.FormatInt(r.num, 10) + "/" + strconv.FormatInt(r.Den(), 10)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
