package media

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Rational is an exact time value in seconds, stored as num/den.
//
// Values are always kept in canonical reduced form with a positive
// denominator, so Rational is safe to compare with == and to use as a map
// key: 1/2 and 2/4 are the same value and the same key.
type Rational struct {
	num int64
	den int64
}

// NewRational returns num/den in canonical form. A zero denominator yields
// the zero value.
func NewRational(num, den int64) Rational {
	if den == 0 {
		return Rational{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd(abs64(num), den); g > 1 {
		num /= g
		den /= g
	}
	return Rational{num: num, den: den}
}

// FromInt returns n seconds as a Rational.
func FromInt(n int64) Rational {
	return Rational{num: n, den: 1}
}

// ParseRational parses "n/d" or a plain integer string.
func ParseRational(s string) (Rational, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parsing rational %q: %w", s, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parsing rational %q: %w", s, err)
		}
		if d == 0 {
			return Rational{}, fmt.Errorf("parsing rational %q: zero denominator", s)
		}
		return NewRational(n, d), nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parsing rational %q: %w", s, err)
	}
	return FromInt(n), nil
}

func (r Rational) Num() int64 { return r.num }

func (r Rational) Den() int64 {
	if r.den == 0 {
		return 1
	}
	return r.den
}

func (r Rational) IsZero() bool { return r.num == 0 }

func (r Rational) Add(o Rational) Rational {
	// Reduce by the shared denominator factor before cross-multiplying so
	// repeated arithmetic on fine timebases does not overflow int64.
	g := gcd(r.Den(), o.Den())
	return NewRational(r.num*(o.Den()/g)+o.num*(r.Den()/g), r.Den()*(o.Den()/g))
}

func (r Rational) Sub(o Rational) Rational {
	g := gcd(r.Den(), o.Den())
	return NewRational(r.num*(o.Den()/g)-o.num*(r.Den()/g), r.Den()*(o.Den()/g))
}

func (r Rational) Mul(o Rational) Rational {
	return NewRational(r.num*o.num, r.Den()*o.Den())
}

func (r Rational) MulInt(n int64) Rational {
	return NewRational(r.num*n, r.Den())
}

func (r Rational) Neg() Rational {
	return Rational{num: -r.num, den: r.Den()}
}

// Cmp returns -1, 0 or 1 as r is less than, equal to or greater than o.
// Cross products are compared at 128 bits so values with large numerators
// and denominators still order correctly.
func (r Rational) Cmp(o Rational) int {
	switch {
	case r.num < 0 && o.num >= 0:
		return -1
	case r.num >= 0 && o.num < 0:
		return 1
	case r.num == 0 && o.num == 0:
		return 0
	}

	ahi, alo := bits.Mul64(uint64(abs64(r.num)), uint64(o.Den()))
	bhi, blo := bits.Mul64(uint64(abs64(o.num)), uint64(r.Den()))
	c := 0
	switch {
	case ahi < bhi || (ahi == bhi && alo < blo):
		c = -1
	case ahi > bhi || (ahi == bhi && alo > blo):
		c = 1
	}
	if r.num < 0 {
		c = -c
	}
	return c
}

func (r Rational) Less(o Rational) bool { return r.Cmp(o) < 0 }

func (r Rational) Float64() float64 {
	return float64(r.num) / float64(r.Den())
}

func (r Rational) String() string {
	if r.Den() == 1 {
		return strconv.FormatInt(r.num, 10)
	}
	return fmt.Sprintf("%d/%d", r.num, r.Den())
}

func MinRational(a, b Rational) Rational {
	if a.Less(b) {
		return a
	}
	return b
}

func MaxRational(a, b Rational) Rational {
	if a.Less(b) {
		return b
	}
	return a
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
