// Package number implements the engine's numeric value type: either an
// arbitrary-precision rational (math/big.Rat) or a float64, tagged by a
// process-wide multiple-precision flag. In log-counting mode the float64
// arm holds a base-10 logarithm, with -Inf representing zero and 0
// representing one; addition becomes log-sum-exp and multiplication
// becomes ordinary addition.
package number

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Mode selects how every Number in the process is represented. It is set
// once at startup and never changes mid-run.
type Mode int

const (
	// ModeFloat represents values as float64, optionally in log10-space.
	ModeFloat Mode = iota
	// ModeRational represents values as exact big.Rat quotients.
	ModeRational
)

// global, process-wide configuration. Set once via Configure before any
// Number is constructed from user input.
var (
	mode       = ModeFloat
	logCounter = false
)

// Configure fixes the process-wide numeric mode. log controls whether the
// float arm is interpreted as a base-10 logarithm; it is meaningless (and
// ignored) when mode is ModeRational, since exact rationals are never
// log-transformed.
func Configure(m Mode, log bool) {
	mode = m
	logCounter = log && m == ModeFloat
}

// CurrentMode reports the process-wide mode, for components that must
// branch on it.
func CurrentMode() Mode { return mode }

// LogSpace reports whether float-mode values are stored as log10.
func LogSpace() bool { return logCounter }

// Number is the engine's numeric value. Exactly one of the two
// representations is meaningful at a time, selected by the process-wide
// mode. The zero value reads as 0 in linear-float and rational modes but
// as one (log10 value 0) in log mode; Zero() gives the additive identity
// in every mode.
type Number struct {
	rat   *big.Rat
	float float64
}

// Zero returns the additive identity ("zero count" / "zero probability").
func Zero() Number {
	switch mode {
	case ModeRational:
		return Number{rat: new(big.Rat)}
	default:
		if logCounter {
			return Number{float: math.Inf(-1)}
		}
		return Number{float: 0}
	}
}

// One returns the multiplicative identity.
func One() Number {
	switch mode {
	case ModeRational:
		return Number{rat: big.NewRat(1, 1)}
	default:
		if logCounter {
			return Number{float: 0}
		}
		return Number{float: 1}
	}
}

// FromFloat builds a Number directly from a linear-space (never log-space)
// float64, converting to the active mode.
func FromFloat(v float64) Number {
	if mode == ModeRational {
		r := new(big.Rat)
		r.SetFloat64(v)
		return Number{rat: r}
	}
	if logCounter {
		if v == 0 {
			return Number{float: math.Inf(-1)}
		}
		return Number{float: math.Log10(v)}
	}
	return Number{float: v}
}

// FromRat builds a Number directly from a rational, converting to the
// active mode.
func FromRat(r *big.Rat) Number {
	if mode == ModeRational {
		return Number{rat: new(big.Rat).Set(r)}
	}
	f, _ := r.Float64()
	return FromFloat(f)
}

// FromLog10 builds a Number directly from a base-10 logarithm value.
// Meaningful only when the process is configured for log-space float mode
// (ModeFloat with log enabled), the same precondition Threshold's bound
// argument carries; FromLog10 does not check the mode itself.
func FromLog10(v float64) Number {
	return Number{float: v}
}

// Parse accepts a rational "p/q" or a decimal float literal.
func Parse(repr string) (Number, error) {
	repr = strings.TrimSpace(repr)
	if repr == "" {
		repr = "0"
	}
	if idx := strings.IndexByte(repr, '/'); idx >= 0 {
		num, err := strconv.ParseFloat(repr[:idx], 64)
		if err != nil {
			return Number{}, fmt.Errorf("number: bad numerator %q: %w", repr, err)
		}
		den, err := strconv.ParseFloat(repr[idx+1:], 64)
		if err != nil {
			return Number{}, fmt.Errorf("number: bad denominator %q: %w", repr, err)
		}
		if mode == ModeRational {
			r := new(big.Rat)
			if _, ok := r.SetString(repr); ok {
				return Number{rat: r}, nil
			}
			return FromFloat(num / den), nil
		}
		return FromFloat(num / den), nil
	}
	if mode == ModeRational {
		r := new(big.Rat)
		if _, ok := r.SetString(repr); ok {
			return Number{rat: r}, nil
		}
		f, err := strconv.ParseFloat(repr, 64)
		if err != nil {
			return Number{}, fmt.Errorf("number: cannot parse %q: %w", repr, err)
		}
		return FromFloat(f), nil
	}
	f, err := strconv.ParseFloat(repr, 64)
	if err != nil {
		return Number{}, fmt.Errorf("number: cannot parse %q: %w", repr, err)
	}
	return FromFloat(f), nil
}

func (n Number) ratOrZero() *big.Rat {
	if n.rat != nil {
		return n.rat
	}
	return new(big.Rat)
}

// Add returns n + m. In log-space float mode this is log-sum-exp.
func (n Number) Add(m Number) Number {
	if mode == ModeRational {
		return Number{rat: new(big.Rat).Add(n.ratOrZero(), m.ratOrZero())}
	}
	if logCounter {
		return Number{float: logSumExp(n.float, m.float)}
	}
	return Number{float: n.float + m.float}
}

// logSumExp computes log10(10^a + 10^b) without overflow, with -Inf
// absorbing on either side.
func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := math.Max(a, b)
	return math.Log10(math.Pow(10, a-m)+math.Pow(10, b-m)) + m
}

// Sub returns n - m. Always ordinary subtraction, even in log-space, so
// there it is not a linear-space difference; it is never used inside the
// counting recursion.
func (n Number) Sub(m Number) Number {
	if mode == ModeRational {
		return Number{rat: new(big.Rat).Sub(n.ratOrZero(), m.ratOrZero())}
	}
	return Number{float: n.float - m.float}
}

// Mul returns n * m. In log-space float mode this is ordinary addition
// (the carrier for a log-space product).
func (n Number) Mul(m Number) Number {
	if mode == ModeRational {
		return Number{rat: new(big.Rat).Mul(n.ratOrZero(), m.ratOrZero())}
	}
	if logCounter {
		return Number{float: n.float + m.float}
	}
	return Number{float: n.float * m.float}
}

// Abs returns the absolute value.
func (n Number) Abs() Number {
	if mode == ModeRational {
		return Number{rat: new(big.Rat).Abs(n.ratOrZero())}
	}
	if logCounter {
		return n // log-space magnitudes are never negative
	}
	return Number{float: math.Abs(n.float)}
}

// Log10 returns the base-10 logarithm of n. For rational mode it extracts
// mantissa/exponent to avoid overflow on huge numerators or denominators.
func (n Number) Log10() float64 {
	if mode == ModeRational {
		r := n.ratOrZero()
		if r.Sign() == 0 {
			return math.Inf(-1)
		}
		mant := new(big.Float)
		exp := new(big.Float).SetRat(r).MantExp(mant)
		m, _ := mant.Float64()
		return math.Log10(m) + float64(exp)*math.Log10(2)
	}
	if logCounter {
		return n.float
	}
	if n.float == 0 {
		return math.Inf(-1)
	}
	return math.Log10(n.float)
}

// MulExp2 multiplies n by 2^k, used for the engine's final scaling-factor
// adjustment. In log mode this adds k*log10(2) instead.
func MulExp2(n Number, k int) Number {
	if mode == ModeRational {
		factor := new(big.Rat).SetFrac(big.NewInt(1), big.NewInt(1))
		two := big.NewInt(2)
		pow := new(big.Int).Exp(two, big.NewInt(int64(absInt(k))), nil)
		if k >= 0 {
			factor = new(big.Rat).SetInt(pow)
		} else {
			factor = new(big.Rat).SetFrac(big.NewInt(1), pow)
		}
		return Number{rat: new(big.Rat).Mul(n.ratOrZero(), factor)}
	}
	if logCounter {
		return Number{float: n.float + float64(k)*math.Log10(2)}
	}
	return Number{float: n.float * math.Pow(2, float64(k))}
}

func absInt(k int) int {
	if k < 0 {
		return -k
	}
	return k
}

// Equal reports representation equality: bit-exact for floats, exact
// comparison for rationals.
func (n Number) Equal(m Number) bool {
	if mode == ModeRational {
		return n.ratOrZero().Cmp(m.ratOrZero()) == 0
	}
	return n.float == m.float
}

// Less implements the total order used by threshold pruning, Max and the
// weight checks.
func (n Number) Less(m Number) bool {
	if mode == ModeRational {
		return n.ratOrZero().Cmp(m.ratOrZero()) < 0
	}
	return n.float < m.float
}

// Max returns the greater of two Numbers under the total order above.
func Max(a, b Number) Number {
	if b.Less(a) {
		return a
	}
	return b
}

// Float64 returns a linear-space float64 approximation, converting out of
// log-space if necessary. Used for reporting and for checks that work in
// linear space (XOR leaves, the atomic-abstraction weight tolerance).
func (n Number) Float64() float64 {
	if mode == ModeRational {
		f, _ := n.ratOrZero().Float64()
		return f
	}
	if logCounter {
		return math.Pow(10, n.float)
	}
	return n.float
}

// RatString returns the exact "p/q" representation when in rational mode,
// or an empty string otherwise.
func (n Number) RatString() string {
	if mode != ModeRational {
		return ""
	}
	return n.ratOrZero().RatString()
}

func (n Number) String() string {
	if mode == ModeRational {
		return n.ratOrZero().RatString()
	}
	if logCounter {
		return fmt.Sprintf("log10=%g", n.float)
	}
	return strconv.FormatFloat(n.float, 'g', -1, 64)
}
