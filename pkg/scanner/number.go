package scanner

import (
	"math"
	"strconv"

	"aggregator/pkg/exception"
)

var (
	valueInf = []byte("INF")

	// exact powers of ten representable as float64
	pow10 = [...]float64{1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10,
		1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18, 1e19, 1e20, 1e21, 1e22}
)

const maxExactMantissa = 1 << 53

// ParseFloat converts a decimal numeric string into a float64.
//
// "INF" decodes to positive infinity. Plain decimals (optional sign, digits,
// optional fraction) whose mantissa fits 53 bits take a fast path that is
// correctly rounded; everything else falls back to strconv.
func ParseFloat(src []byte) (float64, error) {
	if len(src) == 0 {
		return 0, exception.ErrParse
	}
	if Equal(src, valueInf) {
		return math.Inf(1), nil
	}
	if v, ok := parseSimple(src); ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(string(src), 64)
	if err != nil {
		return 0, exception.ErrParse
	}
	return v, nil
}

func parseSimple(src []byte) (float64, bool) {
	i := 0
	neg := false
	switch src[0] {
	case '-':
		neg = true
		i++
	case '+':
		i++
	}
	if i >= len(src) {
		return 0, false
	}

	var (
		mantissa uint64
		scale    int
		digits   int
		seenDot  bool
		any      bool
	)
	for ; i < len(src); i++ {
		c := src[i]
		if c == '.' {
			if seenDot {
				return 0, false
			}
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, false
		}
		any = true
		if digits >= 19 {
			return 0, false
		}
		if mantissa != 0 || c != '0' {
			digits++
		}
		mantissa = mantissa*10 + uint64(c-'0')
		if seenDot {
			scale++
		}
	}
	if !any || mantissa > maxExactMantissa || scale >= len(pow10) {
		return 0, false
	}

	v := float64(mantissa)
	if scale > 0 {
		v /= pow10[scale]
	}
	if neg {
		v = -v
	}
	return v, true
}
