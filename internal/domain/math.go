package domain

import "math/bits"

// Checked unsigned arithmetic. Every balance, share, and order
// computation goes through these; wraparound is never silent.

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrArithmeticOverflow on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrArithmeticOverflow
	}
	return diff, nil
}

// CheckedMul returns a*b or ErrArithmeticOverflow.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}

// MulDiv returns floor(a*b/c) using a 128-bit intermediate, so a*b may
// exceed 64 bits as long as the quotient fits. Returns
// ErrArithmeticOverflow when c is zero or the quotient does not fit.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		// bits.Div64 would panic on quotient overflow.
		return 0, ErrArithmeticOverflow
	}
	quo, _ := bits.Div64(hi, lo, c)
	return quo, nil
}
