package hashes

import "fmt"

// ErrOverflow is returned by AddU64 when the sum would exceed the
// uint64 range. Ledger value-conservation checks treat this as a hard
// validation failure (OverClaim/OverSpend), never a silent wrap.
var ErrOverflow = fmt.Errorf("u64 addition overflow")

// AddU64 returns a+b, or ErrOverflow if the sum would overflow uint64.
func AddU64(a, b uint64) (uint64, error) {
	if b > (^uint64(0) - a) {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SumU64 adds up vs left to right with overflow checking at each step.
func SumU64(vs ...uint64) (uint64, error) {
	var total uint64
	for _, v := range vs {
		var err error
		total, err = AddU64(total, v)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
