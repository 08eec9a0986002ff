package ecash

import "fmt"

// Amount is a denomination tier in millisatoshis. Tiers are compared
// numerically and encoded big-endian in store keys so that a lexicographic
// range scan returns records in ascending denomination order.
type Amount uint64

func (a Amount) String() string {
	return fmt.Sprintf("%d msat", uint64(a))
}

// FromSat returns the amount representing the given number of satoshis.
func FromSat(sat uint64) Amount {
	return Amount(sat * 1000)
}

// RepresentAmount decomposes amount into power-of-two tier draws, lowest
// tier first. Every tier in the decomposition must be present in the keys
// table, otherwise the federation cannot sign coins of that denomination and
// an InvalidAmountTierError is returned.
func RepresentAmount[K any](amount Amount, tiers Keys[K]) ([]Amount, error) {
	draws := make([]Amount, 0)
	remaining := uint64(amount)
	for pos := 0; remaining > 0; pos++ {
		if remaining&1 == 1 {
			tier := Amount(1) << pos
			if !tiers.Has(tier) {
				return nil, InvalidAmountTierError{Amount: tier}
			}
			draws = append(draws, tier)
		}
		remaining >>= 1
	}
	return draws, nil
}
