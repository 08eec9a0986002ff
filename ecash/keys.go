package ecash

import "sort"

// Keys maps denomination tiers to per-tier key material. The federation
// publishes one aggregated public key per tier; a mint holds the matching
// private key share. The container is read-only after construction.
type Keys[K any] struct {
	keys map[Amount]K
}

// NewKeys builds a key table from the given tier map.
func NewKeys[K any](keys map[Amount]K) Keys[K] {
	table := make(map[Amount]K, len(keys))
	for tier, key := range keys {
		table[tier] = key
	}
	return Keys[K]{keys: table}
}

// Tier returns the key for the given tier, or an InvalidAmountTierError if
// the federation issues no coins of that denomination.
func (k Keys[K]) Tier(amount Amount) (K, error) {
	key, ok := k.keys[amount]
	if !ok {
		var zero K
		return zero, InvalidAmountTierError{Amount: amount}
	}
	return key, nil
}

// Has reports whether the table contains a key for the given tier.
func (k Keys[K]) Has(amount Amount) bool {
	_, ok := k.keys[amount]
	return ok
}

// Tiers returns all tiers of the table in ascending order.
func (k Keys[K]) Tiers() []Amount {
	tiers := make([]Amount, 0, len(k.keys))
	for tier := range k.keys {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}
