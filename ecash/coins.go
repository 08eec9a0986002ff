package ecash

import (
	"encoding/json"
	"sort"
)

// Coins is a multiset of items grouped by denomination tier. Groups are kept
// sorted by tier so that iteration, serialization and the transaction digest
// all see the same ascending order regardless of insertion order.
//
// The zero value is an empty container ready for use.
type Coins[T any] struct {
	groups []tierGroup[T]
}

type tierGroup[T any] struct {
	Amount Amount
	Items  []T
}

// TierItem is a single item of a Coins container together with its tier.
type TierItem[T any] struct {
	Amount Amount
	Item   T
}

// TierPair is one aligned position of two zipped containers.
type TierPair[L, R any] struct {
	Amount Amount
	Left   L
	Right  R
}

// Add inserts item under the given tier.
func (c *Coins[T]) Add(amount Amount, item T) {
	i := sort.Search(len(c.groups), func(i int) bool {
		return c.groups[i].Amount >= amount
	})
	if i < len(c.groups) && c.groups[i].Amount == amount {
		c.groups[i].Items = append(c.groups[i].Items, item)
		return
	}
	c.groups = append(c.groups, tierGroup[T]{})
	copy(c.groups[i+1:], c.groups[i:])
	c.groups[i] = tierGroup[T]{Amount: amount, Items: []T{item}}
}

// Tiers returns the tiers present in the container in ascending order.
func (c Coins[T]) Tiers() []Amount {
	tiers := make([]Amount, len(c.groups))
	for i, g := range c.groups {
		tiers[i] = g.Amount
	}
	return tiers
}

// Items returns the items stored under the given tier in insertion order.
func (c Coins[T]) Items(amount Amount) []T {
	for _, g := range c.groups {
		if g.Amount == amount {
			return g.Items
		}
	}
	return nil
}

// All returns every item of the container as (tier, item) entries, ascending
// by tier and in insertion order within a tier.
func (c Coins[T]) All() []TierItem[T] {
	items := make([]TierItem[T], 0, c.Count())
	for _, g := range c.groups {
		for _, item := range g.Items {
			items = append(items, TierItem[T]{Amount: g.Amount, Item: item})
		}
	}
	return items
}

// Count returns the number of items across all tiers.
func (c Coins[T]) Count() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Items)
	}
	return n
}

// TotalAmount returns the sum of the tiers of all items.
func (c Coins[T]) TotalAmount() Amount {
	var total Amount
	for _, g := range c.groups {
		total += g.Amount * Amount(len(g.Items))
	}
	return total
}

// StructuralEq reports whether two containers hold the same number of items
// under exactly the same tiers. It compares shape only, never item values,
// which is what makes containers of different item types comparable.
func StructuralEq[L, R any](a Coins[L], b Coins[R]) bool {
	if len(a.groups) != len(b.groups) {
		return false
	}
	for i := range a.groups {
		if a.groups[i].Amount != b.groups[i].Amount {
			return false
		}
		if len(a.groups[i].Items) != len(b.groups[i].Items) {
			return false
		}
	}
	return true
}

// Zip pairs two structurally equal containers position by position, ascending
// by tier. It reports false when the containers differ in shape, in which case
// no pairing exists.
func Zip[L, R any](a Coins[L], b Coins[R]) ([]TierPair[L, R], bool) {
	if !StructuralEq(a, b) {
		return nil, false
	}
	pairs := make([]TierPair[L, R], 0, a.Count())
	for i, g := range a.groups {
		for j, left := range g.Items {
			pairs = append(pairs, TierPair[L, R]{
				Amount: g.Amount,
				Left:   left,
				Right:  b.groups[i].Items[j],
			})
		}
	}
	return pairs, true
}

type tierGroupJSON[T any] struct {
	Amount Amount `json:"amount"`
	Items  []T    `json:"items"`
}

// MarshalJSON encodes the container as an array of tier groups in ascending
// tier order. An array is used instead of a JSON object keyed by tier so that
// the encoding is canonical and survives decoders that reorder object keys.
func (c Coins[T]) MarshalJSON() ([]byte, error) {
	groups := make([]tierGroupJSON[T], len(c.groups))
	for i, g := range c.groups {
		groups[i] = tierGroupJSON[T]{Amount: g.Amount, Items: g.Items}
	}
	return json.Marshal(groups)
}

func (c *Coins[T]) UnmarshalJSON(data []byte) error {
	var groups []tierGroupJSON[T]
	if err := json.Unmarshal(data, &groups); err != nil {
		return err
	}
	c.groups = nil
	for _, g := range groups {
		for _, item := range g.Items {
			c.Add(g.Amount, item)
		}
	}
	return nil
}
