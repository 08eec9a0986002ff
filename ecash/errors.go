package ecash

import "fmt"

// InvalidAmountTierError is returned when an operation refers to a
// denomination tier the federation has no signing key for.
type InvalidAmountTierError struct {
	Amount Amount
}

func (e InvalidAmountTierError) Error() string {
	return fmt.Sprintf("amount tier unknown to mint: %s", e.Amount)
}
