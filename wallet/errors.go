package wallet

import (
	"errors"
	"fmt"

	"github.com/fedi-tools/gomint/ecash"
)

var (
	// ErrWrongMintAnswer is returned when a mint's response does not line
	// up, tier for tier, with the signing request it answers.
	ErrWrongMintAnswer = errors.New("wrong mint answer")

	// ErrAllMintsFailed is returned when no mint of the federation accepted
	// a broadcast request.
	ErrAllMintsFailed = errors.New("all mints rejected the request")

	// ErrInsufficientBalance is returned when the wallet holds less than
	// the requested amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCannotSelectAmount is returned when the owned denominations cannot
	// make the requested amount exactly.
	ErrCannotSelectAmount = errors.New("cannot make exact amount from owned denominations")

	// ErrInvalidToken is returned for tokens that do not decode.
	ErrInvalidToken = errors.New("invalid token")
)

// MintError is a structured error response from a mint.
type MintError struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

func (e MintError) Error() string {
	return e.Detail
}

// InvalidSignatureError is returned when a signature fails verification.
// Index is the position of the failing signature in the tier-ascending
// pairing of request and response.
type InvalidSignatureError struct {
	Index int
}

func (e InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature at index %d", e.Index)
}

// InvalidIssuanceIdError is returned when a mint answers for a different
// issuance than the one queried.
type InvalidIssuanceIdError struct {
	Want ecash.TransactionId
	Got  ecash.TransactionId
}

func (e InvalidIssuanceIdError) Error() string {
	return fmt.Sprintf("mint answered for issuance %s, want %s", e.Got, e.Want)
}

// KeyLengthError is returned when a store key is too short for its record
// type.
type KeyLengthError struct {
	Len int
}

func (e KeyLengthError) Error() string {
	return fmt.Sprintf("invalid store key length: %d", e.Len)
}

// KeyPrefixError is returned when a store key carries the wrong record type
// prefix.
type KeyPrefixError struct {
	Expected byte
	Got      byte
}

func (e KeyPrefixError) Error() string {
	return fmt.Sprintf("invalid store key prefix: expected %#02x, got %#02x", e.Expected, e.Got)
}
