package wallet

import (
	"encoding/binary"

	"github.com/fedi-tools/gomint/ecash"
)

// Store key layout. Every record key starts with one type byte, followed by
// the record's natural sort key:
//
//	owned coin        0x20 ‖ amount (8 bytes big-endian) ‖ nonce bytes
//	pending issuance  0x21 ‖ transaction id (32 bytes)
//	note index        0x22
//
// Amounts are big-endian so that the store's lexicographic key order equals
// ascending denomination order: a coin prefix scan yields smallest tiers
// first without sorting.
const (
	KeyPrefixCoin      byte = 0x20
	KeyPrefixIssuance  byte = 0x21
	KeyPrefixNoteIndex byte = 0x22
)

func coinKey(amount ecash.Amount, nonce ecash.CoinNonce) []byte {
	key := make([]byte, 9+len(nonce))
	key[0] = KeyPrefixCoin
	binary.BigEndian.PutUint64(key[1:9], uint64(amount))
	copy(key[9:], nonce)
	return key
}

func decodeCoinKey(key []byte) (ecash.Amount, ecash.CoinNonce, error) {
	if len(key) < 9 {
		return 0, nil, KeyLengthError{Len: len(key)}
	}
	if key[0] != KeyPrefixCoin {
		return 0, nil, KeyPrefixError{Expected: KeyPrefixCoin, Got: key[0]}
	}
	amount := ecash.Amount(binary.BigEndian.Uint64(key[1:9]))
	nonce := ecash.CoinNonce(append([]byte(nil), key[9:]...))
	return amount, nonce, nil
}

func issuanceKey(id ecash.TransactionId) []byte {
	key := make([]byte, 1+len(id))
	key[0] = KeyPrefixIssuance
	copy(key[1:], id[:])
	return key
}

func decodeIssuanceKey(key []byte) (ecash.TransactionId, error) {
	var id ecash.TransactionId
	if len(key) != 1+len(id) {
		return ecash.TransactionId{}, KeyLengthError{Len: len(key)}
	}
	if key[0] != KeyPrefixIssuance {
		return ecash.TransactionId{}, KeyPrefixError{Expected: KeyPrefixIssuance, Got: key[0]}
	}
	copy(id[:], key[1:])
	return id, nil
}

func coinKeyPrefix() []byte {
	return []byte{KeyPrefixCoin}
}

func issuanceKeyPrefix() []byte {
	return []byte{KeyPrefixIssuance}
}

func noteIndexKey() []byte {
	return []byte{KeyPrefixNoteIndex}
}
