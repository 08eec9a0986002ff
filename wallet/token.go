package wallet

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/fedi-tools/gomint/crypto"
	"github.com/fedi-tools/gomint/ecash"
)

const tokenPrefixV1 = "fediA"

// Token is a bundle of spendable coins serialized for out-of-band transfer.
// It carries the spend keys, so whoever holds the token owns the coins; the
// receiver can verify every signature offline against the federation keys.
type Token struct {
	Coins ecash.Coins[SpendableCoin]
	Memo  string
}

type tokenV1 struct {
	Coins []tokenCoinV1 `json:"c"`
	Memo  string        `json:"d,omitempty"`
}

type tokenCoinV1 struct {
	Amount   uint64 `json:"a"`
	Nonce    []byte `json:"n"`
	C        []byte `json:"c"`
	E        []byte `json:"e"`
	S        []byte `json:"s"`
	R        []byte `json:"r"`
	SpendKey []byte `json:"k"`
}

// NewToken bundles coins for transfer.
func NewToken(coins ecash.Coins[SpendableCoin], memo string) Token {
	return Token{Coins: coins, Memo: memo}
}

// Amount returns the total value of the token.
func (t Token) Amount() ecash.Amount {
	return t.Coins.TotalAmount()
}

// Serialize encodes the token as its versioned transfer string.
func (t Token) Serialize() (string, error) {
	wire := tokenV1{Memo: t.Memo}
	for _, entry := range t.Coins.All() {
		sig := entry.Item.Coin.Signature
		wire.Coins = append(wire.Coins, tokenCoinV1{
			Amount:   uint64(entry.Amount),
			Nonce:    entry.Item.Coin.Nonce,
			C:        sig.C.SerializeCompressed(),
			E:        sig.E.Serialize(),
			S:        sig.S.Serialize(),
			R:        sig.R.Serialize(),
			SpendKey: entry.Item.SpendKey.Serialize(),
		})
	}

	cborData, err := cbor.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("cbor.Marshal: %v", err)
	}

	return tokenPrefixV1 + base64.RawURLEncoding.EncodeToString(cborData), nil
}

// DecodeToken parses and validates a transfer string.
func DecodeToken(serialized string) (Token, error) {
	if !strings.HasPrefix(serialized, tokenPrefixV1) {
		return Token{}, ErrInvalidToken
	}
	base64Token := serialized[len(tokenPrefixV1):]

	tokenBytes, err := base64.URLEncoding.DecodeString(base64Token)
	if err != nil {
		tokenBytes, err = base64.RawURLEncoding.DecodeString(base64Token)
		if err != nil {
			return Token{}, ErrInvalidToken
		}
	}

	var wire tokenV1
	if err := cbor.Unmarshal(tokenBytes, &wire); err != nil {
		return Token{}, fmt.Errorf("cbor.Unmarshal: %v", err)
	}

	token := Token{Memo: wire.Memo}
	for i, wireCoin := range wire.Coins {
		C, err := secp256k1.ParsePubKey(wireCoin.C)
		if err != nil {
			return Token{}, fmt.Errorf("invalid signature in coin %d: %v", i, err)
		}
		e, err := tokenScalar(wireCoin.E)
		if err != nil {
			return Token{}, fmt.Errorf("invalid e in coin %d: %v", i, err)
		}
		s, err := tokenScalar(wireCoin.S)
		if err != nil {
			return Token{}, fmt.Errorf("invalid s in coin %d: %v", i, err)
		}
		r, err := tokenScalar(wireCoin.R)
		if err != nil {
			return Token{}, fmt.Errorf("invalid r in coin %d: %v", i, err)
		}
		spendKey, err := tokenScalar(wireCoin.SpendKey)
		if err != nil {
			return Token{}, fmt.Errorf("invalid spend key in coin %d: %v", i, err)
		}

		coin := SpendableCoin{
			Coin: ecash.Coin{
				Nonce:     wireCoin.Nonce,
				Signature: crypto.Signature{C: C, E: e, S: s, R: r},
			},
			SpendKey: spendKey,
		}
		token.Coins.Add(ecash.Amount(wireCoin.Amount), coin)
	}

	return token, nil
}

func tokenScalar(scalarBytes []byte) (*secp256k1.PrivateKey, error) {
	if len(scalarBytes) != 32 {
		return nil, fmt.Errorf("scalar must be 32 bytes")
	}
	return secp256k1.PrivKeyFromBytes(scalarBytes), nil
}
