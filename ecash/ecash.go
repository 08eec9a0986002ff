// Package ecash defines the value types of the federated mint protocol:
// denomination tiers, tiered coin containers, coin nonces and signatures,
// and the request/response pairs exchanged with mints during issuance.
package ecash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fedi-tools/gomint/crypto"
)

// CoinNonce is the public half of a coin's spend key, in compressed point
// encoding. The nonce bytes are the message the federation blind-signs; they
// double as the unique suffix of the coin's store key.
type CoinNonce []byte

func (n CoinNonce) String() string {
	return hex.EncodeToString(n)
}

func (n CoinNonce) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(n)), nil
}

func (n *CoinNonce) UnmarshalText(text []byte) error {
	nonce, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	*n = nonce
	return nil
}

// Coin is an issued e-cash coin: a nonce and the federation's unblinded
// signature over it. A coin is valid for the tier whose public key verifies
// the signature; the tier itself is tracked by the containers and store keys
// that carry the coin.
type Coin struct {
	Nonce     CoinNonce        `json:"nonce"`
	Signature crypto.Signature `json:"signature"`
}

// Verify checks the coin's signature against the public key of its tier.
func (c Coin) Verify(tierKey *secp256k1.PublicKey) bool {
	return crypto.VerifySignature(c.Nonce, c.Signature, tierKey)
}

// TransactionId identifies an issuance across mints and restarts. It is the
// digest of the canonical encoding of the signing request, so every party
// derives the same id without coordination.
type TransactionId [32]byte

func (t TransactionId) String() string {
	return hex.EncodeToString(t[:])
}

func (t TransactionId) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionId) UnmarshalText(text []byte) error {
	return t.decode(string(text))
}

func (t *TransactionId) decode(s string) error {
	idBytes, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(idBytes) != len(t) {
		return fmt.Errorf("invalid transaction id length: %d", len(idBytes))
	}
	copy(t[:], idBytes)
	return nil
}

// ParseTransactionId decodes a transaction id from its hex form.
func ParseTransactionId(s string) (TransactionId, error) {
	var id TransactionId
	if err := id.decode(s); err != nil {
		return TransactionId{}, err
	}
	return id, nil
}

// SignRequest asks the federation to blind-sign one nonce commitment per
// requested coin, grouped by denomination tier.
type SignRequest struct {
	Coins[crypto.BlindedMessage]
}

// TransactionId derives the issuance id from the request's canonical
// encoding: for each tier in ascending order, the tier as 8 big-endian
// bytes, the number of messages as 4 big-endian bytes, then each blinded
// message as a 33-byte compressed point.
func (r SignRequest) TransactionId() TransactionId {
	digest := sha256.New()
	var word [8]byte
	for _, group := range r.groups {
		binary.BigEndian.PutUint64(word[:], uint64(group.Amount))
		digest.Write(word[:])
		binary.BigEndian.PutUint32(word[:4], uint32(len(group.Items)))
		digest.Write(word[:4])
		for _, msg := range group.Items {
			digest.Write(msg.B.SerializeCompressed())
		}
	}
	var id TransactionId
	digest.Sum(id[:0])
	return id
}

// SigResponse is a mint's answer to a signing request: one blind signature
// per requested coin, in the same tier grouping, annotated with the issuance
// id the mint signed for.
type SigResponse struct {
	Id         TransactionId                `json:"id"`
	Signatures Coins[crypto.BlindSignature] `json:"signatures"`
}

// PegInProof attests that funds backing an issuance were locked on the
// peg-in side. The current form carries only the claimed amount and an
// opaque witness; a proof of on-chain payment slots in here without
// changing the issuance protocol.
type PegInProof struct {
	Amount  Amount `json:"amount"`
	Witness []byte `json:"witness,omitempty"`
}

// PegInRequest funds an issuance: the proof justifies minting the coins the
// blind tokens ask for.
type PegInRequest struct {
	BlindTokens SignRequest `json:"blind_tokens"`
	Proof       PegInProof  `json:"proof"`
}
