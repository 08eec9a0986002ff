package wallet

import (
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fedi-tools/gomint/crypto"
	"github.com/fedi-tools/gomint/ecash"
)

// CoinRequest is the client half of one future coin: the spend key the coin
// will be bound to and the blinding key that hides it from the mint.
type CoinRequest struct {
	SpendKey    *secp256k1.PrivateKey
	BlindingKey *secp256k1.PrivateKey
}

// Nonce returns the coin nonce the mint signs, the compressed public half of
// the spend key.
func (req CoinRequest) Nonce() ecash.CoinNonce {
	return ecash.CoinNonce(req.SpendKey.PubKey().SerializeCompressed())
}

func (req CoinRequest) blindedMessage() crypto.BlindedMessage {
	return crypto.BlindMessage(req.Nonce(), req.BlindingKey)
}

// SpendableCoin is an owned coin together with the spend key controlling it.
type SpendableCoin struct {
	Coin     ecash.Coin
	SpendKey *secp256k1.PrivateKey
}

// IssuanceRequest holds the client secrets of one in-flight issuance, one
// coin request per tier draw of the requested amount. It is written to the
// store before the matching signing request reaches any mint, and is all a
// wallet needs to rebuild that signing request after a restart.
type IssuanceRequest struct {
	Coins ecash.Coins[CoinRequest] `json:"coins"`
}

type coinKeygen func(i int) (spendKey, blindingKey *secp256k1.PrivateKey, err error)

func randomKeygen(int) (*secp256k1.PrivateKey, *secp256k1.PrivateKey, error) {
	spendKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, err
	}
	blindingKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, err
	}
	return spendKey, blindingKey, nil
}

// NewIssuanceRequest draws fresh random coin keys covering amount and builds
// the signing request to broadcast for them.
func NewIssuanceRequest(amount ecash.Amount, tierKeys ecash.Keys[*secp256k1.PublicKey]) (
	*IssuanceRequest, ecash.SignRequest, error) {
	return newIssuanceRequest(amount, tierKeys, randomKeygen)
}

func newIssuanceRequest(amount ecash.Amount, tierKeys ecash.Keys[*secp256k1.PublicKey],
	keygen coinKeygen) (*IssuanceRequest, ecash.SignRequest, error) {

	draws, err := ecash.RepresentAmount(amount, tierKeys)
	if err != nil {
		return nil, ecash.SignRequest{}, err
	}

	request := &IssuanceRequest{}
	var signRequest ecash.SignRequest
	for i, tier := range draws {
		spendKey, blindingKey, err := keygen(i)
		if err != nil {
			return nil, ecash.SignRequest{}, err
		}
		coinRequest := CoinRequest{SpendKey: spendKey, BlindingKey: blindingKey}
		request.Coins.Add(tier, coinRequest)
		signRequest.Add(tier, coinRequest.blindedMessage())
	}

	return request, signRequest, nil
}

// SignRequest rebuilds the signing request for this issuance. Blinding is
// deterministic given the stored keys, so the rebuilt request derives the
// same transaction id as the one originally broadcast.
func (req *IssuanceRequest) SignRequest() ecash.SignRequest {
	var signRequest ecash.SignRequest
	for _, entry := range req.Coins.All() {
		signRequest.Add(entry.Amount, entry.Item.blindedMessage())
	}
	return signRequest
}

// TotalAmount returns the amount the issuance is worth once redeemed.
func (req *IssuanceRequest) TotalAmount() ecash.Amount {
	return req.Coins.TotalAmount()
}

// Finalize turns a mint's response into spendable coins. The response must
// pair with the request tier for tier; every signature is unblinded and then
// verified against the tier public key. The first bad signature aborts with
// its position, and no coins are returned unless all of them verify.
func (req *IssuanceRequest) Finalize(response ecash.SigResponse,
	tierKeys ecash.Keys[*secp256k1.PublicKey]) (ecash.Coins[SpendableCoin], error) {

	if response.Id != (ecash.TransactionId{}) {
		if want := req.SignRequest().TransactionId(); response.Id != want {
			return ecash.Coins[SpendableCoin]{}, InvalidIssuanceIdError{Want: want, Got: response.Id}
		}
	}

	pairs, ok := ecash.Zip(req.Coins, response.Signatures)
	if !ok {
		return ecash.Coins[SpendableCoin]{}, ErrWrongMintAnswer
	}

	var coins ecash.Coins[SpendableCoin]
	for i, pair := range pairs {
		tierKey, err := tierKeys.Tier(pair.Amount)
		if err != nil {
			return ecash.Coins[SpendableCoin]{}, err
		}

		coin := ecash.Coin{
			Nonce:     pair.Left.Nonce(),
			Signature: crypto.UnblindSignature(pair.Right, pair.Left.BlindingKey, tierKey),
		}
		if !coin.Verify(tierKey) {
			return ecash.Coins[SpendableCoin]{}, InvalidSignatureError{Index: i}
		}

		coins.Add(pair.Amount, SpendableCoin{Coin: coin, SpendKey: pair.Left.SpendKey})
	}

	return coins, nil
}

type coinRequestJSON struct {
	SpendKey    string `json:"spend_key"`
	BlindingKey string `json:"blinding_key"`
}

func (req CoinRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(coinRequestJSON{
		SpendKey:    hex.EncodeToString(req.SpendKey.Serialize()),
		BlindingKey: hex.EncodeToString(req.BlindingKey.Serialize()),
	})
}

func (req *CoinRequest) UnmarshalJSON(data []byte) error {
	var wire coinRequestJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	spendKey, err := parsePrivateKey(wire.SpendKey)
	if err != nil {
		return err
	}
	blindingKey, err := parsePrivateKey(wire.BlindingKey)
	if err != nil {
		return err
	}
	req.SpendKey = spendKey
	req.BlindingKey = blindingKey
	return nil
}

type spendableCoinJSON struct {
	Coin     ecash.Coin `json:"coin"`
	SpendKey string     `json:"spend_key"`
}

func (sc SpendableCoin) MarshalJSON() ([]byte, error) {
	return json.Marshal(spendableCoinJSON{
		Coin:     sc.Coin,
		SpendKey: hex.EncodeToString(sc.SpendKey.Serialize()),
	})
}

func (sc *SpendableCoin) UnmarshalJSON(data []byte) error {
	var wire spendableCoinJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	spendKey, err := parsePrivateKey(wire.SpendKey)
	if err != nil {
		return err
	}
	sc.Coin = wire.Coin
	sc.SpendKey = spendKey
	return nil
}

func parsePrivateKey(encoded string) (*secp256k1.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return secp256k1.PrivKeyFromBytes(keyBytes), nil
}
