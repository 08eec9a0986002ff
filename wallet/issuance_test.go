package wallet

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fedi-tools/gomint/crypto"
	"github.com/fedi-tools/gomint/ecash"
	"github.com/fedi-tools/gomint/testutils"
)

// signResponse answers a signing request the way an honest mint would.
func signResponse(t *testing.T, request ecash.SignRequest,
	signingKeys ecash.Keys[*secp256k1.PrivateKey]) ecash.SigResponse {
	t.Helper()

	response := ecash.SigResponse{Id: request.TransactionId()}
	for _, entry := range request.All() {
		key, err := signingKeys.Tier(entry.Amount)
		if err != nil {
			t.Fatalf("unexpected error getting signing key: %v", err)
		}
		signature, err := crypto.SignBlinded(entry.Item, key)
		if err != nil {
			t.Fatalf("unexpected error signing: %v", err)
		}
		response.Signatures.Add(entry.Amount, signature)
	}
	return response
}

func TestIssuanceRoundTrip(t *testing.T) {
	private, public, err := testutils.GenerateTierKeys(testTiers())
	if err != nil {
		t.Fatalf("error generating tier keys: %v", err)
	}

	request, signRequest, err := NewIssuanceRequest(13, public)
	if err != nil {
		t.Fatalf("unexpected error in NewIssuanceRequest: %v", err)
	}
	expectedTiers := []ecash.Amount{1, 4, 8}
	for i, tier := range request.Coins.Tiers() {
		if tier != expectedTiers[i] {
			t.Fatalf("expected tiers '%v' but got '%v' instead\n", expectedTiers, request.Coins.Tiers())
		}
	}
	if request.TotalAmount() != 13 {
		t.Errorf("expected total amount of '%v' but got '%v' instead\n", ecash.Amount(13), request.TotalAmount())
	}

	// the persisted form must rebuild the same signing request
	persisted, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("unexpected error marshalling request: %v", err)
	}
	var reloaded IssuanceRequest
	if err := json.Unmarshal(persisted, &reloaded); err != nil {
		t.Fatalf("unexpected error unmarshalling request: %v", err)
	}
	if !ecash.StructuralEq(request.Coins, reloaded.Coins) {
		t.Error("expected reloaded request to keep the request's shape")
	}
	if got := reloaded.SignRequest().TransactionId(); got != signRequest.TransactionId() {
		t.Errorf("expected transaction id '%v' but got '%v' instead\n", signRequest.TransactionId(), got)
	}

	// finalizing from the reloaded secrets yields verifiable coins
	response := signResponse(t, signRequest, private)
	coins, err := reloaded.Finalize(response, public)
	if err != nil {
		t.Fatalf("unexpected error in Finalize: %v", err)
	}
	if coins.TotalAmount() != 13 {
		t.Errorf("expected total amount of '%v' but got '%v' instead\n", ecash.Amount(13), coins.TotalAmount())
	}
	for _, entry := range coins.All() {
		tierKey, err := public.Tier(entry.Amount)
		if err != nil {
			t.Fatalf("unexpected error getting tier key: %v", err)
		}
		if !entry.Item.Coin.Verify(tierKey) {
			t.Errorf("coin for tier %v does not verify", entry.Amount)
		}
	}
}

func TestFinalizeBadSignature(t *testing.T) {
	private, public, err := testutils.GenerateTierKeys(testTiers())
	if err != nil {
		t.Fatalf("error generating tier keys: %v", err)
	}
	rogue, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("error generating key: %v", err)
	}

	request, signRequest, err := NewIssuanceRequest(13, public)
	if err != nil {
		t.Fatalf("unexpected error in NewIssuanceRequest: %v", err)
	}

	// sign the middle tier with the wrong key
	response := ecash.SigResponse{Id: signRequest.TransactionId()}
	for _, entry := range signRequest.All() {
		key, err := private.Tier(entry.Amount)
		if err != nil {
			t.Fatalf("unexpected error getting signing key: %v", err)
		}
		if entry.Amount == 4 {
			key = rogue
		}
		signature, err := crypto.SignBlinded(entry.Item, key)
		if err != nil {
			t.Fatalf("unexpected error signing: %v", err)
		}
		response.Signatures.Add(entry.Amount, signature)
	}

	_, err = request.Finalize(response, public)
	var sigErr InvalidSignatureError
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected invalid signature error but got '%v' instead\n", err)
	}
	if sigErr.Index != 1 {
		t.Errorf("expected failing index '%v' but got '%v' instead\n", 1, sigErr.Index)
	}
}

func TestFinalizeIdMismatch(t *testing.T) {
	private, public, err := testutils.GenerateTierKeys(testTiers())
	if err != nil {
		t.Fatalf("error generating tier keys: %v", err)
	}

	request, signRequest, err := NewIssuanceRequest(3, public)
	if err != nil {
		t.Fatalf("unexpected error in NewIssuanceRequest: %v", err)
	}

	response := signResponse(t, signRequest, private)
	response.Id[0] ^= 0xff

	_, err = request.Finalize(response, public)
	var idErr InvalidIssuanceIdError
	if !errors.As(err, &idErr) {
		t.Fatalf("expected invalid issuance id error but got '%v' instead\n", err)
	}
	if idErr.Want != signRequest.TransactionId() || idErr.Got != response.Id {
		t.Errorf("expected mismatch of '%v' and '%v' but got '%v' and '%v'\n",
			signRequest.TransactionId(), response.Id, idErr.Want, idErr.Got)
	}
}

func TestFinalizeWrongShape(t *testing.T) {
	private, public, err := testutils.GenerateTierKeys(testTiers())
	if err != nil {
		t.Fatalf("error generating tier keys: %v", err)
	}

	request, signRequest, err := NewIssuanceRequest(13, public)
	if err != nil {
		t.Fatalf("unexpected error in NewIssuanceRequest: %v", err)
	}

	// answer with the top tier missing
	full := signResponse(t, signRequest, private)
	short := ecash.SigResponse{Id: full.Id}
	for _, entry := range full.Signatures.All() {
		if entry.Amount == 8 {
			continue
		}
		short.Signatures.Add(entry.Amount, entry.Item)
	}

	if _, err := request.Finalize(short, public); !errors.Is(err, ErrWrongMintAnswer) {
		t.Errorf("expected error '%v' but got '%v' instead\n", ErrWrongMintAnswer, err)
	}
}

func TestFinalizeZeroIdAccepted(t *testing.T) {
	private, public, err := testutils.GenerateTierKeys(testTiers())
	if err != nil {
		t.Fatalf("error generating tier keys: %v", err)
	}

	request, signRequest, err := NewIssuanceRequest(3, public)
	if err != nil {
		t.Fatalf("unexpected error in NewIssuanceRequest: %v", err)
	}

	// mints that do not echo the id still finalize
	response := signResponse(t, signRequest, private)
	response.Id = ecash.TransactionId{}

	coins, err := request.Finalize(response, public)
	if err != nil {
		t.Fatalf("unexpected error in Finalize: %v", err)
	}
	if coins.TotalAmount() != 3 {
		t.Errorf("expected total amount of '%v' but got '%v' instead\n", ecash.Amount(3), coins.TotalAmount())
	}
}
