package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{message: "0000000000000000000000000000000000000000000000000000000000000000",
			expected: "0266687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"},
		{message: "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "02ec4916dd28fc4c10d78e287ca5d9cc51ee1ae73cbfde08c6b37324cbfaac8bc5"},
		{message: "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "02076c988b353fcbb748178ecb286bc9d0b4acf474d4ba31ba62334e46c97c416a"},
	}

	for _, test := range tests {
		msgBytes, err := hex.DecodeString(test.message)
		if err != nil {
			t.Errorf("error decoding msg: %v", err)
		}

		pk := HashToCurve(msgBytes)
		hexStr := hex.EncodeToString(pk.SerializeCompressed())
		if hexStr != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, hexStr)
		}
	}
}

func TestBlindMessage(t *testing.T) {
	tests := []struct {
		message     []byte
		blindingKey string
		expected    string
	}{
		{message: []byte("test_message"),
			blindingKey: "0000000000000000000000000000000000000000000000000000000000000001",
			expected:    "02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2",
		},
		{message: []byte("hello"),
			blindingKey: "6d7e0abffc83267de28ed8ecc8760f17697e51252e13333ba69b4ddad1f95d05",
			expected:    "0249eb5dbb4fac2750991cf18083388c6ef76cde9537a6ac6f3e6679d35cdf4b0c",
		},
	}

	for _, test := range tests {
		rbytes, err := hex.DecodeString(test.blindingKey)
		if err != nil {
			t.Errorf("error decoding blinding key: %v", err)
		}
		r := secp256k1.PrivKeyFromBytes(rbytes)

		B_ := BlindMessage(test.message, r)
		B_Hex := hex.EncodeToString(B_.B.SerializeCompressed())
		if B_Hex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, B_Hex)
		}
	}
}

func TestSignBlinded(t *testing.T) {
	tests := []struct {
		message     []byte
		blindingKey string
		tierPrivKey string
		expected    string
	}{
		{message: []byte("test_message"),
			blindingKey: "0000000000000000000000000000000000000000000000000000000000000001",
			tierPrivKey: "0000000000000000000000000000000000000000000000000000000000000001",
			expected:    "02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2",
		},
		{message: []byte("test_message"),
			blindingKey: "0000000000000000000000000000000000000000000000000000000000000001",
			tierPrivKey: "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f",
			expected:    "0398bc70ce8184d27ba89834d19f5199c84443c31131e48d3c1214db24247d005d",
		},
	}

	for _, test := range tests {
		rbytes, err := hex.DecodeString(test.blindingKey)
		if err != nil {
			t.Errorf("error decoding blinding key: %v", err)
		}
		r := secp256k1.PrivKeyFromBytes(rbytes)

		B_ := BlindMessage(test.message, r)

		tierKeyBytes, err := hex.DecodeString(test.tierPrivKey)
		if err != nil {
			t.Errorf("error decoding tier private key: %v", err)
		}
		k := secp256k1.PrivKeyFromBytes(tierKeyBytes)

		blindSig, err := SignBlinded(B_, k)
		if err != nil {
			t.Fatalf("error signing blinded message: %v", err)
		}
		blindedHex := hex.EncodeToString(blindSig.C.SerializeCompressed())
		if blindedHex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, blindedHex)
		}
	}
}

func TestUnblindSignature(t *testing.T) {
	cdst, _ := hex.DecodeString("02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2")
	C_, err := secp256k1.ParsePubKey(cdst)
	if err != nil {
		t.Error(err)
	}

	kdst, _ := hex.DecodeString("020000000000000000000000000000000000000000000000000000000000000001")
	A, err := secp256k1.ParsePubKey(kdst)
	if err != nil {
		t.Error(err)
	}

	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	r := secp256k1.PrivKeyFromBytes(rhex)

	one, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	e := secp256k1.PrivKeyFromBytes(one)

	sig := UnblindSignature(BlindSignature{C: C_, E: e, S: e}, r, A)
	CHex := hex.EncodeToString(sig.C.SerializeCompressed())
	expected := "03c724d7e6a5443b39ac8acf11f40420adc4f99a02e7cc1b57703d9391f6d129cd"
	if CHex != expected {
		t.Errorf("expected '%v' but got '%v' instead\n", expected, CHex)
	}
}

func TestVerifySignature(t *testing.T) {
	message := []byte("test_message")

	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	r, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	B_ := BlindMessage(message, r)
	blindSig, err := SignBlinded(B_, k)
	if err != nil {
		t.Fatal(err)
	}
	sig := UnblindSignature(blindSig, r, k.PubKey())

	if !VerifySignature(message, sig, k.PubKey()) {
		t.Error("failed verification")
	}

	if VerifySignature([]byte("other_message"), sig, k.PubKey()) {
		t.Error("verification passed for a different message")
	}

	wrongKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	if VerifySignature(message, sig, wrongKey.PubKey()) {
		t.Error("verification passed for a different tier key")
	}

	forged := sig
	forged.C = wrongKey.PubKey()
	if VerifySignature(message, forged, k.PubKey()) {
		t.Error("verification passed for a forged signature")
	}

	if VerifySignature(message, Signature{}, k.PubKey()) {
		t.Error("verification passed for an empty signature")
	}
}

func TestSignatureJSON(t *testing.T) {
	message := []byte("json_message")

	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	r, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}

	B_ := BlindMessage(message, r)

	encoded, err := json.Marshal(B_)
	if err != nil {
		t.Fatalf("error marshaling blinded message: %v", err)
	}
	var decodedMsg BlindedMessage
	if err := json.Unmarshal(encoded, &decodedMsg); err != nil {
		t.Fatalf("error unmarshaling blinded message: %v", err)
	}
	if !decodedMsg.B.IsEqual(B_.B) {
		t.Error("blinded message changed across encoding")
	}

	blindSig, err := SignBlinded(B_, k)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err = json.Marshal(blindSig)
	if err != nil {
		t.Fatalf("error marshaling blind signature: %v", err)
	}
	var decodedBlindSig BlindSignature
	if err := json.Unmarshal(encoded, &decodedBlindSig); err != nil {
		t.Fatalf("error unmarshaling blind signature: %v", err)
	}
	if !decodedBlindSig.C.IsEqual(blindSig.C) {
		t.Error("blind signature point changed across encoding")
	}

	sig := UnblindSignature(blindSig, r, k.PubKey())
	encoded, err = json.Marshal(sig)
	if err != nil {
		t.Fatalf("error marshaling signature: %v", err)
	}
	var decodedSig Signature
	if err := json.Unmarshal(encoded, &decodedSig); err != nil {
		t.Fatalf("error unmarshaling signature: %v", err)
	}
	if !decodedSig.C.IsEqual(sig.C) {
		t.Error("signature point changed across encoding")
	}
	if !bytes.Equal(decodedSig.R.Serialize(), sig.R.Serialize()) {
		t.Error("blinding key changed across encoding")
	}
	if !VerifySignature(message, decodedSig, k.PubKey()) {
		t.Error("decoded signature failed verification")
	}
}
