// Package crypto implements the blind diffie-hellman key exchange used for
// coin issuance, plus the discrete-log equality proofs that let a client
// verify an unblinded signature against the mint's public key alone.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// BlindedMessage is the blinded commitment B_ = HashToCurve(message) + rG
// sent to the mint for signing. It encodes as a compressed point in hex.
type BlindedMessage struct {
	B *secp256k1.PublicKey
}

// BlindSignature is the mint's signature C_ = kB_ over a blinded message,
// together with the proof (e, s) that the same key k was used for every
// signature of its denomination tier.
type BlindSignature struct {
	C *secp256k1.PublicKey
	E *secp256k1.PrivateKey
	S *secp256k1.PrivateKey
}

// Signature is an unblinded signature C = C_ - rA on a coin nonce. It keeps
// the equality proof and the blinding key r so that any holder can check it
// offline against the tier public key.
type Signature struct {
	C *secp256k1.PublicKey
	E *secp256k1.PrivateKey
	S *secp256k1.PrivateKey
	R *secp256k1.PrivateKey
}

func HashToCurve(message []byte) *secp256k1.PublicKey {
	var point *secp256k1.PublicKey

	for point == nil || !point.IsOnCurve() {
		hash := sha256.Sum256(message)
		pkhash := append([]byte{0x02}, hash[:]...)
		point, _ = secp256k1.ParsePubKey(pkhash)
		message = hash[:]
	}
	return point
}

// BlindMessage hides message under the blinding key r.
// B_ = Y + rG
func BlindMessage(message []byte, r *secp256k1.PrivateKey) BlindedMessage {
	var ypoint, rpoint, blinded secp256k1.JacobianPoint

	Y := HashToCurve(message)
	Y.AsJacobian(&ypoint)
	r.PubKey().AsJacobian(&rpoint)

	secp256k1.AddNonConst(&ypoint, &rpoint, &blinded)
	blinded.ToAffine()

	return BlindedMessage{B: secp256k1.NewPublicKey(&blinded.X, &blinded.Y)}
}

// SignBlinded signs a blinded message with the tier private key k.
// C_ = kB_, with (e, s) proving log_G(kG) == log_B_(C_).
func SignBlinded(msg BlindedMessage, k *secp256k1.PrivateKey) (BlindSignature, error) {
	var bpoint, cpoint secp256k1.JacobianPoint
	msg.B.AsJacobian(&bpoint)

	secp256k1.ScalarMultNonConst(&k.Key, &bpoint, &cpoint)
	cpoint.ToAffine()
	C_ := secp256k1.NewPublicKey(&cpoint.X, &cpoint.Y)

	nonce, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return BlindSignature{}, err
	}

	// R1 = aG, R2 = aB_
	R1 := nonce.PubKey()
	var r2point secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&nonce.Key, &bpoint, &r2point)
	r2point.ToAffine()
	R2 := secp256k1.NewPublicKey(&r2point.X, &r2point.Y)

	e := challenge(R1, R2, k.PubKey(), C_)

	// s = a + ek
	var s secp256k1.ModNScalar
	s.Mul2(&e.Key, &k.Key).Add(&nonce.Key)

	return BlindSignature{C: C_, E: e, S: secp256k1.NewPrivateKey(&s)}, nil
}

// UnblindSignature removes the blinding term from a blind signature.
// C = C_ - rA
func UnblindSignature(sig BlindSignature, r *secp256k1.PrivateKey,
	A *secp256k1.PublicKey) Signature {

	var apoint, rApoint secp256k1.JacobianPoint
	A.AsJacobian(&apoint)

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)

	secp256k1.ScalarMultNonConst(&rNeg, &apoint, &rApoint)
	rApoint.ToAffine()

	var c_point, cpoint secp256k1.JacobianPoint
	sig.C.AsJacobian(&c_point)
	secp256k1.AddNonConst(&c_point, &rApoint, &cpoint)
	cpoint.ToAffine()

	return Signature{
		C: secp256k1.NewPublicKey(&cpoint.X, &cpoint.Y),
		E: sig.E,
		S: sig.S,
		R: r,
	}
}

// VerifySignature checks an unblinded signature against the tier public key
// A using only public data and the blinding key carried in the signature. It
// reconstructs B_ = HashToCurve(message) + rG and C_ = C + rA and then checks
// the mint's equality proof over (A, B_, C_).
func VerifySignature(message []byte, sig Signature, A *secp256k1.PublicKey) bool {
	if sig.C == nil || sig.E == nil || sig.S == nil || sig.R == nil {
		return false
	}

	B_ := BlindMessage(message, sig.R)

	var cpoint, apoint secp256k1.JacobianPoint
	sig.C.AsJacobian(&cpoint)
	A.AsJacobian(&apoint)

	// C_ = C + rA
	var c_point, rApoint secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&sig.R.Key, &apoint, &rApoint)
	rApoint.ToAffine()
	secp256k1.AddNonConst(&cpoint, &rApoint, &c_point)
	c_point.ToAffine()
	C_ := secp256k1.NewPublicKey(&c_point.X, &c_point.Y)

	return verifyDLEQ(sig.E, sig.S, A, B_.B, C_)
}

// verifyDLEQ checks that (e, s) proves the key behind A also signed C_.
// R1 = sG - eA, R2 = sB_ - eC_, valid if e == hash(R1, R2, A, C_).
func verifyDLEQ(e, s *secp256k1.PrivateKey, A, B_, C_ *secp256k1.PublicKey) bool {
	var eNeg secp256k1.ModNScalar
	eNeg.NegateVal(&e.Key)

	var apoint, eApoint, sGpoint, r1point secp256k1.JacobianPoint
	A.AsJacobian(&apoint)
	secp256k1.ScalarMultNonConst(&eNeg, &apoint, &eApoint)
	eApoint.ToAffine()
	secp256k1.ScalarBaseMultNonConst(&s.Key, &sGpoint)
	sGpoint.ToAffine()
	secp256k1.AddNonConst(&sGpoint, &eApoint, &r1point)
	r1point.ToAffine()
	R1 := secp256k1.NewPublicKey(&r1point.X, &r1point.Y)

	var bpoint, cpoint, eCpoint, sBpoint, r2point secp256k1.JacobianPoint
	B_.AsJacobian(&bpoint)
	C_.AsJacobian(&cpoint)
	secp256k1.ScalarMultNonConst(&eNeg, &cpoint, &eCpoint)
	eCpoint.ToAffine()
	secp256k1.ScalarMultNonConst(&s.Key, &bpoint, &sBpoint)
	sBpoint.ToAffine()
	secp256k1.AddNonConst(&sBpoint, &eCpoint, &r2point)
	r2point.ToAffine()
	R2 := secp256k1.NewPublicKey(&r2point.X, &r2point.Y)

	expected := challenge(R1, R2, A, C_)
	return e.Key.Equals(&expected.Key)
}

// challenge derives the non-interactive proof challenge from the transcript
// points, mapped to a scalar.
func challenge(pubkeys ...*secp256k1.PublicKey) *secp256k1.PrivateKey {
	var msg []byte
	for _, pubkey := range pubkeys {
		hexStr := hex.EncodeToString(pubkey.SerializeUncompressed())
		msg = append(msg, []byte(hexStr)...)
	}
	hash := sha256.Sum256(msg)
	return secp256k1.PrivKeyFromBytes(hash[:])
}

type blindSignatureJSON struct {
	C string `json:"c_"`
	E string `json:"e"`
	S string `json:"s"`
}

type signatureJSON struct {
	C string `json:"c"`
	E string `json:"e"`
	S string `json:"s"`
	R string `json:"r"`
}

func (m BlindedMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(m.B.SerializeCompressed()))
}

func (m *BlindedMessage) UnmarshalJSON(data []byte) error {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	B, err := parsePoint(encoded)
	if err != nil {
		return err
	}
	m.B = B
	return nil
}

func (sig BlindSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal(blindSignatureJSON{
		C: hex.EncodeToString(sig.C.SerializeCompressed()),
		E: hex.EncodeToString(sig.E.Serialize()),
		S: hex.EncodeToString(sig.S.Serialize()),
	})
}

func (sig *BlindSignature) UnmarshalJSON(data []byte) error {
	var wire blindSignatureJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var err error
	if sig.C, err = parsePoint(wire.C); err != nil {
		return err
	}
	if sig.E, err = parseScalar(wire.E); err != nil {
		return err
	}
	if sig.S, err = parseScalar(wire.S); err != nil {
		return err
	}
	return nil
}

func (sig Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(signatureJSON{
		C: hex.EncodeToString(sig.C.SerializeCompressed()),
		E: hex.EncodeToString(sig.E.Serialize()),
		S: hex.EncodeToString(sig.S.Serialize()),
		R: hex.EncodeToString(sig.R.Serialize()),
	})
}

func (sig *Signature) UnmarshalJSON(data []byte) error {
	var wire signatureJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var err error
	if sig.C, err = parsePoint(wire.C); err != nil {
		return err
	}
	if sig.E, err = parseScalar(wire.E); err != nil {
		return err
	}
	if sig.S, err = parseScalar(wire.S); err != nil {
		return err
	}
	if sig.R, err = parseScalar(wire.R); err != nil {
		return err
	}
	return nil
}

func parsePoint(encoded string) (*secp256k1.PublicKey, error) {
	pointBytes, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return secp256k1.ParsePubKey(pointBytes)
}

func parseScalar(encoded string) (*secp256k1.PrivateKey, error) {
	scalarBytes, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(scalarBytes) != 32 {
		return nil, errors.New("scalar must be 32 bytes")
	}
	return secp256k1.PrivKeyFromBytes(scalarBytes), nil
}
