package crypto

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip39"
)

// purpose is the BIP-32 purpose field of the coin derivation path. All coin
// key material lives under m/6468'/0'.
const purpose = 6468

// NewMnemonic generates a fresh 12-word recovery mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// MasterKey derives the BIP-32 master key from a recovery mnemonic.
func MasterKey(mnemonic string) (*hdkeychain.ExtendedKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")
	return hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
}

// DeriveCoinPath derives the account path coin keys are indexed under.
func DeriveCoinPath(master *hdkeychain.ExtendedKey) (*hdkeychain.ExtendedKey, error) {
	// m/6468'
	purposePath, err := master.Derive(hdkeychain.HardenedKeyStart + purpose)
	if err != nil {
		return nil, err
	}

	// m/6468'/0'
	return purposePath.Derive(hdkeychain.HardenedKeyStart + 0)
}

// DeriveSpendKey derives the spend key of the coin at the given counter.
func DeriveSpendKey(coinPath *hdkeychain.ExtendedKey, counter uint32) (*secp256k1.PrivateKey, error) {
	// m/6468'/0'/counter'/0
	counterPath, err := coinPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, err
	}

	spendPath, err := counterPath.Derive(0)
	if err != nil {
		return nil, err
	}

	return spendPath.ECPrivKey()
}

// DeriveBlindingKey derives the blinding key of the coin at the given counter.
func DeriveBlindingKey(coinPath *hdkeychain.ExtendedKey, counter uint32) (*secp256k1.PrivateKey, error) {
	// m/6468'/0'/counter'/1
	counterPath, err := coinPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, err
	}

	blindingPath, err := counterPath.Derive(1)
	if err != nil {
		return nil, err
	}

	return blindingPath.ECPrivKey()
}
