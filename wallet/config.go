package wallet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/fedi-tools/gomint/ecash"
)

// Config describes the federation a wallet talks to.
type Config struct {
	// Mints are the endpoint URLs of the federation members.
	Mints []string

	// TierKeys are the federation's aggregated public keys, one per
	// denomination tier.
	TierKeys ecash.Keys[*secp256k1.PublicKey]

	// Quorum is the number of mints that must accept a broadcast before it
	// counts as done. Zero selects the fault-tolerance default of
	// maxFaulty+1.
	Quorum int

	// Mnemonic, when set, switches coin keys from fresh randomness to
	// deterministic derivation so a wallet can be rebuilt from its words.
	Mnemonic string

	// RequestTimeout bounds each mint request. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// quorum returns the broadcast acceptance threshold.
func (c Config) quorum() int {
	if c.Quorum > 0 {
		return c.Quorum
	}
	return maxFaulty(len(c.Mints)) + 1
}

// maxFaulty is the number of byzantine members an n-member federation
// tolerates.
func maxFaulty(n int) int {
	return (n - 1) / 3
}

type configFile struct {
	Mints            []string          `json:"mints"`
	TierKeys         map[string]string `json:"tier_keys"`
	Quorum           int               `json:"quorum"`
	Mnemonic         string            `json:"mnemonic"`
	RequestTimeoutMs int               `json:"request_timeout_ms"`
}

// LoadConfig reads a federation config file. Tier keys are a JSON object of
// decimal millisat tiers to compressed public keys in hex.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config: %v", err)
	}
	defer f.Close()

	var file configFile
	if err := json.NewDecoder(f).Decode(&file); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %v", err)
	}

	if len(file.Mints) == 0 {
		return Config{}, errors.New("config lists no mints")
	}
	if file.Quorum < 0 || file.Quorum > len(file.Mints) {
		return Config{}, fmt.Errorf("quorum %d invalid for %d mints", file.Quorum, len(file.Mints))
	}

	tierKeys := make(map[ecash.Amount]*secp256k1.PublicKey, len(file.TierKeys))
	for tierStr, keyStr := range file.TierKeys {
		tier, err := strconv.ParseUint(tierStr, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid tier '%v' in config: %v", tierStr, err)
		}
		keyBytes, err := hex.DecodeString(keyStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid key for tier %v: %v", tier, err)
		}
		key, err := secp256k1.ParsePubKey(keyBytes)
		if err != nil {
			return Config{}, fmt.Errorf("invalid key for tier %v: %v", tier, err)
		}
		tierKeys[ecash.Amount(tier)] = key
	}
	if len(tierKeys) == 0 {
		return Config{}, errors.New("config lists no tier keys")
	}

	return Config{
		Mints:          file.Mints,
		TierKeys:       ecash.NewKeys(tierKeys),
		Quorum:         file.Quorum,
		Mnemonic:       file.Mnemonic,
		RequestTimeout: time.Duration(file.RequestTimeoutMs) * time.Millisecond,
	}, nil
}
