package wallet

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fedi-tools/gomint/ecash"
	"github.com/fedi-tools/gomint/wallet/storage"
)

// coinStore wraps the record store with the wallet's key layout. Values are
// json; ordering and record typing live entirely in the keys.
type coinStore struct {
	db storage.DB
}

type pendingIssuance struct {
	Id      ecash.TransactionId
	Request *IssuanceRequest
}

type redeemedIssuance struct {
	Id    ecash.TransactionId
	Coins ecash.Coins[SpendableCoin]
}

// recordPending writes the pending record for an issuance. It must hit disk
// before the signing request reaches any mint.
func (s coinStore) recordPending(id ecash.TransactionId, request *IssuanceRequest) error {
	value, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("json.Marshal: %v", err)
	}
	return s.db.Insert(issuanceKey(id), value)
}

// recordPendingWithNoteIndex additionally advances the derivation counter,
// in the same atomic batch so a crash cannot reuse counter values.
func (s coinStore) recordPendingWithNoteIndex(id ecash.TransactionId,
	request *IssuanceRequest, nextNoteIndex uint64) error {

	value, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("json.Marshal: %v", err)
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], nextNoteIndex)

	return s.db.ApplyBatch([]storage.BatchOp{
		storage.InsertOp(issuanceKey(id), value),
		storage.InsertOp(noteIndexKey(), counter[:]),
	})
}

func (s coinStore) pendingIssuances() ([]pendingIssuance, error) {
	entries, err := s.db.PrefixScan(issuanceKeyPrefix())
	if err != nil {
		return nil, err
	}

	pending := make([]pendingIssuance, len(entries))
	for i, entry := range entries {
		id, err := decodeIssuanceKey(entry.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid pending issuance key: %w", err)
		}
		var request IssuanceRequest
		if err := json.Unmarshal(entry.Value, &request); err != nil {
			return nil, fmt.Errorf("error reading pending issuance %s: %v", id, err)
		}
		pending[i] = pendingIssuance{Id: id, Request: &request}
	}
	return pending, nil
}

// redeemIssuances converts finalized issuances into owned coins: every coin
// insert and every pending-record deletion commits in one atomic batch.
func (s coinStore) redeemIssuances(redeemed []redeemedIssuance) error {
	ops := []storage.BatchOp{}
	for _, issuance := range redeemed {
		for _, entry := range issuance.Coins.All() {
			value, err := json.Marshal(entry.Item)
			if err != nil {
				return fmt.Errorf("json.Marshal: %v", err)
			}
			ops = append(ops, storage.InsertOp(coinKey(entry.Amount, entry.Item.Coin.Nonce), value))
		}
		ops = append(ops, storage.DeleteOp(issuanceKey(issuance.Id)))
	}
	if len(ops) == 0 {
		return nil
	}
	return s.db.ApplyBatch(ops)
}

func (s coinStore) spendableCoins() (ecash.Coins[SpendableCoin], error) {
	entries, err := s.db.PrefixScan(coinKeyPrefix())
	if err != nil {
		return ecash.Coins[SpendableCoin]{}, err
	}

	var coins ecash.Coins[SpendableCoin]
	for _, entry := range entries {
		amount, _, err := decodeCoinKey(entry.Key)
		if err != nil {
			return ecash.Coins[SpendableCoin]{}, fmt.Errorf("invalid coin key: %w", err)
		}
		var coin SpendableCoin
		if err := json.Unmarshal(entry.Value, &coin); err != nil {
			return ecash.Coins[SpendableCoin]{}, fmt.Errorf("error reading coin record: %v", err)
		}
		coins.Add(amount, coin)
	}
	return coins, nil
}

func (s coinStore) addCoins(coins ecash.Coins[SpendableCoin]) error {
	ops := []storage.BatchOp{}
	for _, entry := range coins.All() {
		value, err := json.Marshal(entry.Item)
		if err != nil {
			return fmt.Errorf("json.Marshal: %v", err)
		}
		ops = append(ops, storage.InsertOp(coinKey(entry.Amount, entry.Item.Coin.Nonce), value))
	}
	if len(ops) == 0 {
		return nil
	}
	return s.db.ApplyBatch(ops)
}

func (s coinStore) removeCoins(coins ecash.Coins[SpendableCoin]) error {
	ops := []storage.BatchOp{}
	for _, entry := range coins.All() {
		ops = append(ops, storage.DeleteOp(coinKey(entry.Amount, entry.Item.Coin.Nonce)))
	}
	if len(ops) == 0 {
		return nil
	}
	return s.db.ApplyBatch(ops)
}

// noteIndex returns the next unused derivation counter value.
func (s coinStore) noteIndex() (uint64, error) {
	value, err := s.db.Get(noteIndexKey())
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("invalid note index record length: %d", len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}
