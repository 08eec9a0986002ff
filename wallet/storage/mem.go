package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemDB is an in-process engine holding records in a plain map. It backs
// tests and throwaway wallets; contents vanish on Close.
type MemDB struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func InitMem() *MemDB {
	return &MemDB{records: make(map[string][]byte)}
}

func (db *MemDB) Insert(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.records[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.records[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.records, string(key))
	return nil
}

func (db *MemDB) PrefixScan(prefix []byte) ([]Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	entries := []Entry{}
	for k, v := range db.records {
		if strings.HasPrefix(k, string(prefix)) {
			entries = append(entries, Entry{
				Key:   []byte(k),
				Value: append([]byte(nil), v...),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
	return entries, nil
}

func (db *MemDB) ApplyBatch(ops []BatchOp) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			delete(db.records, string(op.Key))
			continue
		}
		db.records[string(op.Key)] = append([]byte(nil), op.Value...)
	}
	return nil
}

func (db *MemDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.records = make(map[string][]byte)
	return nil
}
