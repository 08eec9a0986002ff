package storage

import (
	"bytes"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

const recordsBucket = "records"

// BoltDB is the default on-disk engine, a single bbolt bucket.
type BoltDB struct {
	bolt *bolt.DB
}

func InitBolt(path string) (*BoltDB, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(path, "wallet.db"), 0600, nil)
	if err != nil {
		return nil, err
	}

	boltdb := &BoltDB{bolt: db}
	if err := boltdb.initRecordsBucket(); err != nil {
		return nil, err
	}

	return boltdb, nil
}

func (db *BoltDB) initRecordsBucket() error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
}

func (db *BoltDB) Insert(key, value []byte) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket([]byte(recordsBucket))
		return records.Put(key, value)
	})
}

func (db *BoltDB) Get(key []byte) ([]byte, error) {
	var value []byte
	if err := db.bolt.View(func(tx *bolt.Tx) error {
		records := tx.Bucket([]byte(recordsBucket))
		if v := records.Get(key); v != nil {
			// bolt memory is only valid inside the transaction
			value = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return value, nil
}

func (db *BoltDB) Delete(key []byte) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket([]byte(recordsBucket))
		return records.Delete(key)
	})
}

func (db *BoltDB) PrefixScan(prefix []byte) ([]Entry, error) {
	entries := []Entry{}
	if err := db.bolt.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(recordsBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			entries = append(entries, Entry{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return entries, nil
}

func (db *BoltDB) ApplyBatch(ops []BatchOp) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		records := tx.Bucket([]byte(recordsBucket))
		for _, op := range ops {
			if op.Delete {
				if err := records.Delete(op.Key); err != nil {
					return err
				}
				continue
			}
			if err := records.Put(op.Key, op.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}
