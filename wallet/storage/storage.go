// Package storage defines the key-value store wallets keep their records in,
// with interchangeable engines backed by bbolt, sqlite or plain memory.
package storage

// Entry is a single key-value record returned by a scan.
type Entry struct {
	Key   []byte
	Value []byte
}

// BatchOp is one operation of an atomic batch: an insert when Delete is
// false, a deletion of Key otherwise.
type BatchOp struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// InsertOp returns a batch operation storing value under key.
func InsertOp(key, value []byte) BatchOp {
	return BatchOp{Key: key, Value: value}
}

// DeleteOp returns a batch operation removing key.
func DeleteOp(key []byte) BatchOp {
	return BatchOp{Key: key, Delete: true}
}

// DB is the store interface wallets run on. Engines are plain byte stores:
// key layout and value encoding are decided by the caller. Keys compare as
// unsigned bytes and every scan returns entries in ascending key order.
type DB interface {
	// Insert stores value under key, overwriting any previous value.
	Insert(key, value []byte) error

	// Get returns the value stored under key, or nil if the key is absent.
	Get(key []byte) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// PrefixScan returns every entry whose key starts with prefix, in
	// ascending key order. An empty prefix returns the whole store.
	PrefixScan(prefix []byte) ([]Entry, error)

	// ApplyBatch applies the operations in one atomic transaction: after a
	// crash either all of them are visible or none is.
	ApplyBatch(ops []BatchOp) error

	Close() error
}
