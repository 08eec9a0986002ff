package storage

import (
	"bytes"
	"log"
	"os"
	"reflect"
	"testing"
)

var engines map[string]DB

func TestMain(m *testing.M) {
	code, err := testMain(m)
	if err != nil {
		log.Println(err)
	}
	os.Exit(code)
}

func testMain(m *testing.M) (int, error) {
	boltPath := "./testdbbolt"
	boltdb, err := InitBolt(boltPath)
	if err != nil {
		return 1, err
	}
	defer os.RemoveAll(boltPath)

	sqlitePath := "./testdbsqlite"
	sqlitedb, err := InitSQLite(sqlitePath)
	if err != nil {
		return 1, err
	}
	defer os.RemoveAll(sqlitePath)

	engines = map[string]DB{
		"bolt":   boltdb,
		"sqlite": sqlitedb,
		"mem":    InitMem(),
	}

	return m.Run(), nil
}

func TestInsertGetDelete(t *testing.T) {
	for name, db := range engines {
		t.Run(name, func(t *testing.T) {
			key := []byte{0x70, 0x01}

			value, err := db.Get(key)
			if err != nil {
				t.Fatalf("error getting absent key: %v", err)
			}
			if value != nil {
				t.Errorf("expected nil value for absent key but got '%v'", value)
			}

			if err := db.Insert(key, []byte("first")); err != nil {
				t.Fatalf("error inserting record: %v", err)
			}
			value, err = db.Get(key)
			if err != nil {
				t.Fatalf("error getting record: %v", err)
			}
			if !bytes.Equal(value, []byte("first")) {
				t.Errorf("expected '%v' but got '%v' instead\n", "first", string(value))
			}

			// overwrite
			if err := db.Insert(key, []byte("second")); err != nil {
				t.Fatalf("error overwriting record: %v", err)
			}
			value, _ = db.Get(key)
			if !bytes.Equal(value, []byte("second")) {
				t.Errorf("expected '%v' but got '%v' instead\n", "second", string(value))
			}

			if err := db.Delete(key); err != nil {
				t.Fatalf("error deleting record: %v", err)
			}
			value, _ = db.Get(key)
			if value != nil {
				t.Errorf("expected nil value after delete but got '%v'", value)
			}

			// deleting again is not an error
			if err := db.Delete(key); err != nil {
				t.Errorf("error deleting absent key: %v", err)
			}
		})
	}
}

func TestPrefixScan(t *testing.T) {
	records := []Entry{
		{Key: []byte{0x71, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08, 0xaa}, Value: []byte("eight")},
		{Key: []byte{0x71, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0xff}, Value: []byte("one-b")},
		{Key: []byte{0x71, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x0a}, Value: []byte("one-a")},
		{Key: []byte{0x72, 0x01}, Value: []byte("other-prefix")},
		{Key: []byte{0x71, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x01}, Value: []byte("big")},
	}

	// keys with the scanned prefix, in expected ascending order
	expected := []Entry{records[2], records[1], records[0], records[4]}

	for name, db := range engines {
		t.Run(name, func(t *testing.T) {
			for _, record := range records {
				if err := db.Insert(record.Key, record.Value); err != nil {
					t.Fatalf("error inserting record: %v", err)
				}
			}

			entries, err := db.PrefixScan([]byte{0x71})
			if err != nil {
				t.Fatalf("error scanning prefix: %v", err)
			}
			if !reflect.DeepEqual(entries, expected) {
				t.Errorf("expected '%v' but got '%v' instead\n", expected, entries)
			}

			entries, err = db.PrefixScan([]byte{0x73})
			if err != nil {
				t.Fatalf("error scanning empty prefix range: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("expected no entries but got '%v'", len(entries))
			}
		})
	}
}

func TestApplyBatch(t *testing.T) {
	for name, db := range engines {
		t.Run(name, func(t *testing.T) {
			pending := []byte{0x74, 0x01}
			if err := db.Insert(pending, []byte("pending")); err != nil {
				t.Fatalf("error inserting record: %v", err)
			}

			ops := []BatchOp{
				InsertOp([]byte{0x75, 0x01}, []byte("coin-1")),
				InsertOp([]byte{0x75, 0x02}, []byte("coin-2")),
				DeleteOp(pending),
			}
			if err := db.ApplyBatch(ops); err != nil {
				t.Fatalf("error applying batch: %v", err)
			}

			value, _ := db.Get(pending)
			if value != nil {
				t.Error("expected batched delete to remove record")
			}
			for _, op := range ops[:2] {
				value, err := db.Get(op.Key)
				if err != nil {
					t.Fatalf("error getting record: %v", err)
				}
				if !bytes.Equal(value, op.Value) {
					t.Errorf("expected '%v' but got '%v' instead\n", string(op.Value), string(value))
				}
			}

			// empty batch is a no-op
			if err := db.ApplyBatch(nil); err != nil {
				t.Errorf("error applying empty batch: %v", err)
			}
		})
	}
}
