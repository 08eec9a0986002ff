package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteDB is an engine backed by a single-table sqlite database, for
// deployments that want wallet records inspectable with stock sql tooling.
type SQLiteDB struct {
	db *sql.DB
}

func InitSQLite(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	dbpath := filepath.Join(path, "wallet.sqlite.db")
	db, err := sql.Open("sqlite3", dbpath)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, fmt.Sprintf("sqlite3://%s", dbpath))
	if err != nil {
		return nil, err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteDB{db: db}, nil
}

func (sqlite *SQLiteDB) Insert(key, value []byte) error {
	_, err := sqlite.db.Exec(`
	INSERT INTO records (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v
	`, key, value)

	return err
}

func (sqlite *SQLiteDB) Get(key []byte) ([]byte, error) {
	var value []byte
	row := sqlite.db.QueryRow("SELECT v FROM records WHERE k = ?", key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func (sqlite *SQLiteDB) Delete(key []byte) error {
	_, err := sqlite.db.Exec("DELETE FROM records WHERE k = ?", key)
	return err
}

func (sqlite *SQLiteDB) PrefixScan(prefix []byte) ([]Entry, error) {
	var rows *sql.Rows
	var err error

	// sqlite compares blobs bytewise, so a prefix scan is a half-open key
	// range. A prefix of all 0xff bytes has no upper bound.
	if end := prefixEnd(prefix); end != nil {
		rows, err = sqlite.db.Query(
			"SELECT k, v FROM records WHERE k >= ? AND k < ? ORDER BY k", prefix, end)
	} else {
		rows, err = sqlite.db.Query(
			"SELECT k, v FROM records WHERE k >= ? ORDER BY k", prefix)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (sqlite *SQLiteDB) ApplyBatch(ops []BatchOp) error {
	tx, err := sqlite.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, op := range ops {
		if op.Delete {
			if _, err := tx.Exec("DELETE FROM records WHERE k = ?", op.Key); err != nil {
				return err
			}
			continue
		}
		_, err := tx.Exec(`
		INSERT INTO records (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v
		`, op.Key, op.Value)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (sqlite *SQLiteDB) Close() error {
	return sqlite.db.Close()
}

// prefixEnd returns the smallest key above every key carrying prefix, or nil
// when the prefix is empty or all 0xff and no upper bound exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
