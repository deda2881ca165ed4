// Package paramdb implements the key/value parameter database used to
// configure detectors at startup. Grounded on
// original_source/Database.cxx.
package paramdb

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// DB holds the key/value pairs read from a parameter database file.
// Lookup is (module, key) -> value, with optional fallback to the
// unqualified ("", key) pair. A DB is read-only after Open/Append
// return, and is safe to share across worker goroutines without
// further synchronization.
type DB struct {
	items []item
}

type item struct {
	module, key string
	value       float64
}

// Open reads filename into a fresh DB. A missing file is not an
// error: it yields an empty, ready database (matching
// original_source/Database.cxx, which silently skips absent files).
func Open(filename string, log *zap.SugaredLogger) (*DB, error) {
	db := &DB{}
	if err := db.Append(filename, log); err != nil {
		return nil, err
	}
	return db, nil
}

// Append parses filename and adds its key/value pairs to db.
func (db *DB) Append(filename string, log *zap.SugaredLogger) error {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Errorf("paramdb: open %s: %w", filename, err)
	}
	defer f.Close()
	return db.parse(f, log)
}

func (db *DB) parse(r io.Reader, log *zap.SugaredLogger) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		it, err := parseLine(line)
		if err != nil {
			return xerrors.Errorf("paramdb: line %d: %w", lineNo, err)
		}
		db.set(it, log)
	}
	if err := sc.Err(); err != nil {
		return xerrors.Errorf("paramdb: read error: %w", err)
	}
	return nil
}

func parseLine(line string) (item, error) {
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return item{}, xerrors.Errorf("missing '=' in %q", line)
	}
	lhs := strings.TrimSpace(line[:eq])
	rhs := strings.TrimSpace(line[eq+1:])
	if lhs == "" || rhs == "" {
		return item{}, xerrors.Errorf("malformed key/value in %q", line)
	}

	value, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return item{}, xerrors.Errorf("value %q is not a number: %w", rhs, err)
	}

	module, key := "", lhs
	if dot := strings.IndexByte(lhs, '.'); dot >= 0 {
		module, key = lhs[:dot], lhs[dot+1:]
	}
	if key == "" {
		return item{}, xerrors.Errorf("empty key in %q", line)
	}
	return item{module: module, key: key, value: value}, nil
}

func (db *DB) set(it item, log *zap.SugaredLogger) {
	for i := range db.items {
		if db.items[i].module == it.module && db.items[i].key == it.key {
			if log != nil {
				log.Warnf("paramdb: key %q (module %q) redefined, overwriting %v with %v",
					it.key, it.module, db.items[i].value, it.value)
			}
			db.items[i].value = it.value
			return
		}
	}
	db.items = append(db.items, it)
}

// Get looks up (module, key), falling back to the unqualified key if
// module is non-empty and no qualified entry exists.
func (db *DB) Get(module, key string) (float64, bool) {
	for _, it := range db.items {
		if it.module == module && it.key == key {
			return it.value, true
		}
	}
	if module != "" {
		for _, it := range db.items {
			if it.module == "" && it.key == key {
				return it.value, true
			}
		}
	}
	return 0, false
}

// Size returns the number of distinct key/value pairs in db.
func (db *DB) Size() int { return len(db.items) }
