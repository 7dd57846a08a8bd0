// Package database is a local stand-in for the hosted tables API, backed by
// a SQLite file. Records of every table live in a single JSON-valued table.
package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

func Open(url string) (db *sql.DB, err error) {
	dsn := url
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", url)
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return
}
