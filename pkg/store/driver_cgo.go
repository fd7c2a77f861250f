//go:build sqlitecgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, opt-in via the sqlitecgo tag
)

const sqliteDriverName = "sqlite3"
