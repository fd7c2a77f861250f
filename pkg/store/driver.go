//go:build !sqlitecgo

package store

import (
	_ "modernc.org/sqlite" // pure-Go SQLite driver, default build
)

const sqliteDriverName = "sqlite"
