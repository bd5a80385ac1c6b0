//go:build !cgo_sqlite

package sqlite3

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"
