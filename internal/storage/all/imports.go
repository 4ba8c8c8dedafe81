// Package all wires every built-in sink into the storage factory. It exists
// purely for side effects: blank-importing it runs each backend's init,
// which registers its factory.
//
// Binaries that only need a subset can import the individual backend
// packages instead.
package all

import (
	_ "giftetl/internal/storage/csvfile"
	_ "giftetl/internal/storage/mysql"
	_ "giftetl/internal/storage/parquetfile"
	_ "giftetl/internal/storage/postgres"
	_ "giftetl/internal/storage/sqlite"
)
