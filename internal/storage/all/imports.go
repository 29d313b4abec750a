// Package all wires every built-in storage backend into the storage
// registry. Import it for side effects:
//
//	import _ "orderdocs/internal/storage/all"
//
// which makes the kinds "mongo", "postgres", "sqlite" and "memory" available
// to storage.New.
package all

import (
	_ "orderdocs/internal/storage/memory"
	_ "orderdocs/internal/storage/mongo"
	_ "orderdocs/internal/storage/postgres"
	_ "orderdocs/internal/storage/sqlite"
)
