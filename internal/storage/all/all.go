// Package all links every storage backend into a binary. Import it for side
// effects:
//
//	import _ "fleximart/internal/storage/all"
package all

import (
	_ "fleximart/internal/storage/mssql"
	_ "fleximart/internal/storage/postgres"
	_ "fleximart/internal/storage/sqlite"
)
