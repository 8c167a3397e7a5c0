// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects makes these storage kinds available:
//
//   - "postgres" (orderetl/internal/storage/postgres)
//   - "mssql"    (orderetl/internal/storage/mssql)
//   - "sqlite"   (orderetl/internal/storage/sqlite)
//   - "mysql"    (orderetl/internal/storage/mysql)
//   - "mongo"    (orderetl/internal/storage/mongo)
package all

import (
	_ "orderetl/internal/storage/mongo"
	_ "orderetl/internal/storage/mssql"
	_ "orderetl/internal/storage/mysql"
	_ "orderetl/internal/storage/postgres"
	_ "orderetl/internal/storage/sqlite"
)
