// Package store provides SQLite-backed storage for the analytics backend.
//
// The store holds, per workspace:
//   - Datasets: one fact table with the workspace's rows
//   - Catalog items: labels, facts and date data sets mapped to fact table columns
//   - Insights: saved visualization documents addressable by identifier or URI
//   - Executions: an append-only log of executed definitions
//
// # Patterns
//
// Logical ordering:
//   - The execution log is ordered by seq INTEGER, never by timestamps
//   - Reads use ORDER BY seq ASC or identifier COLLATE BINARY ASC
//
// Parameterized SQL:
//   - Values are always bound, never interpolated
//   - Table and column names are quoted with querysql.QuoteIdent
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Connections are opened through the "sqlite3_execdef" driver, which adds
// a MEDIAN aggregate to every connection.
package store
