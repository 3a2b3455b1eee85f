// Package postgres provides the PostgreSQL implementation of store.TaskStore.
// It handles the details of database connections, query execution, and data
// mapping between domain tasks and database records. Connections use the
// pgx driver through database/sql.
package postgres
