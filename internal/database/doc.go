// Package database builds the PostgreSQL connection pool the hub reads
// sessions from.
package database
