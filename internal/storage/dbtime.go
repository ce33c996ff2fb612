package storage

import (
	"database/sql"
	"time"
)

// Timestamps are stored as UTC Unix milliseconds in every backend so the
// same queries and scans work unchanged across SQLite and PostgreSQL.

// ToMillis converts a time to its stored integer form
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis converts a stored integer back to a UTC time
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NullableMillis converts an optional time for a nullable column
func NullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ToMillis(*t), Valid: true}
}

// TimeFromNull converts a scanned nullable column to an optional time
func TimeFromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := FromMillis(v.Int64)
	return &t
}
