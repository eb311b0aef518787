// Package sqlite persists twin update attempts in a modernc.org/sqlite
// database migrated with goose.
package sqlite
