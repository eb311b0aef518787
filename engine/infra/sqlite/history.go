package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/google/uuid"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// ErrEntryNotFound is returned by Get for unknown IDs.
var ErrEntryNotFound = errors.New("history entry not found")

// Entry is one persisted update attempt.
type Entry struct {
	ID          string                  `json:"id"`
	Result      twinconfig.Result       `json:"result"`
	Mode        string                  `json:"mode"`
	Applied     bool                    `json:"applied"`
	Bundle      twinconfig.BundleStatus `json:"bundle"`
	Message     string                  `json:"message,omitempty"`
	AttemptedAt time.Time               `json:"attempted_at"`
}

// HistoryRepo stores update outcomes and keeps at most retention rows.
type HistoryRepo struct {
	db        *sql.DB
	retention int
}

// NewHistoryRepo creates a repository. A non-positive retention disables pruning.
func NewHistoryRepo(db *sql.DB, retention int) *HistoryRepo {
	return &HistoryRepo{db: db, retention: retention}
}

// Record persists outcome and prunes rows beyond the retention window.
func (r *HistoryRepo) Record(ctx context.Context, outcome twinconfig.UpdateOutcome) (*Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("sqlite: generate history id: %w", err)
	}
	entry := &Entry{
		ID:          id.String(),
		Result:      outcome.Result,
		Mode:        outcome.Mode.String(),
		Applied:     outcome.Applied(),
		Bundle:      outcome.Bundle,
		Message:     outcome.Message,
		AttemptedAt: outcome.Time.UTC(),
	}
	bundle, err := ToJSONText(entry.Bundle)
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO twin_updates (id, result, mode, applied, bundle, message, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(
		ctx, q,
		entry.ID, entry.Result.String(), entry.Mode, entry.Applied, bundle, entry.Message,
		entry.AttemptedAt.Format(time.RFC3339Nano),
	); err != nil {
		return nil, fmt.Errorf("sqlite: insert history entry: %w", err)
	}
	if _, err := r.Prune(ctx); err != nil {
		logger.FromContext(ctx).Warn("Failed to prune update history", "error", err)
	}
	return entry, nil
}

// List returns the most recent entries first.
func (r *HistoryRepo) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	const q = `SELECT id, result, mode, applied, bundle, message, attempted_at
		FROM twin_updates ORDER BY seq DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list history: %w", err)
	}
	defer rows.Close()
	out := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter history: %w", err)
	}
	return out, nil
}

// Get returns the entry with the given ID.
func (r *HistoryRepo) Get(ctx context.Context, id string) (*Entry, error) {
	const q = `SELECT id, result, mode, applied, bundle, message, attempted_at
		FROM twin_updates WHERE id = ?`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	return entry, err
}

// Count returns the number of stored entries.
func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM twin_updates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count history: %w", err)
	}
	return n, nil
}

// Prune deletes all but the newest retention entries.
func (r *HistoryRepo) Prune(ctx context.Context) (int64, error) {
	if r.retention <= 0 {
		return 0, nil
	}
	const q = `DELETE FROM twin_updates WHERE seq NOT IN (
		SELECT seq FROM twin_updates ORDER BY seq DESC LIMIT ?)`
	res, err := r.db.ExecContext(ctx, q, r.retention)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune history rows: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry       Entry
		result      string
		bundle      string
		attemptedAt string
	)
	err := row.Scan(&entry.ID, &result, &entry.Mode, &entry.Applied, &bundle, &entry.Message, &attemptedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: scan history entry: %w", err)
	}
	if entry.Result, err = twinconfig.ParseResult(result); err != nil {
		return nil, fmt.Errorf("sqlite: decode result: %w", err)
	}
	if err := FromJSONText(bundle, &entry.Bundle); err != nil {
		return nil, err
	}
	if entry.AttemptedAt, err = time.Parse(time.RFC3339Nano, attemptedAt); err != nil {
		return nil, fmt.Errorf("sqlite: decode attempted_at: %w", err)
	}
	return &entry, nil
}

// ToJSONText encodes v for a TEXT column.
func ToJSONText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode json: %w", err)
	}
	return string(data), nil
}

// FromJSONText decodes a TEXT column produced by ToJSONText.
func FromJSONText(text string, dst any) error {
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("sqlite: decode json: %w", err)
	}
	return nil
}
