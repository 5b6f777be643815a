package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/waveforge/orc/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// History is a durable, queryable audit trail of task-status transitions
// and escalations, independent of the authoritative Tier A/B snapshot. It
// exists purely for operator inspection and post-mortems; the Manager
// never reads from it to make scheduling decisions.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the sqlite history ledger at
// dbPath.
func OpenHistory(dbPath string) (*History, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("state: history: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("state: history: open: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: history: init schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// RecordTransition appends a task-status transition to the ledger.
func (h *History) RecordTransition(ctx context.Context, featureID, taskID string, from, to models.TaskStatus, workerID int, lastErr string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO task_transitions (feature_id, task_id, from_status, to_status, worker_id, last_error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		featureID, taskID, string(from), string(to), workerID, lastErr,
	)
	if err != nil {
		return fmt.Errorf("state: history: record transition: %w", err)
	}
	return nil
}

// RecordEscalation appends an escalation record to the ledger.
func (h *History) RecordEscalation(ctx context.Context, featureID string, e models.Escalation) error {
	ctxJSON := "{}"
	if len(e.Context) > 0 {
		data, err := json.Marshal(e.Context)
		if err != nil {
			return fmt.Errorf("state: history: marshal escalation context: %w", err)
		}
		ctxJSON = string(data)
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO escalations (feature_id, worker_id, task_id, category, message, context, resolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		featureID, e.WorkerID, e.TaskID, string(e.Category), e.Message, ctxJSON, e.Resolved,
	)
	if err != nil {
		return fmt.Errorf("state: history: record escalation: %w", err)
	}
	return nil
}

// TransitionCount returns how many transitions are recorded for a feature,
// used by tests and operator tooling to sanity-check the ledger is live.
func (h *History) TransitionCount(ctx context.Context, featureID string) (int, error) {
	var count int
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_transitions WHERE feature_id = ?`, featureID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("state: history: count transitions: %w", err)
	}
	return count, nil
}
