// Package audit records every attempted save of a list item in SQLite.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"staffDirectoryViewer/internal/models"
	"staffDirectoryViewer/internal/store"
	"staffDirectoryViewer/internal/utils"
)

const (
	OutcomeSaved  = "saved"
	OutcomeFailed = "failed"
)

// Entry is one save attempt.
type Entry struct {
	ID        int64              `json:"id"`
	ListName  string             `json:"listName"`
	ItemID    int                `json:"itemId"`
	SessionID string             `json:"sessionId"`
	Patch     models.RemotePatch `json:"patch"`
	Outcome   string             `json:"outcome"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Log is the save history table.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// New creates the save_audit table if needed.
func New(db *sql.DB) (*Log, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS save_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			list_name TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			patch TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_save_audit_created ON save_audit(created_at);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create save_audit table: %v", err)
	}
	return &Log{db: db, now: time.Now}, nil
}

// Record appends one entry. The outcome is derived from saveErr.
func (l *Log) Record(ctx context.Context, listName string, itemID int, sessionID string, patch models.RemotePatch, saveErr error) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %v", err)
	}

	outcome, message := OutcomeSaved, ""
	if saveErr != nil {
		outcome, message = OutcomeFailed, saveErr.Error()
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO save_audit (list_name, item_id, session_id, patch, outcome, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, listName, itemID, sessionID, string(patchJSON), outcome, message, l.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %v", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, list_name, item_id, session_id, patch, outcome, error, created_at
		FROM save_audit
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %v", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			entry     Entry
			patchJSON string
		)
		if err := rows.Scan(&entry.ID, &entry.ListName, &entry.ItemID, &entry.SessionID,
			&patchJSON, &entry.Outcome, &entry.Error, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %v", err)
		}
		if err := json.Unmarshal([]byte(patchJSON), &entry.Patch); err != nil {
			return nil, fmt.Errorf("failed to decode patch of audit entry %d: %v", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Wrap returns a store that records every UpdateByID in the log. The session
// id is taken from the call context. Failing to write the entry is logged and
// never fails the update.
func (l *Log) Wrap(next store.RemoteStore) store.RemoteStore {
	return &auditedStore{RemoteStore: next, log: l}
}

type auditedStore struct {
	store.RemoteStore
	log *Log
}

func (s *auditedStore) UpdateByID(ctx context.Context, listName string, id int, patch models.RemotePatch) error {
	err := s.RemoteStore.UpdateByID(ctx, listName, id, patch)

	sessionID, _ := utils.SessionIDFromContext(ctx)
	// The request context may already be cancelled; the entry is written anyway.
	if recordErr := s.log.Record(context.WithoutCancel(ctx), listName, id, sessionID, patch, err); recordErr != nil {
		utils.AppLogger.WithError(recordErr).WithField("item_id", id).Error("Failed to write audit entry")
	}
	return err
}
