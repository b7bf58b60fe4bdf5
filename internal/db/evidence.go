package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Discovery Evidence Log
// -----------------------------------------------------------------------------

// AppendEvidence records one stage artifact for a session. The log is
// append-only and purely for observability; callers treat failures as
// non-fatal.
func (db *DB) AppendEvidence(ctx context.Context, sessionID uuid.UUID, stage string, payload any) error {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO discovery_evidence (session_id, stage, payload)
		 VALUES ($1, $2, $3)`,
		sessionID, stage, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to append evidence: %w", err)
	}
	return nil
}

// ListEvidence retrieves evidence rows for a session in insertion order.
func (db *DB) ListEvidence(ctx context.Context, sessionID uuid.UUID) ([]EvidenceRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, session_id, stage, payload, created_at
		 FROM discovery_evidence WHERE session_id = $1 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var records []EvidenceRecord
	for rows.Next() {
		var r EvidenceRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Stage, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}
