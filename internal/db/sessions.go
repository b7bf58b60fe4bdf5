package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Search Session Methods
// -----------------------------------------------------------------------------

// CreateSession creates a new search session row and returns its id.
func (db *DB) CreateSession(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO search_sessions (candidate_ids, cursor_offset, batch_index, fetched_ids, active)
		 VALUES ('{}', 0, 0, '{}', TRUE)
		 RETURNING id`,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// GetSession retrieves a session row by id. Inactive sessions are returned
// too; callers decide whether soft-deleted sessions are usable.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*SessionRow, error) {
	var s SessionRow
	err := db.pool.QueryRow(ctx,
		`SELECT id, query, candidate_ids, cursor_offset, batch_index, fetched_ids, active, created_at, updated_at
		 FROM search_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Query, &s.CandidateIDs, &s.CursorOffset, &s.BatchIndex, &s.FetchedIDs, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// SaveSessionQuery stores the constructed vendor query on the session.
func (db *DB) SaveSessionQuery(ctx context.Context, id uuid.UUID, query any) error {
	jsonBytes, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE search_sessions SET query = $1, updated_at = NOW() WHERE id = $2`,
		jsonBytes, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save session query: %w", err)
	}
	return nil
}

// SetSessionCandidates stores the merged identifier list and batch index.
// Identifiers are only ever set as a whole after a preview run; the cursor
// is reset to zero.
func (db *DB) SetSessionCandidates(ctx context.Context, id uuid.UUID, candidateIDs []string, batchIndex int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE search_sessions
		 SET candidate_ids = $1, batch_index = $2, cursor_offset = 0, fetched_ids = '{}', updated_at = NOW()
		 WHERE id = $3`,
		candidateIDs, batchIndex, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set session candidates: %w", err)
	}
	return nil
}

// AdvanceCursor moves the read-forward cursor and appends newly fetched ids.
// The offset is monotonic: an attempt to move it backwards is rejected so a
// replayed "load more" cannot double-fetch.
func (db *DB) AdvanceCursor(ctx context.Context, id uuid.UUID, newOffset int, fetchedIDs []string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE search_sessions
		 SET cursor_offset = $1, fetched_ids = fetched_ids || $2, updated_at = NOW()
		 WHERE id = $3 AND cursor_offset <= $1`,
		newOffset, fetchedIDs, id,
	)
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cursor for session %s would move backwards to %d", id, newOffset)
	}
	return nil
}

// DeactivateSession soft-deletes a session: the flag flips, the row stays.
func (db *DB) DeactivateSession(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE search_sessions SET active = FALSE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}
