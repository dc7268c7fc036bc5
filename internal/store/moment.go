package store

import (
	"database/sql"
	"fmt"

	"github.com/ayusman/acecoach/internal/keymoment"
)

// MomentRepository stores the key moments of a session.
type MomentRepository struct {
	db *sql.DB
}

// Moments returns the key moment repository for this store.
func (s *Store) Moments() *MomentRepository {
	return &MomentRepository{db: s.db}
}

// Save replaces the key moments of a session. Absent moments are stored
// with NULL time and frame index.
func (r *MomentRepository) Save(sessionID string, ms keymoment.Moments) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM key_moments WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO key_moments (session_id, name, seq, time, frame_index) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range ms {
		var t sql.NullFloat64
		var idx sql.NullInt64
		if m.Found {
			t = sql.NullFloat64{Float64: m.Time, Valid: true}
			if m.Index >= 0 {
				idx = sql.NullInt64{Int64: int64(m.Index), Valid: true}
			}
		}
		if _, err := stmt.Exec(sessionID, string(keymoment.Events[i]), i, t, idx); err != nil {
			return fmt.Errorf("save %s: %w", keymoment.Events[i], err)
		}
	}

	return tx.Commit()
}

// GetBySession loads the key moments of a session. A session without
// stored moments yields ErrNotFound.
func (r *MomentRepository) GetBySession(sessionID string) (keymoment.Moments, error) {
	var ms keymoment.Moments
	for i, ev := range keymoment.Events {
		ms[i] = keymoment.Moment{Name: ev, Index: -1}
	}

	rows, err := r.db.Query(
		`SELECT seq, time, frame_index FROM key_moments WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return ms, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var seq int
		var t sql.NullFloat64
		var idx sql.NullInt64
		if err := rows.Scan(&seq, &t, &idx); err != nil {
			return ms, err
		}
		if seq < 0 || seq >= len(ms) {
			continue
		}
		n++
		if t.Valid {
			ms[seq].Found = true
			ms[seq].Time = t.Float64
		}
		if idx.Valid {
			ms[seq].Index = int(idx.Int64)
		}
	}

	if err := rows.Err(); err != nil {
		return ms, err
	}
	if n == 0 {
		return ms, ErrNotFound
	}

	return ms, nil
}
