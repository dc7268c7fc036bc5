package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ayusman/acecoach/internal/pose"
)

// FrameRepository stores the pose frames a session was analyzed from.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the pose frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Save replaces the pose frames of a session in a single transaction and
// updates the session's frame count.
func (r *FrameRepository) Save(sessionID string, frames []pose.Frame) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_frames WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_frames (session_id, seq, time, landmarks) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range frames {
		data, err := json.Marshal(f.Landmarks)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(sessionID, i, f.Time, string(data)); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`UPDATE sessions SET frame_count = ? WHERE id = ?`, len(frames), sessionID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// GetBySession loads the pose frames of a session in time order.
func (r *FrameRepository) GetBySession(sessionID string) (*pose.Buffer, error) {
	rows, err := r.db.Query(
		`SELECT time, landmarks FROM pose_frames WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buf := pose.NewBuffer(0)
	for rows.Next() {
		var f pose.Frame
		var data string
		if err := rows.Scan(&f.Time, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &f.Landmarks); err != nil {
			return nil, fmt.Errorf("decode frame at %.3fs: %w", f.Time, err)
		}
		if err := buf.Append(f); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buf, nil
}
