package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per analyzed clip
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			video_path TEXT NOT NULL,
			duration REAL NOT NULL DEFAULT 0,
			frame_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Key moments table - the four serve events, time and frame NULL when absent
		`CREATE TABLE IF NOT EXISTS key_moments (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			seq INTEGER NOT NULL,
			time REAL,
			frame_index INTEGER,
			PRIMARY KEY (session_id, seq)
		)`,

		// Pose frames table - detected landmarks, JSON encoded
		`CREATE TABLE IF NOT EXISTS pose_frames (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			time REAL NOT NULL,
			landmarks TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
